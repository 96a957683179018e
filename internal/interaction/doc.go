// Package interaction はコンテンツへのいいねとトピック参加のトグル操作を提供する。
//
// プロジェクト・投稿へのいいねとトピックへの参加は、いずれも
// (ユーザー, 種別, コンテンツ) の一意なエッジとして同一のテーブルに保存される。
// トグルはINSERT OR IGNOREとDELETEの影響行数で冪等に実装され、
// 並行する同一操作との競合はエラーではなく現在の状態として吸収される。
package interaction
