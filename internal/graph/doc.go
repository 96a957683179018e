// Package graph はフォローグラフの永続化と冪等なトグル操作を提供する。
//
// フォローエッジの確認と作成・削除は分離された2操作であり、並行の
// 二重実行では作成時の一意制約違反や削除時の対象不在が起こり得る。
// いずれも冪等な成功（「すでにフォロー中」「すでに未フォロー」）として
// 扱い、ハードエラーにはしない。冪等性はストレージの一意制約と
// INSERT OR IGNORE / DELETEの影響行数判定のみに依存する。
package graph
