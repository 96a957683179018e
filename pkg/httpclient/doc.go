// Package httpclient は外部コラボレータサービスとのJSON通信用HTTPクライアントを提供する。
//
// コアが依存する外部サービス（アイデンティティプロバイダ等）への
// リクエスト送信と、認証済みユーザーIDの伝播を担う。
package httpclient
