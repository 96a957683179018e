// Package identity はユーザー情報の参照手段を提供する。
//
// ユーザーはアイデンティティプロバイダが所有する外部エンティティであり、
// コアは参照のみを行い、決して変更しない。本番ではデータベース実装または
// リモートのアイデンティティサービスへのHTTP実装を、テストでは
// インメモリ実装を構築時に選択する。
package identity

import (
	"context"
	"errors"
)

// ErrUserNotFound は参照されたユーザーが存在しないことを表す。
var ErrUserNotFound = errors.New("ユーザーが見つかりません")

// User はアイデンティティプロバイダが所有するユーザー情報。
type User struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Name は表示名。
	Name string `json:"name"`
	// Image はプロフィール画像のURL。
	Image string `json:"image"`
}

// Provider はユーザー情報の参照境界。
// 実装はデータベース・リモートサービス・インメモリのいずれか。
type Provider interface {
	// GetUser は指定IDのユーザーを返す。
	// 存在しない場合はErrUserNotFoundを返す。
	GetUser(ctx context.Context, userID string) (User, error)
}
