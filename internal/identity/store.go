package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StoreProvider はusersテーブルを参照するProvider実装。
// アイデンティティプロバイダと同一のデータベースを共有する構成で使用する。
type StoreProvider struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewStoreProvider は新しいStoreProviderを生成する。
func NewStoreProvider(db *sql.DB) *StoreProvider {
	return &StoreProvider{db: db}
}

// GetUser は指定IDのユーザーをデータベースから取得する。
func (p *StoreProvider) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := p.db.QueryRowContext(
		ctx,
		"SELECT id, name, image FROM users WHERE id = ?",
		userID,
	).Scan(&u.ID, &u.Name, &u.Image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// PutUser はユーザー情報を登録または更新する。
// 開発用トークン発行とシードデータ投入のための補助であり、
// コアのリクエスト処理からは呼び出さない。
func (p *StoreProvider) PutUser(ctx context.Context, u User) error {
	_, err := p.db.ExecContext(
		ctx,
		`INSERT INTO users (id, name, image) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, image = excluded.image`,
		u.ID, u.Name, u.Image,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}
	return nil
}
