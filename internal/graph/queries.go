package graph

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Queries はfollowsテーブルへのクエリ実行オブジェクト。
type Queries struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewQueries は新しいQueriesを生成する。
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// InsertFollow はフォローエッジの作成を試みる。
// 既存エッジとの一意制約違反はINSERT OR IGNOREで吸収し、
// 実際に作成された場合のみtrueを返す。
func (q *Queries) InsertFollow(ctx context.Context, followerID, followingID string, createdAt time.Time) (bool, error) {
	result, err := q.db.ExecContext(
		ctx,
		"INSERT OR IGNORE INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)",
		followerID, followingID, createdAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("フォローエッジの作成に失敗: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("影響行数の取得に失敗: %w", err)
	}
	return affected > 0, nil
}

// DeleteFollow はフォローエッジの削除を試みる。
// 対象が存在しない場合もエラーにせず、実際に削除された場合のみtrueを返す。
func (q *Queries) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	result, err := q.db.ExecContext(
		ctx,
		"DELETE FROM follows WHERE follower_id = ? AND following_id = ?",
		followerID, followingID,
	)
	if err != nil {
		return false, fmt.Errorf("フォローエッジの削除に失敗: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("影響行数の取得に失敗: %w", err)
	}
	return affected > 0, nil
}

// ExistsFollow はフォローエッジが存在するかを返す。
func (q *Queries) ExistsFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists int
	err := q.db.QueryRowContext(
		ctx,
		"SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?)",
		followerID, followingID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("フォローエッジの確認に失敗: %w", err)
	}
	return exists != 0, nil
}

// ListFollowingIDs はユーザーがフォローしている相手のID一覧を返す。
func (q *Queries) ListFollowingIDs(ctx context.Context, followerID string) ([]string, error) {
	return q.listIDs(ctx,
		"SELECT following_id FROM follows WHERE follower_id = ? ORDER BY created_at DESC",
		followerID,
	)
}

// ListFollowerIDs はユーザーをフォローしているユーザーのID一覧を返す。
func (q *Queries) ListFollowerIDs(ctx context.Context, followingID string) ([]string, error) {
	return q.listIDs(ctx,
		"SELECT follower_id FROM follows WHERE following_id = ? ORDER BY created_at DESC",
		followingID,
	)
}

// CountFollowing はユーザーがフォローしている人数を返す。
func (q *Queries) CountFollowing(ctx context.Context, followerID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM follows WHERE follower_id = ?",
		followerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("フォロー数の集計に失敗: %w", err)
	}
	return count, nil
}

// CountFollowers はユーザーのフォロワー数を返す。
func (q *Queries) CountFollowers(ctx context.Context, followingID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM follows WHERE following_id = ?",
		followingID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("フォロワー数の集計に失敗: %w", err)
	}
	return count, nil
}

// listIDs はID列を返すクエリの共通処理。
func (q *Queries) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ID一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ID行の読み取りに失敗: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
