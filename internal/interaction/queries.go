package interaction

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nao1215/sociahub/internal/content"
)

// Like はユーザーとコンテンツを結ぶいいねエッジを表す。
type Like struct {
	// UserID はいいねしたユーザーのID。
	UserID string
	// Kind は対象コンテンツの種別。
	Kind content.Kind
	// ContentID は対象コンテンツのID。
	ContentID string
	// CreatedAt はいいね日時。
	CreatedAt time.Time
}

// Queries はlikesテーブルへのクエリ実行オブジェクト。
type Queries struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewQueries は新しいQueriesを生成する。
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// InsertLike はいいねエッジの作成を試みる。
// 既存エッジとの一意制約違反はINSERT OR IGNOREで吸収し、
// 実際に作成された場合のみtrueを返す。
func (q *Queries) InsertLike(ctx context.Context, userID string, kind content.Kind, contentID string, createdAt time.Time) (bool, error) {
	result, err := q.db.ExecContext(
		ctx,
		"INSERT OR IGNORE INTO likes (user_id, content_kind, content_id, created_at) VALUES (?, ?, ?, ?)",
		userID, string(kind), contentID, createdAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("いいねエッジの作成に失敗: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("影響行数の取得に失敗: %w", err)
	}
	return affected > 0, nil
}

// DeleteLike はいいねエッジの削除を試みる。
// 対象が存在しない場合もエラーにせず、実際に削除された場合のみtrueを返す。
func (q *Queries) DeleteLike(ctx context.Context, userID string, kind content.Kind, contentID string) (bool, error) {
	result, err := q.db.ExecContext(
		ctx,
		"DELETE FROM likes WHERE user_id = ? AND content_kind = ? AND content_id = ?",
		userID, string(kind), contentID,
	)
	if err != nil {
		return false, fmt.Errorf("いいねエッジの削除に失敗: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("影響行数の取得に失敗: %w", err)
	}
	return affected > 0, nil
}

// ExistsLike はいいねエッジが存在するかを返す。
func (q *Queries) ExistsLike(ctx context.Context, userID string, kind content.Kind, contentID string) (bool, error) {
	var exists int
	err := q.db.QueryRowContext(
		ctx,
		"SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = ? AND content_kind = ? AND content_id = ?)",
		userID, string(kind), contentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("いいねエッジの確認に失敗: %w", err)
	}
	return exists != 0, nil
}

// CountLikes はコンテンツのいいね数をエッジの集計から返す。
// カウンタ列は持たず、常にCOUNT(*)で導出する。
func (q *Queries) CountLikes(ctx context.Context, kind content.Kind, contentID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM likes WHERE content_kind = ? AND content_id = ?",
		string(kind), contentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("いいね数の集計に失敗: %w", err)
	}
	return count, nil
}

// ListLikedByUser はユーザーが指定種別でいいねしたエッジの全件を
// いいね日時の降順で返す。
func (q *Queries) ListLikedByUser(ctx context.Context, userID string, kind content.Kind) ([]Like, error) {
	rows, err := q.db.QueryContext(
		ctx,
		"SELECT user_id, content_kind, content_id, created_at FROM likes WHERE user_id = ? AND content_kind = ? ORDER BY created_at DESC",
		userID, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("いいね一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	likes := []Like{}
	for rows.Next() {
		var l Like
		var kindStr string
		if err := rows.Scan(&l.UserID, &kindStr, &l.ContentID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("いいね行の読み取りに失敗: %w", err)
		}
		l.Kind = content.Kind(kindStr)
		likes = append(likes, l)
	}
	return likes, rows.Err()
}
