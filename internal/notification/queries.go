package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound は参照された通知が存在しないことを表す。
var ErrNotFound = errors.New("通知が見つかりません")

// Queries は通知テーブルへのクエリ実行オブジェクト。
type Queries struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewQueries は新しいQueriesを生成する。
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// CreateNotification は通知レコードを保存する。
func (q *Queries) CreateNotification(ctx context.Context, n Notification) error {
	_, err := q.db.ExecContext(
		ctx,
		`INSERT INTO notifications (id, type, recipient_id, actor_id, subject_ref, message, content_title, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), 0, ?)`,
		n.ID, string(n.Type), n.RecipientID, n.ActorID, n.SubjectRef, n.Message, n.ContentTitle, n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("通知の保存に失敗: %w", err)
	}
	return nil
}

// GetNotificationByID は指定IDの通知を取得する。
func (q *Queries) GetNotificationByID(ctx context.Context, id string) (Notification, error) {
	row := q.db.QueryRowContext(
		ctx,
		`SELECT id, type, recipient_id, actor_id, subject_ref, message, content_title, is_read, created_at
		 FROM notifications WHERE id = ?`,
		id,
	)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, fmt.Errorf("通知の取得に失敗: %w", err)
	}
	return n, nil
}

// ListByRecipient は受信者の通知一覧を新着順に返す。
func (q *Queries) ListByRecipient(ctx context.Context, recipientID string) ([]Notification, error) {
	return q.list(ctx,
		`SELECT id, type, recipient_id, actor_id, subject_ref, message, content_title, is_read, created_at
		 FROM notifications WHERE recipient_id = ?
		 ORDER BY created_at DESC`,
		recipientID,
	)
}

// ListUnreadByRecipient は受信者の未読通知一覧を新着順に返す。
func (q *Queries) ListUnreadByRecipient(ctx context.Context, recipientID string) ([]Notification, error) {
	return q.list(ctx,
		`SELECT id, type, recipient_id, actor_id, subject_ref, message, content_title, is_read, created_at
		 FROM notifications WHERE recipient_id = ? AND is_read = 0
		 ORDER BY created_at DESC`,
		recipientID,
	)
}

// MarkAsRead は指定IDの通知を既読にする。
func (q *Queries) MarkAsRead(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("通知の既読化に失敗: %w", err)
	}
	return nil
}

// MarkAllAsRead は受信者の全通知を既読にする。
func (q *Queries) MarkAllAsRead(ctx context.Context, recipientID string) error {
	if _, err := q.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE recipient_id = ?", recipientID); err != nil {
		return fmt.Errorf("全通知の既読化に失敗: %w", err)
	}
	return nil
}

// list はクエリを実行して通知のスライスを返す共通処理。
func (q *Queries) list(ctx context.Context, query string, args ...any) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notifications := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("通知行の読み取りに失敗: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNotification は1行を通知レコードに読み取る。
func scanNotification(row rowScanner) (Notification, error) {
	var n Notification
	var typ string
	var isRead int64
	var contentTitle sql.NullString
	err := row.Scan(
		&n.ID, &typ, &n.RecipientID, &n.ActorID, &n.SubjectRef,
		&n.Message, &contentTitle, &isRead, &n.CreatedAt,
	)
	if err != nil {
		return Notification{}, err
	}
	n.Type = Type(typ)
	n.IsRead = isRead != 0
	n.ContentTitle = contentTitle.String
	return n, nil
}
