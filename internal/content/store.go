package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Store はSQLiteを使用するRepository実装。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// Store はRepositoryを実装する。
var _ Repository = (*Store)(nil)

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateProject はプロジェクトをprojectsテーブルに保存する。
func (s *Store) CreateProject(ctx context.Context, p Project) error {
	_, err := s.db.ExecContext(
		ctx,
		"INSERT INTO projects (id, owner_id, title, description, created_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.OwnerID, p.Title, p.Description, p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("プロジェクトの保存に失敗: %w", err)
	}
	return nil
}

// CreatePost は投稿をpostsテーブルに保存する。
func (s *Store) CreatePost(ctx context.Context, p Post) error {
	_, err := s.db.ExecContext(
		ctx,
		"INSERT INTO posts (id, owner_id, title, body, created_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.OwnerID, p.Title, p.Body, p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("投稿の保存に失敗: %w", err)
	}
	return nil
}

// CreateTopic はトピックをtopicsテーブルに保存する。
func (s *Store) CreateTopic(ctx context.Context, t Topic) error {
	_, err := s.db.ExecContext(
		ctx,
		"INSERT INTO topics (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)",
		t.ID, t.OwnerID, t.Name, t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("トピックの保存に失敗: %w", err)
	}
	return nil
}

// CreateComment はコメントをcommentsテーブルに保存する。
func (s *Store) CreateComment(ctx context.Context, c Comment) error {
	_, err := s.db.ExecContext(
		ctx,
		"INSERT INTO comments (id, content_kind, content_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, string(c.Kind), c.ContentID, c.AuthorID, c.Body, c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("コメントの保存に失敗: %w", err)
	}
	return nil
}

// GetMeta は種別ごとのテーブルから所有者とタイトルを取得する。
func (s *Store) GetMeta(ctx context.Context, kind Kind, contentID string) (Meta, error) {
	var query string
	switch kind {
	case KindProject:
		query = "SELECT owner_id, title FROM projects WHERE id = ?"
	case KindPost:
		query = "SELECT owner_id, title FROM posts WHERE id = ?"
	case KindTopic:
		query = "SELECT owner_id, name FROM topics WHERE id = ?"
	default:
		return Meta{}, fmt.Errorf("未知のコンテンツ種別: %q", kind)
	}

	var m Meta
	err := s.db.QueryRowContext(ctx, query, contentID).Scan(&m.OwnerID, &m.Title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, ErrNotFound
		}
		return Meta{}, fmt.Errorf("コンテンツ属性の取得に失敗: %w", err)
	}
	return m, nil
}

// ListProjectsByOwners は所有者集合のプロジェクトを新着順に返す。
func (s *Store) ListProjectsByOwners(ctx context.Context, ownerIDs []string, limit, offset int) ([]Project, error) {
	if len(ownerIDs) == 0 {
		return []Project{}, nil
	}

	query := fmt.Sprintf(
		`SELECT id, owner_id, title, description, created_at
		 FROM projects
		 WHERE owner_id IN (%s)
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		placeholders(len(ownerIDs)),
	)
	args := make([]any, 0, len(ownerIDs)+2)
	for _, id := range ownerIDs {
		args = append(args, id)
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("プロジェクト行の読み取りに失敗: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListPostsByOwners は所有者集合の投稿を新着順に返す。
func (s *Store) ListPostsByOwners(ctx context.Context, ownerIDs []string, limit, offset int) ([]Post, error) {
	if len(ownerIDs) == 0 {
		return []Post{}, nil
	}

	query := fmt.Sprintf(
		`SELECT id, owner_id, title, body, created_at
		 FROM posts
		 WHERE owner_id IN (%s)
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		placeholders(len(ownerIDs)),
	)
	args := make([]any, 0, len(ownerIDs)+2)
	for _, id := range ownerIDs {
		args = append(args, id)
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Body, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListProjectsByIDs は指定ID集合のプロジェクトを返す。
func (s *Store) ListProjectsByIDs(ctx context.Context, ids []string) ([]Project, error) {
	if len(ids) == 0 {
		return []Project{}, nil
	}

	query := fmt.Sprintf(
		"SELECT id, owner_id, title, description, created_at FROM projects WHERE id IN (%s)",
		placeholders(len(ids)),
	)
	rows, err := s.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("プロジェクト行の読み取りに失敗: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListPostsByIDs は指定ID集合の投稿を返す。
func (s *Store) ListPostsByIDs(ctx context.Context, ids []string) ([]Post, error) {
	if len(ids) == 0 {
		return []Post{}, nil
	}

	query := fmt.Sprintf(
		"SELECT id, owner_id, title, body, created_at FROM posts WHERE id IN (%s)",
		placeholders(len(ids)),
	)
	rows, err := s.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Body, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountComments は対象コンテンツのコメント数を集計する。
// 可変カウンタ列は持たず、常にCOUNT(*)で導出する。
func (s *Store) CountComments(ctx context.Context, kind Kind, contentID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM comments WHERE content_kind = ? AND content_id = ?",
		string(kind), contentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("コメント数の集計に失敗: %w", err)
	}
	return count, nil
}

// placeholders はIN句用のプレースホルダ文字列（"?, ?, ..."）を生成する。
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// toAnySlice は文字列スライスをクエリ引数用の[]anyに変換する。
func toAnySlice(values []string) []any {
	args := make([]any, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	return args
}
