// Package content はプロジェクト・投稿・トピックのコンテンツリポジトリを提供する。
//
// コンテンツは外部コラボレータ（コンテンツリポジトリ）が所有するエンティティ
// として扱い、コアはRepositoryインターフェース越しにのみアクセスする。
// 本番ではSQLite実装を、テストではインメモリ実装を構築時に選択する。
// 環境変数によるモック分岐をビジネスロジック内に持ち込まないための構成。
package content

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound は参照されたコンテンツが存在しないことを表す。
var ErrNotFound = errors.New("コンテンツが見つかりません")

// Kind はコンテンツの種別を表す。
type Kind string

const (
	// KindProject はプロジェクトを表す。
	KindProject Kind = "project"
	// KindPost は投稿を表す。
	KindPost Kind = "post"
	// KindTopic はトピックを表す。
	KindTopic Kind = "topic"
)

// Valid は既知のコンテンツ種別かを返す。
func (k Kind) Valid() bool {
	switch k {
	case KindProject, KindPost, KindTopic:
		return true
	}
	return false
}

// Project はフィード集約対象のプロジェクトを表す。
type Project struct {
	// ID はプロジェクトの一意識別子。
	ID string
	// OwnerID は作成者のユーザーID。
	OwnerID string
	// Title はタイトル。
	Title string
	// Description は説明文。
	Description string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Post はフィード集約対象の投稿を表す。
type Post struct {
	// ID は投稿の一意識別子。
	ID string
	// OwnerID は投稿者のユーザーID。
	OwnerID string
	// Title はタイトル。
	Title string
	// Body は本文。
	Body string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Topic はメンバーシップトグルの対象となるトピックを表す。
type Topic struct {
	// ID はトピックの一意識別子。
	ID string
	// OwnerID は作成者のユーザーID。
	OwnerID string
	// Name はトピック名。
	Name string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Comment はコンテンツへのコメントを表す。
type Comment struct {
	// ID はコメントの一意識別子。
	ID string
	// Kind は対象コンテンツの種別。
	Kind Kind
	// ContentID は対象コンテンツのID。
	ContentID string
	// AuthorID はコメント投稿者のユーザーID。
	AuthorID string
	// Body はコメント本文。
	Body string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Meta はコンテンツ種別をまたいだ共通属性（所有者とタイトル）を表す。
// いいねトグルと通知ディスパッチが参照する。
type Meta struct {
	// OwnerID はコンテンツ所有者のユーザーID。
	OwnerID string
	// Title はコンテンツのタイトル（トピックの場合は名前）。
	Title string
}

// Repository はコンテンツリポジトリの参照・作成境界。
type Repository interface {
	// CreateProject はプロジェクトを保存する。
	CreateProject(ctx context.Context, p Project) error
	// CreatePost は投稿を保存する。
	CreatePost(ctx context.Context, p Post) error
	// CreateTopic はトピックを保存する。
	CreateTopic(ctx context.Context, t Topic) error
	// CreateComment はコメントを保存する。
	CreateComment(ctx context.Context, c Comment) error

	// GetMeta は種別とIDからコンテンツの所有者とタイトルを返す。
	// 存在しない場合はErrNotFoundを返す。
	GetMeta(ctx context.Context, kind Kind, contentID string) (Meta, error)

	// ListProjectsByOwners は所有者集合のプロジェクトを新着順に返す。
	// limitとoffsetはこのソース単体に対するウィンドウ指定。
	ListProjectsByOwners(ctx context.Context, ownerIDs []string, limit, offset int) ([]Project, error)
	// ListPostsByOwners は所有者集合の投稿を新着順に返す。
	ListPostsByOwners(ctx context.Context, ownerIDs []string, limit, offset int) ([]Post, error)

	// ListProjectsByIDs は指定ID集合のプロジェクトを返す。順序は保証しない。
	ListProjectsByIDs(ctx context.Context, ids []string) ([]Project, error)
	// ListPostsByIDs は指定ID集合の投稿を返す。順序は保証しない。
	ListPostsByIDs(ctx context.Context, ids []string) ([]Post, error)

	// CountComments は対象コンテンツのコメント数をコメントテーブルから集計する。
	CountComments(ctx context.Context, kind Kind, contentID string) (int64, error)
}
