// Package feed はフォローグラフに基づくフィードといいね済みアイテムの集約を提供する。
//
// フィードは事前計算を行わず、リクエスト都度フォロー集合から導出する
// リードタイム集約。プロジェクトと投稿の2ソースをそれぞれウィンドウ指定で
// 取得してからマージするため、2ページ目以降の境界はソース単体の
// ページネーションに従う。
package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nao1215/sociahub/internal/content"
	"github.com/nao1215/sociahub/internal/graph"
	"github.com/nao1215/sociahub/internal/interaction"
)

// Item はフィードに表示される1アイテムの射影。
// コメント数といいね数は取得時に集計され、保存されたカウンタは存在しない。
type Item struct {
	// ID はコンテンツの一意識別子。
	ID string `json:"id"`
	// Kind はコンテンツ種別（project または post）。
	Kind content.Kind `json:"kind"`
	// OwnerID は作成者のユーザーID。
	OwnerID string `json:"ownerId"`
	// Title はタイトル。
	Title string `json:"title"`
	// Body は本文または説明文。
	Body string `json:"body,omitempty"`
	// CommentsCount はコメント数。
	CommentsCount int64 `json:"commentsCount"`
	// LikesCount はいいね数。
	LikesCount int64 `json:"likesCount"`
	// CreatedAt は作成日時（RFC3339）。
	CreatedAt string `json:"createdAt"`
	// LikedAt はいいね日時（RFC3339）。いいね済みアイテム一覧でのみ設定される。
	LikedAt string `json:"likedAt,omitempty"`

	// createdAt はソート用の作成日時。
	createdAt time.Time
	// likedAt はソート用のいいね日時。
	likedAt time.Time
}

// Aggregator はフィードといいね済みアイテムの集約を行う。
type Aggregator struct {
	// graph はフォロー集合の参照先。
	graph *graph.Service
	// interactions はいいねエッジといいね数の参照先。
	interactions *interaction.Service
	// repo はコンテンツリポジトリ。
	repo content.Repository
}

// NewAggregator は新しいAggregatorを生成する。
func NewAggregator(graphService *graph.Service, interactions *interaction.Service, repo content.Repository) *Aggregator {
	return &Aggregator{
		graph:        graphService,
		interactions: interactions,
		repo:         repo,
	}
}

// GetFeed はフォロー中ユーザーのプロジェクトと投稿を新着順にマージして返す。
//
// フォロー集合が空の場合は空スライスを返し、全体へのフォールバックは行わない。
// limitとoffsetは各ソース単体へのウィンドウ指定であり、マージ結果は
// 再切り詰めしない。そのため1ページの件数は最大で2*limitになる。
func (a *Aggregator) GetFeed(ctx context.Context, userID string, page, limit int) ([]Item, error) {
	followingIDs, err := a.graph.ListFollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フォロー集合の取得に失敗: %w", err)
	}
	if len(followingIDs) == 0 {
		return []Item{}, nil
	}

	offset := (page - 1) * limit
	projects, err := a.repo.ListProjectsByOwners(ctx, followingIDs, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗: %w", err)
	}
	posts, err := a.repo.ListPostsByOwners(ctx, followingIDs, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗: %w", err)
	}

	items := make([]Item, 0, len(projects)+len(posts))
	for _, p := range projects {
		item, err := a.buildItem(ctx, content.KindProject, p.ID, p.OwnerID, p.Title, p.Description, p.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	for _, p := range posts {
		item, err := a.buildItem(ctx, content.KindPost, p.ID, p.OwnerID, p.Title, p.Body, p.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].createdAt.After(items[j].createdAt)
	})
	return items, nil
}

// GetLikedItems はユーザーがいいねしたプロジェクトと投稿を
// いいね日時の降順で返す。
//
// いいね集合は全件をロードしてからマージし、[skip, skip+limit) に切り出す。
func (a *Aggregator) GetLikedItems(ctx context.Context, userID string, page, limit int) ([]Item, error) {
	projectLikes, err := a.interactions.ListLikedByUser(ctx, userID, content.KindProject)
	if err != nil {
		return nil, fmt.Errorf("いいね一覧の取得に失敗: %w", err)
	}
	postLikes, err := a.interactions.ListLikedByUser(ctx, userID, content.KindPost)
	if err != nil {
		return nil, fmt.Errorf("いいね一覧の取得に失敗: %w", err)
	}

	projects, err := a.repo.ListProjectsByIDs(ctx, likedIDs(projectLikes))
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗: %w", err)
	}
	posts, err := a.repo.ListPostsByIDs(ctx, likedIDs(postLikes))
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗: %w", err)
	}

	likedAtByProject := likedAtIndex(projectLikes)
	likedAtByPost := likedAtIndex(postLikes)

	items := make([]Item, 0, len(projects)+len(posts))
	for _, p := range projects {
		item, err := a.buildItem(ctx, content.KindProject, p.ID, p.OwnerID, p.Title, p.Description, p.CreatedAt)
		if err != nil {
			return nil, err
		}
		item.likedAt = likedAtByProject[p.ID]
		item.LikedAt = item.likedAt.Format(time.RFC3339)
		items = append(items, item)
	}
	for _, p := range posts {
		item, err := a.buildItem(ctx, content.KindPost, p.ID, p.OwnerID, p.Title, p.Body, p.CreatedAt)
		if err != nil {
			return nil, err
		}
		item.likedAt = likedAtByPost[p.ID]
		item.LikedAt = item.likedAt.Format(time.RFC3339)
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].likedAt.After(items[j].likedAt)
	})

	return window(items, (page-1)*limit, limit), nil
}

// buildItem はコンテンツ1件からフィードアイテムを組み立てる。
// コメント数といいね数をこの時点で集計する。
func (a *Aggregator) buildItem(ctx context.Context, kind content.Kind, id, ownerID, title, body string, createdAt time.Time) (Item, error) {
	comments, err := a.repo.CountComments(ctx, kind, id)
	if err != nil {
		return Item{}, fmt.Errorf("コメント数の集計に失敗: %w", err)
	}
	likes, err := a.interactions.Count(ctx, kind, id)
	if err != nil {
		return Item{}, fmt.Errorf("いいね数の集計に失敗: %w", err)
	}

	return Item{
		ID:            id,
		Kind:          kind,
		OwnerID:       ownerID,
		Title:         title,
		Body:          body,
		CommentsCount: comments,
		LikesCount:    likes,
		CreatedAt:     createdAt.Format(time.RFC3339),
		createdAt:     createdAt,
	}, nil
}

// likedIDs はいいねエッジからコンテンツIDの一覧を取り出す。
func likedIDs(likes []interaction.Like) []string {
	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.ContentID)
	}
	return ids
}

// likedAtIndex はコンテンツIDからいいね日時への索引を作る。
func likedAtIndex(likes []interaction.Like) map[string]time.Time {
	index := make(map[string]time.Time, len(likes))
	for _, l := range likes {
		index[l.ContentID] = l.CreatedAt
	}
	return index
}

// window はスライスの [skip, skip+limit) を安全に切り出す。
func window(items []Item, skip, limit int) []Item {
	if skip >= len(items) {
		return []Item{}
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}
