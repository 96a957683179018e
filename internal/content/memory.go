package content

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory はテスト用のインメモリRepository実装。
type Memory struct {
	// mu は全フィールドを保護するミューテックス。
	mu sync.RWMutex
	// projects はIDからプロジェクトへのマップ。
	projects map[string]Project
	// posts はIDから投稿へのマップ。
	posts map[string]Post
	// topics はIDからトピックへのマップ。
	topics map[string]Topic
	// comments は登録順のコメント一覧。
	comments []Comment
}

// Memory はRepositoryを実装する。
var _ Repository = (*Memory)(nil)

// NewMemory は新しい空のMemoryを生成する。
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]Project),
		posts:    make(map[string]Post),
		topics:   make(map[string]Topic),
	}
}

// CreateProject はプロジェクトを保存する。
func (m *Memory) CreateProject(_ context.Context, p Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

// CreatePost は投稿を保存する。
func (m *Memory) CreatePost(_ context.Context, p Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[p.ID] = p
	return nil
}

// CreateTopic はトピックを保存する。
func (m *Memory) CreateTopic(_ context.Context, t Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[t.ID] = t
	return nil
}

// CreateComment はコメントを保存する。
func (m *Memory) CreateComment(_ context.Context, c Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, c)
	return nil
}

// GetMeta は種別とIDからコンテンツの所有者とタイトルを返す。
func (m *Memory) GetMeta(_ context.Context, kind Kind, contentID string) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch kind {
	case KindProject:
		if p, ok := m.projects[contentID]; ok {
			return Meta{OwnerID: p.OwnerID, Title: p.Title}, nil
		}
	case KindPost:
		if p, ok := m.posts[contentID]; ok {
			return Meta{OwnerID: p.OwnerID, Title: p.Title}, nil
		}
	case KindTopic:
		if t, ok := m.topics[contentID]; ok {
			return Meta{OwnerID: t.OwnerID, Title: t.Name}, nil
		}
	default:
		return Meta{}, fmt.Errorf("未知のコンテンツ種別: %q", kind)
	}
	return Meta{}, ErrNotFound
}

// ListProjectsByOwners は所有者集合のプロジェクトを新着順に返す。
func (m *Memory) ListProjectsByOwners(_ context.Context, ownerIDs []string, limit, offset int) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owners := toSet(ownerIDs)
	matched := []Project{}
	for _, p := range m.projects {
		if _, ok := owners[p.OwnerID]; ok {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return window(matched, limit, offset), nil
}

// ListPostsByOwners は所有者集合の投稿を新着順に返す。
func (m *Memory) ListPostsByOwners(_ context.Context, ownerIDs []string, limit, offset int) ([]Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owners := toSet(ownerIDs)
	matched := []Post{}
	for _, p := range m.posts {
		if _, ok := owners[p.OwnerID]; ok {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return window(matched, limit, offset), nil
}

// ListProjectsByIDs は指定ID集合のプロジェクトを返す。
func (m *Memory) ListProjectsByIDs(_ context.Context, ids []string) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := []Project{}
	for _, id := range ids {
		if p, ok := m.projects[id]; ok {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

// ListPostsByIDs は指定ID集合の投稿を返す。
func (m *Memory) ListPostsByIDs(_ context.Context, ids []string) ([]Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := []Post{}
	for _, id := range ids {
		if p, ok := m.posts[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// CountComments は対象コンテンツのコメント数を返す。
func (m *Memory) CountComments(_ context.Context, kind Kind, contentID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, c := range m.comments {
		if c.Kind == kind && c.ContentID == contentID {
			count++
		}
	}
	return count, nil
}

// toSet は文字列スライスを集合に変換する。
func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// window はソート済みスライスにlimitとoffsetのウィンドウを適用する。
func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
