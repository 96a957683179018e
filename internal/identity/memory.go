package identity

import (
	"context"
	"sync"
)

// MemoryProvider はテスト用のインメモリProvider実装。
type MemoryProvider struct {
	// mu はusersマップを保護するミューテックス。
	mu sync.RWMutex
	// users はユーザーIDからユーザー情報へのマップ。
	users map[string]User
}

// NewMemoryProvider は新しい空のMemoryProviderを生成する。
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{users: make(map[string]User)}
}

// AddUser はテスト用にユーザーを追加する。
func (p *MemoryProvider) AddUser(u User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.ID] = u
}

// GetUser は指定IDのユーザーを返す。
func (p *MemoryProvider) GetUser(_ context.Context, userID string) (User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
