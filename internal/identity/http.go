package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/sociahub/pkg/httpclient"
)

// lookupTimeout はアイデンティティサービスへの問い合わせタイムアウト。
// 通知の表示名解決で使うため、デフォルトより短めに抑える。
const lookupTimeout = 5 * time.Second

// HTTPProvider はリモートのアイデンティティサービスを参照するProvider実装。
// ユーザーデータベースを共有しないデプロイ構成で使用する。
type HTTPProvider struct {
	// client はアイデンティティサービスへのHTTPクライアント。
	client *httpclient.Client
}

// NewHTTPProvider は新しいHTTPProviderを生成する。
// baseURLにはアイデンティティサービスのベースURLを指定する。
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{client: httpclient.New(baseURL, httpclient.WithTimeout(lookupTimeout))}
}

// GetUser は指定IDのユーザーをアイデンティティサービスから取得する。
// 問い合わせ対象のユーザーIDはX-User-IDヘッダーとしても伝播する。
func (p *HTTPProvider) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	ctx = httpclient.WithUserID(ctx, userID)
	if err := p.client.GetJSON(ctx, "/api/v1/users/"+userID, &u); err != nil {
		// 404はユーザー不在として正規化する
		if strings.Contains(err.Error(), "status=404") {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("アイデンティティサービスへの問い合わせに失敗: %w", err)
	}
	return u, nil
}
