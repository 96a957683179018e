package notification

import (
	"strings"
	"time"

	"github.com/nao1215/sociahub/internal/identity"
)

// Type は通知の種別を表す。
type Type string

const (
	// TypeFollow はフォローされたことを表す。
	TypeFollow Type = "follow"
	// TypeLike はコンテンツにいいねされたことを表す。
	TypeLike Type = "like"
	// TypeComment はコンテンツにコメントされたことを表す。
	TypeComment Type = "comment"
	// TypePost はフォロー中のユーザーが投稿したことを表す。
	TypePost Type = "post"
)

// Valid は既知の通知種別かを返す。
func (t Type) Valid() bool {
	switch t {
	case TypeFollow, TypeLike, TypeComment, TypePost:
		return true
	}
	return false
}

// Notification は永続化された通知レコードを表す。
// ディスパッチャのみが作成し、既読フラグ以外のフィールドは不変。
type Notification struct {
	// ID は通知の一意識別子（UUID）。
	ID string
	// Type は通知種別。
	Type Type
	// RecipientID は通知先のユーザーID。
	RecipientID string
	// ActorID は通知を発生させたユーザーID。RecipientIDとは常に異なる。
	ActorID string
	// SubjectRef は通知対象への参照（"<種別>:<ID>" 形式）。
	SubjectRef string
	// Message は通知メッセージ。
	Message string
	// ContentTitle は対象コンテンツのタイトル。空文字列は未設定を表す。
	ContentTitle string
	// IsRead は既読状態。
	IsRead bool
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// UserDTO は通知DTOに含まれる通知元ユーザーの情報。
type UserDTO struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Name は表示名。
	Name string `json:"name"`
	// Image はプロフィール画像のURL。
	Image string `json:"image"`
}

// DTO はクライアントに配信する通知のJSON構造。
// SSEフレームと受信箱一覧APIの両方で使用する。
type DTO struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// Type は通知種別。
	Type Type `json:"type"`
	// Message は通知メッセージ。
	Message string `json:"message"`
	// Read は既読状態。
	Read bool `json:"read"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"createdAt"`
	// FromUser は通知を発生させたユーザーの情報。
	FromUser UserDTO `json:"fromUser"`
	// Link は通知対象への遷移先パス。
	Link string `json:"link,omitempty"`
	// ContentTitle は対象コンテンツのタイトル。
	ContentTitle string `json:"contentTitle,omitempty"`
}

// toDTO は永続化レコードと通知元ユーザー情報からDTOを構築する。
func toDTO(n Notification, actor identity.User) DTO {
	return DTO{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		Read:      n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
		FromUser: UserDTO{
			ID:    actor.ID,
			Name:  actor.Name,
			Image: actor.Image,
		},
		Link:         linkFor(n),
		ContentTitle: n.ContentTitle,
	}
}

// linkFor は通知種別と対象参照から遷移先パスを導出する。
// 対象参照は "<種別>:<ID>" 形式。形式に沿わない場合はリンクなし。
func linkFor(n Notification) string {
	if n.Type == TypeFollow {
		return "/users/" + n.ActorID
	}

	kind, id, found := strings.Cut(n.SubjectRef, ":")
	if !found || kind == "" || id == "" {
		return ""
	}
	return "/" + kind + "s/" + id
}
