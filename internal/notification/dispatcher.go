package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/sociahub/internal/identity"
	"github.com/nao1215/sociahub/internal/stream"
)

// Dispatcher は通知の永続化とライブ配信を行う。
// 永続化が正であり、配信はベストエフォート。配信失敗は呼び出し元には
// 一切伝播しない。
type Dispatcher struct {
	// queries は通知テーブルへのクエリ実行オブジェクト。
	queries *Queries
	// hub はライブ配信チャネルのレジストリ。
	hub *stream.Hub
	// users はユーザー情報の参照先。
	users identity.Provider
}

// NewDispatcher は新しいDispatcherを生成する。
func NewDispatcher(queries *Queries, hub *stream.Hub, users identity.Provider) *Dispatcher {
	return &Dispatcher{
		queries: queries,
		hub:     hub,
		users:   users,
	}
}

// CreateInput は通知作成の入力。
type CreateInput struct {
	// RecipientID は通知先のユーザーID。
	RecipientID string
	// ActorID は通知を発生させたユーザーID。
	ActorID string
	// Type は通知種別。
	Type Type
	// SubjectRef は通知対象への参照（"<種別>:<ID>" 形式）。
	SubjectRef string
	// Message は通知メッセージ。
	Message string
	// ContentTitle は対象コンテンツのタイトル（任意）。
	ContentTitle string
}

// CreateAndDispatch は通知を永続化し、ライブ配信チャネルへのプッシュを試みる。
//
// 受信者と発生元が同一の場合はレコードを作成せずnilを返す（自己通知なし）。
// 永続化はライブ配信の成否と無関係に行われ、戻り値は常に永続化された
// レコード。配信結果はログにのみ記録される。
func (d *Dispatcher) CreateAndDispatch(ctx context.Context, in CreateInput) (*Notification, error) {
	if in.RecipientID == in.ActorID {
		return nil, nil
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("未知の通知種別: %q", in.Type)
	}

	n := Notification{
		ID:           uuid.New().String(),
		Type:         in.Type,
		RecipientID:  in.RecipientID,
		ActorID:      in.ActorID,
		SubjectRef:   in.SubjectRef,
		Message:      in.Message,
		ContentTitle: in.ContentTitle,
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.queries.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("通知の作成に失敗: %w", err)
	}

	d.push(ctx, n)
	return &n, nil
}

// push は永続化済み通知のDTOを構築し、ライブ配信チャネルへ送信する。
// DTO構築や配信の失敗は永続化結果に影響しないため、ログに記録して終わる。
func (d *Dispatcher) push(ctx context.Context, n Notification) {
	actor, err := d.users.GetUser(ctx, n.ActorID)
	if err != nil {
		log.Printf("通知元ユーザーの取得に失敗（配信スキップ）: id=%s, %v", n.ActorID, err)
		return
	}

	payload, err := json.Marshal(toDTO(n, actor))
	if err != nil {
		log.Printf("通知DTOのシリアライズに失敗（配信スキップ）: %v", err)
		return
	}

	if delivered := d.hub.Send(n.RecipientID, payload); !delivered {
		log.Printf("ライブ配信をスキップ: recipient=%s, type=%s（チャネル未接続または満杯）", n.RecipientID, n.Type)
	}
}
