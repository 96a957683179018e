package interaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nao1215/sociahub/internal/content"
	"github.com/nao1215/sociahub/internal/identity"
	"github.com/nao1215/sociahub/internal/notification"
)

// ErrOwnContent は自分のコンテンツへのいいね操作を表す検証エラー。
var ErrOwnContent = errors.New("自分のコンテンツにいいねすることはできません")

// Service はいいねとトピック参加のトグル操作を提供する。
type Service struct {
	// queries はlikesテーブルへのクエリ実行オブジェクト。
	queries *Queries
	// repo はコンテンツの存在確認と所有者・タイトルの参照先。
	repo content.Repository
	// dispatcher は通知の永続化と配信を行う。
	dispatcher *notification.Dispatcher
	// users はユーザー情報の参照先。通知メッセージの組み立てに使用する。
	users identity.Provider
}

// NewService は新しいServiceを生成する。
func NewService(queries *Queries, repo content.Repository, dispatcher *notification.Dispatcher, users identity.Provider) *Service {
	return &Service{
		queries:    queries,
		repo:       repo,
		dispatcher: dispatcher,
		users:      users,
	}
}

// Toggle はいいね（トピックの場合は参加）の状態を切り替え、操作後の状態を返す。
//
// 対象コンテンツが存在しない場合はcontent.ErrNotFound、自分のコンテンツへの
// 操作はErrOwnContentを返す。すでに同じ状態への操作は冪等に吸収され、
// 実際に未いいね→いいねへ遷移した場合のみコンテンツ所有者へ通知する。
func (s *Service) Toggle(ctx context.Context, userID string, kind content.Kind, contentID string) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("未知のコンテンツ種別: %q", kind)
	}

	meta, err := s.repo.GetMeta(ctx, kind, contentID)
	if err != nil {
		return false, err
	}
	if meta.OwnerID == userID {
		return false, ErrOwnContent
	}

	liked, err := s.queries.ExistsLike(ctx, userID, kind, contentID)
	if err != nil {
		return false, err
	}

	if liked {
		// 並行する削除との競合（影響行数0）も冪等な成功
		if _, err := s.queries.DeleteLike(ctx, userID, kind, contentID); err != nil {
			return false, err
		}
		return false, nil
	}

	created, err := s.queries.InsertLike(ctx, userID, kind, contentID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if created {
		s.notifyLike(ctx, userID, kind, contentID, meta)
	}
	return true, nil
}

// IsLiked はいいね状態を返す。
func (s *Service) IsLiked(ctx context.Context, userID string, kind content.Kind, contentID string) (bool, error) {
	return s.queries.ExistsLike(ctx, userID, kind, contentID)
}

// Count はコンテンツのいいね数を返す。
func (s *Service) Count(ctx context.Context, kind content.Kind, contentID string) (int64, error) {
	return s.queries.CountLikes(ctx, kind, contentID)
}

// ListLikedByUser はユーザーが指定種別でいいねしたエッジの全件を返す。
func (s *Service) ListLikedByUser(ctx context.Context, userID string, kind content.Kind) ([]Like, error) {
	return s.queries.ListLikedByUser(ctx, userID, kind)
}

// notifyLike はコンテンツ所有者への通知をディスパッチする。
// 通知の失敗はトグル操作の成否に影響しない。
func (s *Service) notifyLike(ctx context.Context, userID string, kind content.Kind, contentID string, meta content.Meta) {
	actorName := "誰か"
	if actor, err := s.users.GetUser(ctx, userID); err == nil {
		actorName = actor.Name
	}

	message := fmt.Sprintf("%sが「%s」にいいねしました", actorName, meta.Title)
	if kind == content.KindTopic {
		message = fmt.Sprintf("%sが「%s」に参加しました", actorName, meta.Title)
	}

	if _, err := s.dispatcher.CreateAndDispatch(ctx, notification.CreateInput{
		RecipientID:  meta.OwnerID,
		ActorID:      userID,
		Type:         notification.TypeLike,
		SubjectRef:   fmt.Sprintf("%s:%s", kind, contentID),
		Message:      message,
		ContentTitle: meta.Title,
	}); err != nil {
		// いいね自体は成功しているため通知エラーは伝播しない
		log.Printf("いいね通知のディスパッチに失敗: %v", err)
	}
}
