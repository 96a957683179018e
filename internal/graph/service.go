package graph

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nao1215/sociahub/internal/identity"
	"github.com/nao1215/sociahub/internal/notification"
)

// ErrSelfFollow は自分自身へのフォロー操作を表す検証エラー。
var ErrSelfFollow = errors.New("自分自身をフォローすることはできません")

// Service はフォローグラフのドメイン操作を提供する。
type Service struct {
	// queries はfollowsテーブルへのクエリ実行オブジェクト。
	queries *Queries
	// dispatcher は通知の永続化と配信を行う。
	dispatcher *notification.Dispatcher
	// users はユーザー情報の参照先。対象ユーザーの存在確認に使用する。
	users identity.Provider
}

// NewService は新しいServiceを生成する。
func NewService(queries *Queries, dispatcher *notification.Dispatcher, users identity.Provider) *Service {
	return &Service{
		queries:    queries,
		dispatcher: dispatcher,
		users:      users,
	}
}

// Follow はフォローエッジの作成を試みる。
// すでにフォロー中の場合も冪等な成功として扱い、通知は実際にエッジが
// 作成された遷移でのみ送る。戻り値は操作後のフォロー状態（常にtrue）。
func (s *Service) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	if err := s.validate(ctx, followerID, followingID); err != nil {
		return false, err
	}

	created, err := s.queries.InsertFollow(ctx, followerID, followingID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if !created {
		// 並行実行との競合またはすでにフォロー中。冪等な成功として扱う。
		return true, nil
	}

	s.notifyFollow(ctx, followerID, followingID)
	return true, nil
}

// Unfollow はフォローエッジの削除を試みる。
// すでに未フォローの場合も冪等な成功として扱う。
// 戻り値は操作後のフォロー状態（常にfalse）。
func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	if err := s.validate(ctx, followerID, followingID); err != nil {
		return false, err
	}

	// 削除対象が存在しない場合（影響行数0）も冪等な成功
	if _, err := s.queries.DeleteFollow(ctx, followerID, followingID); err != nil {
		return false, err
	}
	return false, nil
}

// ToggleFollow は現在の状態を確認してフォロー/アンフォローを切り替える。
// 確認と変更は別操作であり、並行実行との競合はFollow/Unfollow側の
// 冪等処理で吸収される。
func (s *Service) ToggleFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == followingID {
		return false, ErrSelfFollow
	}

	following, err := s.queries.ExistsFollow(ctx, followerID, followingID)
	if err != nil {
		return false, err
	}
	if following {
		return s.Unfollow(ctx, followerID, followingID)
	}
	return s.Follow(ctx, followerID, followingID)
}

// IsFollowing はフォロー状態を返す。
func (s *Service) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	return s.queries.ExistsFollow(ctx, followerID, followingID)
}

// ListFollowingIDs はユーザーがフォローしている相手のID一覧を返す。
func (s *Service) ListFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return s.queries.ListFollowingIDs(ctx, userID)
}

// ListFollowerIDs はユーザーをフォローしているユーザーのID一覧を返す。
func (s *Service) ListFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return s.queries.ListFollowerIDs(ctx, userID)
}

// Counts はフォロー数とフォロワー数を返す。
func (s *Service) Counts(ctx context.Context, userID string) (following, followers int64, err error) {
	following, err = s.queries.CountFollowing(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	followers, err = s.queries.CountFollowers(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return following, followers, nil
}

// validate はフォロー操作の事前検証を行う。
// 自己フォローの拒否と対象ユーザーの存在確認を、状態変更の前に行う。
func (s *Service) validate(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return ErrSelfFollow
	}
	if _, err := s.users.GetUser(ctx, followingID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("対象ユーザーの確認に失敗: %w", err)
	}
	return nil
}

// notifyFollow はフォローされた相手への通知をディスパッチする。
// 通知の失敗はフォロー操作の成否に影響しないため、エラーは握りつぶさず
// ディスパッチャ側でログに記録される。
func (s *Service) notifyFollow(ctx context.Context, followerID, followingID string) {
	message := "新しいフォロワーがいます"
	if actor, err := s.users.GetUser(ctx, followerID); err == nil {
		message = fmt.Sprintf("%sにフォローされました", actor.Name)
	}

	if _, err := s.dispatcher.CreateAndDispatch(ctx, notification.CreateInput{
		RecipientID: followingID,
		ActorID:     followerID,
		Type:        notification.TypeFollow,
		SubjectRef:  "user:" + followerID,
		Message:     message,
	}); err != nil {
		// フォロー自体は成功しているため通知エラーは伝播しない
		log.Printf("フォロー通知のディスパッチに失敗: %v", err)
	}
}
