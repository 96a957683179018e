package content

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/sociahub/internal/identity"
	"github.com/nao1215/sociahub/internal/notification"
	"github.com/nao1215/sociahub/pkg/middleware"
)

// FollowerLister はコンテンツ作成時のファンアウト先を解決する。
type FollowerLister interface {
	// ListFollowerIDs はユーザーをフォローしているユーザーのID一覧を返す。
	ListFollowerIDs(ctx context.Context, userID string) ([]string, error)
}

// Handler はコンテンツ作成APIのHTTPハンドラ群。
type Handler struct {
	// repo はコンテンツリポジトリ。
	repo Repository
	// followers は投稿ファンアウト先の解決に使用する。
	followers FollowerLister
	// dispatcher は通知の永続化と配信を行う。
	dispatcher *notification.Dispatcher
	// users はユーザー情報の参照先。通知メッセージの組み立てに使用する。
	users identity.Provider
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(repo Repository, followers FollowerLister, dispatcher *notification.Dispatcher, users identity.Provider) *Handler {
	return &Handler{
		repo:       repo,
		followers:  followers,
		dispatcher: dispatcher,
		users:      users,
	}
}

// Routes はコンテンツ作成APIのルーティングを登録する。
// apiは認証ミドルウェア適用済みのルートグループであること。
func (h *Handler) Routes(api *gin.RouterGroup) {
	// プロジェクト作成
	api.POST("/projects", h.handleCreateProject())
	// 投稿作成（フォロワーへ通知をファンアウトする）
	api.POST("/posts", h.handleCreatePost())
	// トピック作成
	api.POST("/topics", h.handleCreateTopic())
	// コメント作成
	api.POST("/projects/:id/comments", h.handleCreateComment(KindProject))
	api.POST("/posts/:id/comments", h.handleCreateComment(KindPost))
	api.POST("/topics/:id/comments", h.handleCreateComment(KindTopic))
}

// createProjectRequest はプロジェクト作成リクエストのJSON構造。
type createProjectRequest struct {
	// Title はタイトル。
	Title string `json:"title" binding:"required"`
	// Description は説明文。
	Description string `json:"description"`
}

// handleCreateProject はプロジェクトを作成するハンドラ。
func (h *Handler) handleCreateProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		project := Project{
			ID:          uuid.New().String(),
			OwnerID:     userID,
			Title:       req.Title,
			Description: req.Description,
			CreatedAt:   time.Now().UTC(),
		}
		if err := h.repo.CreateProject(c.Request.Context(), project); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "プロジェクトの作成に失敗しました"})
			log.Printf("プロジェクト作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": project.ID, "title": project.Title})
	}
}

// createPostRequest は投稿作成リクエストのJSON構造。
type createPostRequest struct {
	// Title はタイトル。
	Title string `json:"title" binding:"required"`
	// Body は本文。
	Body string `json:"body"`
}

// handleCreatePost は投稿を作成し、フォロワーへ通知するハンドラ。
func (h *Handler) handleCreatePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createPostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		post := Post{
			ID:        uuid.New().String(),
			OwnerID:   userID,
			Title:     req.Title,
			Body:      req.Body,
			CreatedAt: time.Now().UTC(),
		}
		if err := h.repo.CreatePost(c.Request.Context(), post); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の作成に失敗しました"})
			log.Printf("投稿作成エラー: %v", err)
			return
		}

		h.fanOutPost(c.Request.Context(), userID, h.actorName(c, userID), post)
		c.JSON(http.StatusCreated, gin.H{"id": post.ID, "title": post.Title})
	}
}

// createTopicRequest はトピック作成リクエストのJSON構造。
type createTopicRequest struct {
	// Name はトピック名。
	Name string `json:"name" binding:"required"`
}

// handleCreateTopic はトピックを作成するハンドラ。
func (h *Handler) handleCreateTopic() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createTopicRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		topic := Topic{
			ID:        uuid.New().String(),
			OwnerID:   userID,
			Name:      req.Name,
			CreatedAt: time.Now().UTC(),
		}
		if err := h.repo.CreateTopic(c.Request.Context(), topic); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トピックの作成に失敗しました"})
			log.Printf("トピック作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": topic.ID, "name": topic.Name})
	}
}

// createCommentRequest はコメント作成リクエストのJSON構造。
type createCommentRequest struct {
	// Body はコメント本文。
	Body string `json:"body" binding:"required"`
}

// handleCreateComment は種別ごとのコメント作成ハンドラを返す。
// コメント作成後、コンテンツ所有者へ通知する（自分のコンテンツへの
// コメントはディスパッチャ側で抑止される）。
func (h *Handler) handleCreateComment(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		contentID := c.Param("id")
		meta, err := h.repo.GetMeta(c.Request.Context(), kind, contentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "コンテンツが見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "コンテンツの確認に失敗しました"})
			log.Printf("コンテンツ確認エラー: %v", err)
			return
		}

		comment := Comment{
			ID:        uuid.New().String(),
			Kind:      kind,
			ContentID: contentID,
			AuthorID:  userID,
			Body:      req.Body,
			CreatedAt: time.Now().UTC(),
		}
		if err := h.repo.CreateComment(c.Request.Context(), comment); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "コメントの作成に失敗しました"})
			log.Printf("コメント作成エラー: %v", err)
			return
		}

		h.notifyComment(c.Request.Context(), userID, h.actorName(c, userID), kind, contentID, meta)
		c.JSON(http.StatusCreated, gin.H{"id": comment.ID})
	}
}

// actorName は通知メッセージに載せる表示名を解決する。
// JWTクレームの表示名を優先し、無ければユーザー情報を参照する。
func (h *Handler) actorName(c *gin.Context, userID string) string {
	if name := middleware.GetUserName(c); name != "" {
		return name
	}
	if actor, err := h.users.GetUser(c.Request.Context(), userID); err == nil && actor.Name != "" {
		return actor.Name
	}
	return "誰か"
}

// fanOutPost は投稿者のフォロワー全員へ新着投稿の通知をディスパッチする。
// ファンアウトの失敗は投稿作成の成否に影響しない。
func (h *Handler) fanOutPost(ctx context.Context, authorID, actorName string, post Post) {
	followerIDs, err := h.followers.ListFollowerIDs(ctx, authorID)
	if err != nil {
		log.Printf("フォロワー一覧の取得に失敗: %v", err)
		return
	}

	message := fmt.Sprintf("%sが「%s」を投稿しました", actorName, post.Title)

	for _, followerID := range followerIDs {
		if _, err := h.dispatcher.CreateAndDispatch(ctx, notification.CreateInput{
			RecipientID:  followerID,
			ActorID:      authorID,
			Type:         notification.TypePost,
			SubjectRef:   "post:" + post.ID,
			Message:      message,
			ContentTitle: post.Title,
		}); err != nil {
			log.Printf("投稿通知のディスパッチに失敗: recipient=%s: %v", followerID, err)
		}
	}
}

// notifyComment はコンテンツ所有者へのコメント通知をディスパッチする。
func (h *Handler) notifyComment(ctx context.Context, authorID, actorName string, kind Kind, contentID string, meta Meta) {
	if _, err := h.dispatcher.CreateAndDispatch(ctx, notification.CreateInput{
		RecipientID:  meta.OwnerID,
		ActorID:      authorID,
		Type:         notification.TypeComment,
		SubjectRef:   fmt.Sprintf("%s:%s", kind, contentID),
		Message:      fmt.Sprintf("%sが「%s」にコメントしました", actorName, meta.Title),
		ContentTitle: meta.Title,
	}); err != nil {
		// コメント自体は成功しているため通知エラーは伝播しない
		log.Printf("コメント通知のディスパッチに失敗: %v", err)
	}
}
