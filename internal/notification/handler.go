package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/sociahub/internal/identity"
	"github.com/nao1215/sociahub/internal/stream"
	"github.com/nao1215/sociahub/pkg/middleware"
)

// Handler は通知APIのHTTPハンドラ群。
type Handler struct {
	// queries は通知テーブルへのクエリ実行オブジェクト。
	queries *Queries
	// hub はライブ配信チャネルのレジストリ。
	hub *stream.Hub
	// users はユーザー情報の参照先。
	users identity.Provider
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(queries *Queries, hub *stream.Hub, users identity.Provider) *Handler {
	return &Handler{
		queries: queries,
		hub:     hub,
		users:   users,
	}
}

// Routes は通知APIのルーティングを登録する。
// apiは認証ミドルウェア適用済みのルートグループであること。
func (h *Handler) Routes(api *gin.RouterGroup) {
	notifications := api.Group("/notifications")
	{
		// 通知一覧取得
		notifications.GET("", h.handleList())
		// 未読通知一覧取得
		notifications.GET("/unread", h.handleListUnread())
		// ライブ配信チャネル（SSE）
		notifications.GET("/stream", h.handleStream())
		// 通知を既読にする
		notifications.PUT("/:id/read", h.handleMarkAsRead())
		// 全通知を既読にする
		notifications.PUT("/read-all", h.handleMarkAllAsRead())
	}
}

// handleList は認証済みユーザーの通知一覧を返すハンドラ。
func (h *Handler) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notifications, err := h.queries.ListByRecipient(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			log.Printf("通知一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, h.toDTOs(c.Request.Context(), notifications))
	}
}

// handleListUnread は認証済みユーザーの未読通知一覧を返すハンドラ。
func (h *Handler) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notifications, err := h.queries.ListUnreadByRecipient(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知一覧の取得に失敗しました"})
			log.Printf("未読通知一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, h.toDTOs(c.Request.Context(), notifications))
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
// 受信者本人以外からの操作は拒否する。
func (h *Handler) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notificationID := c.Param("id")
		n, err := h.queries.GetNotificationByID(c.Request.Context(), notificationID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
			return
		}
		if n.RecipientID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この通知を操作する権限がありません"})
			return
		}

		if err := h.queries.MarkAsRead(c.Request.Context(), notificationID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の既読処理に失敗しました"})
			log.Printf("通知既読処理エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "通知を既読にしました"})
	}
}

// handleMarkAllAsRead は認証済みユーザーの全通知を既読にするハンドラ。
func (h *Handler) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		if err := h.queries.MarkAllAsRead(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "全通知の既読処理に失敗しました"})
			log.Printf("全通知既読処理エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "全通知を既読にしました"})
	}
}

// handleStream はライブ配信チャネルを開くハンドラ。
//
// 接続はクライアントが切断するかサーバープロセスが終了するまで保持され、
// プッシュされたフレームを逐次書き出す。切断の検知は同期的にレジストリからの
// 削除を行い、以降のSendは正しく非配信を報告する。
func (h *Handler) handleStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		conn := stream.NewConn()
		h.hub.Register(userID, conn)
		defer h.hub.Remove(userID, conn)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		// 接続確立を通知する最初のフレーム
		fmt.Fprintf(c.Writer, "data: %s\n\n", `{"type":"connected","message":"通知ストリームに接続しました"}`)
		c.Writer.Flush()

		for {
			select {
			case <-c.Request.Context().Done():
				// クライアント切断。deferで自分のチャネルのみ削除する。
				return
			case frame := <-conn.Frames():
				fmt.Fprintf(c.Writer, "data: %s\n\n", frame)
				c.Writer.Flush()
			}
		}
	}
}

// toDTOs は通知レコードをDTOに変換する。
// 同一リクエスト内の通知元ユーザー参照はキャッシュする。
func (h *Handler) toDTOs(ctx context.Context, notifications []Notification) []DTO {
	actors := make(map[string]identity.User)
	dtos := make([]DTO, 0, len(notifications))
	for _, n := range notifications {
		actor, ok := actors[n.ActorID]
		if !ok {
			var err error
			actor, err = h.users.GetUser(ctx, n.ActorID)
			if err != nil {
				// ユーザーが消えていても通知自体は返す
				actor = identity.User{ID: n.ActorID}
			}
			actors[n.ActorID] = actor
		}
		dtos = append(dtos, toDTO(n, actor))
	}
	return dtos
}
