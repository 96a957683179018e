package interaction

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/sociahub/internal/content"
	"github.com/nao1215/sociahub/pkg/middleware"
)

// Handler はいいね・トピック参加APIのHTTPハンドラ群。
type Handler struct {
	// service はトグル操作のドメインサービス。
	service *Service
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes はいいね・トピック参加APIのルーティングを登録する。
// apiは認証ミドルウェア適用済みのルートグループであること。
func (h *Handler) Routes(api *gin.RouterGroup) {
	// プロジェクトへのいいね
	api.POST("/projects/:id/like", h.handleToggle(content.KindProject, "liked"))
	// 投稿へのいいね
	api.POST("/posts/:id/like", h.handleToggle(content.KindPost, "liked"))
	// トピックへの参加
	api.POST("/topics/:id/join", h.handleToggle(content.KindTopic, "joined"))
}

// toggleRequest はトグル操作リクエストのJSON構造。
// ボディ省略時はパスパラメータのIDを対象とする。
type toggleRequest struct {
	// ContentID は対象コンテンツのID。
	ContentID string `json:"contentId"`
}

// handleToggle は種別ごとのトグル操作を処理するハンドラを返す。
// fieldはレスポンスJSONのキー名（"liked" または "joined"）。
func (h *Handler) handleToggle(kind content.Kind, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		// ボディのcontentIdが正、パスパラメータは別名として扱う
		var req toggleRequest
		_ = c.ShouldBindJSON(&req)
		contentID := req.ContentID
		if contentID == "" {
			contentID = c.Param("id")
		}
		liked, err := h.service.Toggle(c.Request.Context(), userID, kind, contentID)
		if err != nil {
			switch {
			case errors.Is(err, content.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "コンテンツが見つかりません"})
			case errors.Is(err, ErrOwnContent):
				c.JSON(http.StatusBadRequest, gin.H{"error": ErrOwnContent.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "トグル操作に失敗しました"})
				log.Printf("トグル操作エラー: kind=%s id=%s: %v", kind, contentID, err)
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{field: liked})
	}
}
