package feed

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/sociahub/pkg/middleware"
)

const (
	// defaultLimit は1ページあたりの既定取得件数。
	defaultLimit = 10
	// maxLimit は1ページあたりの最大取得件数。
	maxLimit = 100
)

// Handler はフィードAPIのHTTPハンドラ群。
type Handler struct {
	// aggregator はフィード集約ロジック。
	aggregator *Aggregator
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// Routes はフィードAPIのルーティングを登録する。
// apiは認証ミドルウェア適用済みのルートグループであること。
func (h *Handler) Routes(api *gin.RouterGroup) {
	feed := api.Group("/feed")
	{
		// フォロー中ユーザーのフィード取得
		feed.GET("", h.handleFeed())
		// いいね済みアイテム一覧取得
		feed.GET("/liked", h.handleLiked())
	}
}

// handleFeed はフォロー中ユーザーのフィードを返すハンドラ。
func (h *Handler) handleFeed() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		page, limit := pagination(c)
		items, err := h.aggregator.GetFeed(c.Request.Context(), userID, page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "フィードの取得に失敗しました"})
			log.Printf("フィード取得エラー: %v", err)
			return
		}

		// レスポンスは順序付きのアイテム配列そのもの
		c.JSON(http.StatusOK, items)
	}
}

// handleLiked はいいね済みアイテム一覧を返すハンドラ。
func (h *Handler) handleLiked() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		page, limit := pagination(c)
		items, err := h.aggregator.GetLikedItems(c.Request.Context(), userID, page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "いいね済みアイテムの取得に失敗しました"})
			log.Printf("いいね済みアイテム取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

// pagination はクエリパラメータからページ番号と件数を取り出す。
// pageは1以上、limitは[1, maxLimit]に正規化する。
func pagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
