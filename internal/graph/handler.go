package graph

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/sociahub/internal/identity"
	"github.com/nao1215/sociahub/pkg/middleware"
)

// Handler はフォローAPIのHTTPハンドラ群。
type Handler struct {
	// service はフォローグラフのドメイン操作。
	service *Service
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes はフォローAPIのルーティングを登録する。
// apiは認証ミドルウェア適用済みのルートグループであること。
func (h *Handler) Routes(api *gin.RouterGroup) {
	follows := api.Group("/follows")
	{
		// フォロー/アンフォロー
		follows.POST("", h.handleToggle())
		// フォロー中一覧取得
		follows.GET("/following", h.handleListFollowing())
		// フォロワー一覧取得
		follows.GET("/followers", h.handleListFollowers())
		// フォロー数・フォロワー数取得
		follows.GET("/counts", h.handleCounts())
	}
}

// toggleRequest はフォロー操作リクエストのJSON構造。
type toggleRequest struct {
	// TargetID は操作対象のユーザーID。
	TargetID string `json:"targetId" binding:"required"`
	// Action は操作種別（"follow" または "unfollow"）。
	Action string `json:"action" binding:"required"`
}

// toggleResponse はフォロー操作レスポンスのJSON構造。
type toggleResponse struct {
	// Success は操作が成功したかどうか。冪等な競合吸収も成功として扱う。
	Success bool `json:"success"`
	// Message は結果の説明メッセージ。
	Message string `json:"message"`
}

// handleToggle はフォロー/アンフォローを処理するハンドラ。
func (h *Handler) handleToggle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req toggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		var (
			following bool
			err       error
		)
		switch req.Action {
		case "follow":
			following, err = h.service.Follow(c.Request.Context(), userID, req.TargetID)
		case "unfollow":
			following, err = h.service.Unfollow(c.Request.Context(), userID, req.TargetID)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("未知の操作です: %q", req.Action)})
			return
		}

		if err != nil {
			switch {
			case errors.Is(err, ErrSelfFollow):
				c.JSON(http.StatusBadRequest, gin.H{"error": ErrSelfFollow.Error()})
			case errors.Is(err, identity.ErrUserNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "対象ユーザーが見つかりません"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "フォロー操作に失敗しました"})
				log.Printf("フォロー操作エラー: %v", err)
			}
			return
		}

		message := "フォローを解除しました"
		if following {
			message = "フォローしました"
		}
		c.JSON(http.StatusOK, toggleResponse{Success: true, Message: message})
	}
}

// handleListFollowing は認証済みユーザーのフォロー中一覧を返すハンドラ。
func (h *Handler) handleListFollowing() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		ids, err := h.service.ListFollowingIDs(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "フォロー中一覧の取得に失敗しました"})
			log.Printf("フォロー中一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"following": ids})
	}
}

// handleListFollowers は認証済みユーザーのフォロワー一覧を返すハンドラ。
func (h *Handler) handleListFollowers() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		ids, err := h.service.ListFollowerIDs(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "フォロワー一覧の取得に失敗しました"})
			log.Printf("フォロワー一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"followers": ids})
	}
}

// handleCounts は認証済みユーザーのフォロー数・フォロワー数を返すハンドラ。
// カウントは常にエッジの集計から導出する。
func (h *Handler) handleCounts() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		following, followers, err := h.service.Counts(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "フォロー数の取得に失敗しました"})
			log.Printf("フォロー数取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"following": following, "followers": followers})
	}
}
