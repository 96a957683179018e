// Package server はソーシャルプラットフォームのコアAPIサーバーを構成する。
//
// 通知のライブ配信（SSE）、フォローグラフ、いいねトグル、フィード集約を
// 単一プロセスで提供する。接続レジストリはプロセス内メモリに保持されるため、
// 水平分割する場合は外部のPub/Subが別途必要になる。
package server

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/sociahub/internal/content"
	"github.com/nao1215/sociahub/internal/feed"
	"github.com/nao1215/sociahub/internal/graph"
	"github.com/nao1215/sociahub/internal/identity"
	"github.com/nao1215/sociahub/internal/interaction"
	"github.com/nao1215/sociahub/internal/notification"
	"github.com/nao1215/sociahub/internal/storage"
	"github.com/nao1215/sociahub/internal/stream"
	"github.com/nao1215/sociahub/pkg/middleware"
)

// Server はコアAPIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// db はSQLiteデータベース接続。
	db *sql.DB
	// hub はライブ配信チャネルのレジストリ。
	hub *stream.Hub
	// jwtSecret はJWT署名鍵。
	jwtSecret string
	// users はユーザー情報の参照先。
	users identity.Provider
	// devUsers は開発用トークン発行時のユーザー登録先。
	// リモートのアイデンティティサービスを使う構成ではnil。
	devUsers *identity.StoreProvider
}

// NewServer は新しいコアAPIサーバーを生成する。
// SQLiteデータベースの初期化とマイグレーションを行う。
func NewServer(port string) (*Server, error) {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "/data/sociahub.db"
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-key"
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{frontendURL}))

	s := &Server{
		router:    router,
		port:      port,
		db:        db,
		hub:       stream.NewHub(),
		jwtSecret: jwtSecret,
	}

	// IDENTITY_URLが設定されていればリモートのアイデンティティサービスを、
	// 未設定ならローカルのusersテーブルを参照する
	if identityURL := os.Getenv("IDENTITY_URL"); identityURL != "" {
		s.users = identity.NewHTTPProvider(identityURL)
	} else {
		store := identity.NewStoreProvider(db)
		s.users = store
		s.devUsers = store
	}

	s.setupRoutes()
	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	notifQueries := notification.NewQueries(s.db)
	dispatcher := notification.NewDispatcher(notifQueries, s.hub, s.users)

	repo := content.NewStore(s.db)
	graphService := graph.NewService(graph.NewQueries(s.db), dispatcher, s.users)
	interactionService := interaction.NewService(interaction.NewQueries(s.db), repo, dispatcher, s.users)
	aggregator := feed.NewAggregator(graphService, interactionService, repo)

	// 認証不要のエンドポイント
	auth := s.router.Group("/auth")
	{
		// 開発用JWTトークン発行
		auth.POST("/dev-token", s.handleDevToken())
	}

	// 認証必須のAPIエンドポイント
	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(s.jwtSecret))
	{
		notification.NewHandler(notifQueries, s.hub, s.users).Routes(api)
		graph.NewHandler(graphService).Routes(api)
		interaction.NewHandler(interactionService).Routes(api)
		feed.NewHandler(aggregator).Routes(api)
		content.NewHandler(repo, graphService, dispatcher, s.users).Routes(api)
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "sociahub"})
	})
}

// devTokenRequest は開発用トークン発行リクエストのJSON構造。
// 省略時はランダムなユーザーを新規作成する。
type devTokenRequest struct {
	// UserID は発行対象のユーザーID。
	UserID string `json:"user_id"`
	// Name は表示名。
	Name string `json:"name"`
}

// handleDevToken は開発用JWTトークンを発行するハンドラを返す。
// 本番環境では無効化すべき。
func (s *Server) handleDevToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req devTokenRequest
		// ボディは任意
		_ = c.ShouldBindJSON(&req)

		if req.UserID == "" {
			req.UserID = uuid.New().String()
		}
		if req.Name == "" {
			req.Name = "開発ユーザー"
		}

		if s.devUsers != nil {
			err := s.devUsers.PutUser(c.Request.Context(), identity.User{
				ID:   req.UserID,
				Name: req.Name,
			})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー登録に失敗しました"})
				log.Printf("開発ユーザー登録エラー: %v", err)
				return
			}
		}

		token, err := middleware.GenerateJWT(s.jwtSecret, req.UserID, req.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			log.Printf("JWT生成エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":   token,
			"user_id": req.UserID,
		})
	}
}
