package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/sociahub/internal/identity"
	"github.com/nao1215/sociahub/internal/notification"
	"github.com/nao1215/sociahub/internal/storage"
	"github.com/nao1215/sociahub/internal/stream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestHandler はテスト用のフォローAPIハンドラとルーターを構築する。
// JWTミドルウェアの代わりにX-User-IDヘッダーでユーザーIDを設定する。
func setupTestHandler(t *testing.T) (*Service, *gin.Engine) {
	t.Helper()

	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	users := identity.NewMemoryProvider()
	users.AddUser(identity.User{ID: "user-a", Name: "アリス"})
	users.AddUser(identity.User{ID: "user-b", Name: "ボブ"})

	dispatcher := notification.NewDispatcher(notification.NewQueries(db), stream.NewHub(), users)
	service := NewService(NewQueries(db), dispatcher, users)
	handler := NewHandler(service)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	handler.Routes(api)

	return service, router
}

// doToggle はフォロー操作のHTTPリクエストを実行するヘルパー関数。
func doToggle(router *gin.Engine, userID, targetID, action string) *httptest.ResponseRecorder {
	body := `{"targetId": "` + targetID + `", "action": "` + action + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/follows", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// doGet はGETリクエストを実行するヘルパー関数。
func doGet(router *gin.Engine, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleToggle_Follow(t *testing.T) {
	service, router := setupTestHandler(t)

	w := doToggle(router, "user-a", "user-b", "follow")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコードが不正: got=%d, body=%s", w.Code, w.Body.String())
	}

	var resp toggleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if !resp.Success {
		t.Error("successがtrueではありません")
	}
	if resp.Message != "フォローしました" {
		t.Errorf("メッセージが不正: got=%s", resp.Message)
	}

	exists, err := service.IsFollowing(context.Background(), "user-a", "user-b")
	if err != nil {
		t.Fatalf("フォロー状態の確認に失敗: %v", err)
	}
	if !exists {
		t.Error("フォローエッジが作成されていません")
	}
}

func TestHandleToggle_RequiresTargetIDField(t *testing.T) {
	_, router := setupTestHandler(t)

	// リクエストボディのキーはtargetId。別名は受け付けない
	req := httptest.NewRequest(http.MethodPost, "/api/v1/follows",
		strings.NewReader(`{"target_id": "user-b", "action": "follow"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-a")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("targetIdなしのステータスコードが不正: got=%d, want=400", w.Code)
	}
}

func TestHandleToggle_RepeatFollowIsSuccess(t *testing.T) {
	_, router := setupTestHandler(t)

	if w := doToggle(router, "user-a", "user-b", "follow"); w.Code != http.StatusOK {
		t.Fatalf("1回目のフォローに失敗: %d", w.Code)
	}

	// すでにフォロー中でも成功レスポンス
	w := doToggle(router, "user-a", "user-b", "follow")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコードが不正: got=%d", w.Code)
	}

	var resp toggleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if !resp.Success {
		t.Error("重複フォローが成功として扱われていません")
	}
}

func TestHandleToggle_Unfollow(t *testing.T) {
	service, router := setupTestHandler(t)

	if w := doToggle(router, "user-a", "user-b", "follow"); w.Code != http.StatusOK {
		t.Fatalf("フォローに失敗: %d", w.Code)
	}

	w := doToggle(router, "user-a", "user-b", "unfollow")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコードが不正: got=%d, body=%s", w.Code, w.Body.String())
	}

	var resp toggleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.Message != "フォローを解除しました" {
		t.Errorf("メッセージが不正: got=%s", resp.Message)
	}

	exists, err := service.IsFollowing(context.Background(), "user-a", "user-b")
	if err != nil {
		t.Fatalf("フォロー状態の確認に失敗: %v", err)
	}
	if exists {
		t.Error("フォローエッジが削除されていません")
	}
}

func TestHandleToggle_SelfFollow(t *testing.T) {
	_, router := setupTestHandler(t)

	w := doToggle(router, "user-a", "user-a", "follow")
	if w.Code != http.StatusBadRequest {
		t.Errorf("自己フォローのステータスコードが不正: got=%d, want=400", w.Code)
	}
}

func TestHandleToggle_UnknownTarget(t *testing.T) {
	_, router := setupTestHandler(t)

	w := doToggle(router, "user-a", "user-x", "follow")
	if w.Code != http.StatusNotFound {
		t.Errorf("存在しないユーザーへのステータスコードが不正: got=%d, want=404", w.Code)
	}
}

func TestHandleToggle_InvalidAction(t *testing.T) {
	_, router := setupTestHandler(t)

	w := doToggle(router, "user-a", "user-b", "block")
	if w.Code != http.StatusBadRequest {
		t.Errorf("未知の操作のステータスコードが不正: got=%d, want=400", w.Code)
	}
}

func TestHandleToggle_Unauthorized(t *testing.T) {
	_, router := setupTestHandler(t)

	w := doToggle(router, "", "user-b", "follow")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("未認証のステータスコードが不正: got=%d, want=401", w.Code)
	}
}

func TestHandleListFollowing(t *testing.T) {
	_, router := setupTestHandler(t)

	if w := doToggle(router, "user-a", "user-b", "follow"); w.Code != http.StatusOK {
		t.Fatalf("フォローに失敗: %d", w.Code)
	}

	w := doGet(router, "/api/v1/follows/following", "user-a")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコードが不正: got=%d", w.Code)
	}

	var resp struct {
		Following []string `json:"following"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if len(resp.Following) != 1 || resp.Following[0] != "user-b" {
		t.Errorf("フォロー中一覧が不正: got=%v", resp.Following)
	}
}

func TestHandleListFollowers(t *testing.T) {
	_, router := setupTestHandler(t)

	if w := doToggle(router, "user-a", "user-b", "follow"); w.Code != http.StatusOK {
		t.Fatalf("フォローに失敗: %d", w.Code)
	}

	w := doGet(router, "/api/v1/follows/followers", "user-b")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコードが不正: got=%d", w.Code)
	}

	var resp struct {
		Followers []string `json:"followers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if len(resp.Followers) != 1 || resp.Followers[0] != "user-a" {
		t.Errorf("フォロワー一覧が不正: got=%v", resp.Followers)
	}
}

func TestHandleCounts(t *testing.T) {
	_, router := setupTestHandler(t)

	if w := doToggle(router, "user-a", "user-b", "follow"); w.Code != http.StatusOK {
		t.Fatalf("フォローに失敗: %d", w.Code)
	}

	w := doGet(router, "/api/v1/follows/counts", "user-b")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコードが不正: got=%d", w.Code)
	}

	var resp struct {
		Following int64 `json:"following"`
		Followers int64 `json:"followers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.Following != 0 || resp.Followers != 1 {
		t.Errorf("カウントが不正: following=%d followers=%d", resp.Following, resp.Followers)
	}
}
