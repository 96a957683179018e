package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/sociahub/internal/identity"
	"github.com/nao1215/sociahub/internal/storage"
	"github.com/nao1215/sociahub/internal/stream"
	"github.com/nao1215/sociahub/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestServer はインメモリDBを使ったテスト用サーバーを構築する。
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := identity.NewStoreProvider(db)
	s := &Server{
		router:    gin.New(),
		port:      "0",
		db:        db,
		hub:       stream.NewHub(),
		jwtSecret: "test-secret",
		users:     store,
		devUsers:  store,
	}
	s.router.Use(middleware.Recovery())
	s.setupRoutes()
	return s
}

// issueToken は開発用トークンエンドポイント経由でユーザーを登録し、
// JWTトークンを取得するヘルパー関数。
func issueToken(t *testing.T, s *Server, userID, name string) string {
	t.Helper()

	body := fmt.Sprintf(`{"user_id": %q, "name": %q}`, userID, name)
	req := httptest.NewRequest(http.MethodPost, "/auth/dev-token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("トークン発行に失敗: status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("トークンレスポンスの解析に失敗: %v", err)
	}
	return resp.Token
}

// doAuth は認証付きHTTPリクエストを実行するヘルパー関数。
func doAuth(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをJSONとして解析するヘルパー関数。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("レスポンスの解析に失敗: body=%s err=%v", w.Body.String(), err)
	}
}

func TestHealthCheck(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("ステータスコードが不正: got=%d, want=200", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("未認証アクセスのステータスコードが不正: got=%d, want=401", w.Code)
	}
}

// notificationItem は通知一覧レスポンスの1件分。
type notificationItem struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Message      string `json:"message"`
	Read         bool   `json:"read"`
	Link         string `json:"link"`
	ContentTitle string `json:"contentTitle"`
	FromUser     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"fromUser"`
}

// フォロー・投稿・いいね・フィードを横断するエンドツーエンドシナリオ。
func TestSocialScenario(t *testing.T) {
	s := setupTestServer(t)

	tokenA := issueToken(t, s, "user-a", "アリス")
	tokenB := issueToken(t, s, "user-b", "ボブ")
	tokenC := issueToken(t, s, "user-c", "キャロル")

	// AがBをフォローする
	w := doAuth(s, http.MethodPost, "/api/v1/follows", tokenA,
		`{"targetId": "user-b", "action": "follow"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("フォローに失敗: status=%d body=%s", w.Code, w.Body.String())
	}

	// Bにフォロー通知が届いている
	w = doAuth(s, http.MethodGet, "/api/v1/notifications", tokenB, "")
	if w.Code != http.StatusOK {
		t.Fatalf("通知一覧の取得に失敗: status=%d", w.Code)
	}
	var notifs []notificationItem
	decodeBody(t, w, &notifs)
	if len(notifs) != 1 {
		t.Fatalf("通知数が不正: got=%d, want=1", len(notifs))
	}
	if notifs[0].Type != "follow" {
		t.Errorf("通知種別が不正: got=%s", notifs[0].Type)
	}
	if notifs[0].FromUser.Name != "アリス" {
		t.Errorf("通知の発生元が不正: got=%s", notifs[0].FromUser.Name)
	}

	// BがプロジェクトPと投稿Qを作成する
	w = doAuth(s, http.MethodPost, "/api/v1/projects", tokenB,
		`{"title": "プロジェクトP", "description": "説明"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("プロジェクト作成に失敗: status=%d body=%s", w.Code, w.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &created)
	projectID := created.ID

	w = doAuth(s, http.MethodPost, "/api/v1/posts", tokenB,
		`{"title": "投稿Q", "body": "本文"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("投稿作成に失敗: status=%d body=%s", w.Code, w.Body.String())
	}
	decodeBody(t, w, &created)
	postID := created.ID

	// フォロワーAに新着投稿の通知がファンアウトされる
	w = doAuth(s, http.MethodGet, "/api/v1/notifications", tokenA, "")
	decodeBody(t, w, &notifs)
	if len(notifs) != 1 {
		t.Fatalf("ファンアウト通知数が不正: got=%d, want=1", len(notifs))
	}
	if notifs[0].Type != "post" {
		t.Errorf("通知種別が不正: got=%s", notifs[0].Type)
	}

	// Aのフィードは新着順 [Q, P]
	w = doAuth(s, http.MethodGet, "/api/v1/feed", tokenA, "")
	if w.Code != http.StatusOK {
		t.Fatalf("フィード取得に失敗: status=%d", w.Code)
	}
	var feedItems []struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	}
	decodeBody(t, w, &feedItems)
	if len(feedItems) != 2 {
		t.Fatalf("フィードのアイテム数が不正: got=%d, want=2", len(feedItems))
	}
	if feedItems[0].ID != postID || feedItems[1].ID != projectID {
		t.Errorf("フィードの順序が不正: got=[%s, %s], want=[%s, %s]",
			feedItems[0].ID, feedItems[1].ID, postID, projectID)
	}

	// Cがフィード外からPにいいねする（Bはオフライン）
	w = doAuth(s, http.MethodPost, "/api/v1/projects/"+projectID+"/like", tokenC, "")
	if w.Code != http.StatusOK {
		t.Fatalf("いいねに失敗: status=%d body=%s", w.Code, w.Body.String())
	}
	var likeResp struct {
		Liked bool `json:"liked"`
	}
	decodeBody(t, w, &likeResp)
	if !likeResp.Liked {
		t.Error("likedがtrueではありません")
	}

	// いいね通知は永続化され、あとからの一覧取得で読める
	w = doAuth(s, http.MethodGet, "/api/v1/notifications", tokenB, "")
	decodeBody(t, w, &notifs)
	if len(notifs) != 2 {
		t.Fatalf("通知数が不正: got=%d, want=2", len(notifs))
	}
	latest := notifs[0]
	if latest.Type != "like" {
		t.Errorf("最新通知の種別が不正: got=%s", latest.Type)
	}
	if latest.ContentTitle != "プロジェクトP" {
		t.Errorf("通知のコンテンツタイトルが不正: got=%s", latest.ContentTitle)
	}

	// フィードのいいね数は集計で反映される
	w = doAuth(s, http.MethodGet, "/api/v1/feed", tokenA, "")
	var countedFeed []struct {
		ID         string `json:"id"`
		LikesCount int64  `json:"likesCount"`
	}
	decodeBody(t, w, &countedFeed)
	for _, item := range countedFeed {
		if item.ID == projectID && item.LikesCount != 1 {
			t.Errorf("いいね数が不正: got=%d, want=1", item.LikesCount)
		}
	}

	// Cのいいね済み一覧
	w = doAuth(s, http.MethodGet, "/api/v1/feed/liked", tokenC, "")
	var likedItems []struct {
		ID      string `json:"id"`
		LikedAt string `json:"likedAt"`
	}
	decodeBody(t, w, &likedItems)
	if len(likedItems) != 1 || likedItems[0].ID != projectID {
		t.Fatalf("いいね済み一覧が不正: got=%v", likedItems)
	}
	if likedItems[0].LikedAt == "" {
		t.Error("likedAtが設定されていません")
	}

	// Bが全通知を既読にすると未読一覧は空になる
	w = doAuth(s, http.MethodPut, "/api/v1/notifications/read-all", tokenB, "")
	if w.Code != http.StatusOK {
		t.Fatalf("全件既読化に失敗: status=%d", w.Code)
	}
	w = doAuth(s, http.MethodGet, "/api/v1/notifications/unread", tokenB, "")
	decodeBody(t, w, &notifs)
	if len(notifs) != 0 {
		t.Errorf("未読通知が残っています: got=%d", len(notifs))
	}
}

// SSE接続中のユーザーへ通知がライブ配信されるシナリオ。
func TestSocialScenario_LiveDelivery(t *testing.T) {
	s := setupTestServer(t)

	tokenB := issueToken(t, s, "user-b", "ボブ")
	tokenC := issueToken(t, s, "user-c", "キャロル")

	// Bが投稿を作成する
	w := doAuth(s, http.MethodPost, "/api/v1/posts", tokenB, `{"title": "ライブ投稿"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("投稿作成に失敗: status=%d", w.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &created)

	// BがSSEストリームに接続する
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/notifications/stream", nil)
	if err != nil {
		t.Fatalf("リクエストの作成に失敗: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+tokenB)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("SSE接続に失敗: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	reader := bufio.NewReader(resp.Body)
	frame := readFrame(t, reader)
	if !strings.Contains(frame, `"type":"connected"`) {
		t.Fatalf("接続フレームが不正: %s", frame)
	}

	// 接続が確立されるまで待つ
	waitFor(t, func() bool { return s.hub.Connected("user-b") })

	// CがBの投稿にいいねすると、Bへライブ配信される
	w = doAuth(s, http.MethodPost, "/api/v1/posts/"+created.ID+"/like", tokenC, "")
	if w.Code != http.StatusOK {
		t.Fatalf("いいねに失敗: status=%d body=%s", w.Code, w.Body.String())
	}

	frame = readFrame(t, reader)
	var dto struct {
		Type         string `json:"type"`
		Read         bool   `json:"read"`
		ContentTitle string `json:"contentTitle"`
		FromUser     struct {
			Name string `json:"name"`
		} `json:"fromUser"`
	}
	if err := json.Unmarshal([]byte(frame), &dto); err != nil {
		t.Fatalf("通知フレームの解析に失敗: frame=%s err=%v", frame, err)
	}
	if dto.Type != "like" {
		t.Errorf("通知種別が不正: got=%s", dto.Type)
	}
	if dto.FromUser.Name != "キャロル" {
		t.Errorf("発生元ユーザーが不正: got=%s", dto.FromUser.Name)
	}
	if dto.ContentTitle != "ライブ投稿" {
		t.Errorf("コンテンツタイトルが不正: got=%s", dto.ContentTitle)
	}
	if dto.Read {
		t.Error("配信された通知が既読になっています")
	}
}

// readFrame はSSEストリームから次のdataフレームのペイロードを読み取る。
func readFrame(t *testing.T, reader *bufio.Reader) string {
	t.Helper()

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("フレームの読み取りに失敗: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if payload, found := strings.CutPrefix(line, "data: "); found {
			return payload
		}
	}
}

// waitFor は条件が成立するまでポーリングする。
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("条件が時間内に成立しませんでした")
}
