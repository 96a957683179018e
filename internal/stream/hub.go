// Package stream はライブ配信チャネルのプロセス内レジストリを提供する。
//
// ユーザーIDと接続中のライブ配信チャネルの対応をメモリ上で管理する。
// 永続化は行わず、配信はベストエフォート。配信失敗の補償は
// 通知ディスパッチャによる永続化側で行われる。
//
// レジストリの正しさは全ライブ接続が同一プロセスのメモリから見えることに
// 依存する。複数プロセスへの水平スケールには共有Pub/Sub層への置き換えが
// 必要であり、本パッケージのスコープ外。
package stream

import "sync"

// defaultFrameBuffer は1接続あたりの送信バッファ数。
// バッファが満杯の場合、Sendはブロックせずに配信失敗を返す。
const defaultFrameBuffer = 16

// Conn は1ユーザーのライブ配信チャネルを表す。
// SSEハンドラがフレームを読み出し、クライアントへ書き込む。
type Conn struct {
	// frames はプッシュされたフレームのバッファ付きチャネル。
	frames chan []byte
}

// NewConn は新しいライブ配信チャネルを生成する。
func NewConn() *Conn {
	return &Conn{
		frames: make(chan []byte, defaultFrameBuffer),
	}
}

// Frames はプッシュされたフレームを受信するためのチャネルを返す。
func (c *Conn) Frames() <-chan []byte {
	return c.frames
}

// Hub はユーザーIDからライブ配信チャネルへの対応を保持するレジストリ。
// 複数のリクエストコンテキストから並行に読み書きされるため、
// RWMutexで保護する。
type Hub struct {
	// mu はconnsマップを保護するミューテックス。
	mu sync.RWMutex
	// conns はユーザーIDから接続中チャネルへのマップ。
	// 1ユーザーにつき同時に保持されるエントリは最大1つ。
	conns map[string]*Conn
}

// NewHub は新しい空のレジストリを生成する。
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*Conn),
	}
}

// Register はユーザーのライブ配信チャネルを登録する。
// 既存のエントリは無条件に置き換えられる。置き換えられた旧チャネルには
// 明示的なクローズ通知は送らない。旧トランスポートは自身で切断を検知する。
func (h *Hub) Register(userID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = conn
}

// Remove は登録済みチャネルがconnと同一インスタンスの場合のみエントリを削除する。
// 再接続レースで後から登録された新しい接続を、古い接続の切断処理が
// 誤って削除することを防ぐ。
func (h *Hub) Remove(userID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.conns[userID]; ok && current == conn {
		delete(h.conns, userID)
	}
}

// Send はユーザーの登録済みチャネルにペイロードのプッシュを試みる。
// チャネルが未登録の場合、またはバッファ満杯で即時に送信できない場合は
// falseを返す。配信確認を待ってブロックすることはなく、
// 未配信のペイロードをキューイングすることもない。
func (h *Hub) Send(userID string, payload []byte) bool {
	h.mu.RLock()
	conn, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case conn.frames <- payload:
		return true
	default:
		return false
	}
}

// Connected はユーザーのライブ配信チャネルが登録されているかを返す。
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}
