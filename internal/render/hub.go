package render

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 200 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub websocket 广播中心
// 新连接会先收到每种类型的最后一条消息
type Hub struct {
	mu      sync.Mutex
	writeMu sync.Mutex // 同一连接不允许并发写
	conns   map[*websocket.Conn]bool
	latest  map[string][]byte
	order   []string
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]bool),
		latest: make(map[string][]byte),
		logger: logger,
	}
}

// Publish 实现 UpdateSink
func (h *Hub) Publish(ctx context.Context, u Update) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	h.mu.Lock()
	if _, ok := h.latest[u.Type]; !ok {
		h.order = append(h.order, u.Type)
	}
	h.latest[u.Type] = b
	h.mu.Unlock()

	for _, c := range h.snapshot() {
		if err := h.write(c, b); err != nil {
			h.remove(c)
		}
	}
	return nil
}

// ServeHTTP 升级为 websocket 连接并保持到客户端断开
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	// 回放完成前持有写锁，之后的广播只能排在回放之后
	h.writeMu.Lock()
	h.mu.Lock()
	replay := make([][]byte, 0, len(h.order))
	for _, typ := range h.order {
		replay = append(replay, h.latest[typ])
	}
	h.conns[conn] = true
	h.mu.Unlock()

	for _, b := range replay {
		if err = h.writeLocked(conn, b); err != nil {
			break
		}
	}
	h.writeMu.Unlock()

	defer h.remove(conn)
	if err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients 当前连接数
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close 断开所有连接
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		h.remove(c)
	}
}

func (h *Hub) write(c *websocket.Conn, b []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return h.writeLocked(c, b)
}

func (h *Hub) writeLocked(c *websocket.Conn, b []byte) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteMessage(websocket.TextMessage, b)
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()
	if ok {
		_ = c.Close()
	}
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	return clients
}
