package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"CricketSync/internal/interfaces"
	"CricketSync/internal/logging"
	"CricketSync/internal/metrics"
	"CricketSync/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EventMatchUpdated 比赛更新事件名
const EventMatchUpdated = "match-updated"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Event 推送给订阅端的消息
type Event struct {
	Event string       `json:"event"`
	Data  *model.Match `json:"data"`
}

// EncodeMatchUpdated 编码 match-updated 事件
func EncodeMatchUpdated(match *model.Match) ([]byte, error) {
	return json.Marshal(Event{Event: EventMatchUpdated, Data: match})
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub WebSocket 订阅端集合；广播不阻塞，客户端缓冲满时丢弃该条
// 新连接不补发历史事件
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger
	recorder *metrics.Recorder

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

var _ interfaces.MatchPublisher = (*Hub)(nil)

func NewHub(logger *logrus.Logger, recorder *metrics.Recorder) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 与原 socket 服务一致，允许任意来源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:   logger,
		recorder: recorder,
		clients:  make(map[*client]struct{}),
	}
}

// ServeWS 升级为 WebSocket 并注册订阅端
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket升级失败")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.WithField(logging.FieldClientID, c.id).Info("订阅端已连接")

	go h.writePump(c)
	go h.readPump(c)
}

// Publish 广播 match-updated
func (h *Hub) Publish(ctx context.Context, match *model.Match) {
	if match == nil {
		return
	}
	payload, err := EncodeMatchUpdated(match)
	if err != nil {
		h.logger.WithError(err).WithField(logging.FieldMatchID, match.ID).Error("编码match-updated失败")
		return
	}
	h.Broadcast(payload)
}

// Broadcast 原样广播已编码的消息（Redis 中继使用）
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	delivered, dropped := 0, 0
	for c := range h.clients {
		select {
		case c.send <- payload:
			delivered++
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	h.recorder.RecordBroadcast(delivered, dropped)
	if dropped > 0 {
		h.logger.WithField("dropped", dropped).Warn("部分订阅端缓冲已满，消息被丢弃")
	}
}

// Count 当前订阅端数量
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close 断开全部订阅端，之后的连接直接拒绝
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		h.logger.WithField(logging.FieldClientID, c.id).Info("订阅端已断开")
	}
}

// readPump 只处理 pong 和关闭；订阅端不发送业务消息
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).WithField(logging.FieldClientID, c.id).Debug("订阅端异常断开")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
