package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/domain"
	"github.com/oriys/physlab/internal/history"
	"github.com/oriys/physlab/internal/metrics"
)

// streamBuffer 每个订阅者的缓冲区大小，写满后丢弃新记录
const streamBuffer = 100

// maxReplay 连接时最多补发的历史记录数
const maxReplay = 500

// StreamHub 将新写入的历史记录实时推送给 WebSocket 订阅者。
type StreamHub struct {
	store   history.Store
	metrics *metrics.Metrics
	logger  *logrus.Logger

	upgrader websocket.Upgrader

	mu          sync.RWMutex
	subscribers map[chan *domain.HistoryEntry]struct{}
	closed      bool
}

// NewStreamHub 创建推送中心。store 用于连接时补发最近的记录，可以为 nil。
func NewStreamHub(store history.Store, m *metrics.Metrics, logger *logrus.Logger) *StreamHub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StreamHub{
		store:   store,
		metrics: m,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		subscribers: make(map[chan *domain.HistoryEntry]struct{}),
	}
}

// Subscribe 注册一个订阅通道。推送中心已关闭时返回 false。
func (s *StreamHub) Subscribe(ch chan *domain.HistoryEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.subscribers[ch] = struct{}{}
	if s.metrics != nil {
		s.metrics.StreamClients.Inc()
	}
	return true
}

// Unsubscribe 取消订阅
func (s *StreamHub) Unsubscribe(ch chan *domain.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	if s.metrics != nil {
		s.metrics.StreamClients.Dec()
	}
}

// Subscribers 返回当前订阅者数量
func (s *StreamHub) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Broadcast 推送一条记录，不会阻塞调用方。
func (s *StreamHub) Broadcast(entry *domain.HistoryEntry) {
	if entry == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- entry:
		default:
			// 订阅者消费太慢，丢弃
		}
	}
}

// Close 关闭全部订阅通道，之后的 Subscribe 会失败。
func (s *StreamHub) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, ch)
		if s.metrics != nil {
			s.metrics.StreamClients.Dec()
		}
	}
}

// ServeWS 历史记录实时推送 WebSocket。
// HTTP端点: GET /api/history/stream
//
// 查询参数:
//   - module: 只推送指定模块的记录（大小写不敏感）
//   - replay: 连接后先补发最近的 N 条记录
func (s *StreamHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	module := strings.TrimSpace(r.URL.Query().Get("module"))
	replay := 0
	if raw := r.URL.Query().Get("replay"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "replay must be a non-negative integer")
			return
		}
		replay = min(n, maxReplay)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	entries := make(chan *domain.HistoryEntry, streamBuffer)
	if !s.Subscribe(entries) {
		return
	}
	defer s.Unsubscribe(entries)

	// 先订阅再读取积压记录，两者之间写入的记录会同时出现在两边，按 ID 去重
	replayed := make(map[string]struct{})
	if replay > 0 && s.store != nil {
		backlog, err := s.store.List(r.Context(), domain.HistoryFilter{Module: module, Limit: replay})
		if err != nil {
			s.logger.WithError(err).Warn("Failed to load history backlog")
		}
		for _, entry := range backlog {
			if entry.ID != "" {
				replayed[entry.ID] = struct{}{}
			}
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
		}
	}

	// 监听客户端关闭
	done := make(chan struct{})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(done)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case entry, ok := <-entries:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if module != "" && !strings.EqualFold(entry.Module, module) {
				continue
			}
			if _, ok := replayed[entry.ID]; ok {
				delete(replayed, entry.ID)
				continue
			}
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
		}
	}
}
