// Package events 提供计算事件总线。
// 当前实现基于 NATS JetStream：每条写入历史的计算都会发布到 calculation.<module>.recorded，
// 多个服务实例通过订阅同一 Stream 共享实时历史推送。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/domain"
)

const (
	// StreamName 计算事件 Stream 名称
	StreamName = "CALCULATIONS"
	// SubjectPrefix 计算事件 subject 前缀
	SubjectPrefix = "calculation"
	// EventTypeRecorded 计算记录事件类型
	EventTypeRecorded = "calculation.recorded"
)

// EventBus 封装 NATS/JetStream 连接与发布/订阅操作。
type EventBus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	source string
	logger *logrus.Logger
}

// Event 表示一条计算事件（JSON 格式）。
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Subject   string          `json:"subject"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// EntryHandler 处理订阅收到的历史记录
type EntryHandler func(entry *domain.HistoryEntry)

// NewEventBus 连接 NATS 并确保 CALCULATIONS Stream 存在。
//
// 参数：
//   - natsURL: NATS 服务地址
//   - source: 事件来源标识，通常为服务名
//   - logger: 日志记录器
func NewEventBus(natsURL, source string, logger *logrus.Logger) (*EventBus, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(source),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream := &nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPrefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	}
	if _, err := js.AddStream(stream); err != nil && err != nats.ErrStreamNameAlreadyInUse {
		// Stream 已存在但配置不同时尝试更新
		if _, uerr := js.UpdateStream(stream); uerr != nil {
			logger.WithError(uerr).Warn("Failed to update calculation stream")
		}
	}

	return &EventBus{conn: nc, js: js, source: source, logger: logger}, nil
}

// Close 关闭底层 NATS 连接。
func (eb *EventBus) Close() error {
	eb.conn.Close()
	return nil
}

// Ping 检查 NATS 连接状态
func (eb *EventBus) Ping() error {
	if !eb.conn.IsConnected() {
		return fmt.Errorf("nats connection status: %s", eb.conn.Status())
	}
	return nil
}

// Publish 发布事件到指定 subject。
func (eb *EventBus) Publish(ctx context.Context, subject string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := eb.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.WithFields(logrus.Fields{
		"subject":  subject,
		"event_id": event.ID,
		"type":     event.Type,
	}).Debug("Event published")
	return nil
}

// PublishCalculation 发布一条"计算已记录"事件。
func (eb *EventBus) PublishCalculation(ctx context.Context, entry *domain.HistoryEntry) error {
	event, err := NewCalculationEvent(eb.source, entry)
	if err != nil {
		return err
	}
	return eb.Publish(ctx, event.Subject, event)
}

// SubscribeCalculations 订阅所有计算事件，只接收订阅之后发布的新事件。
// ctx 取消时自动取消订阅。
func (eb *EventBus) SubscribeCalculations(ctx context.Context, handler EntryHandler) error {
	sub, err := eb.js.Subscribe(SubjectPrefix+".>", func(msg *nats.Msg) {
		entry, err := DecodeCalculation(msg.Data)
		if err != nil {
			eb.logger.WithError(err).Error("Failed to decode calculation event")
			msg.Term()
			return
		}
		handler(entry)
		msg.Ack()
	}, nats.DeliverNew(), nats.ManualAck())
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()
	return nil
}

// NewCalculationEvent 将历史记录封装为事件。
func NewCalculationEvent(source string, entry *domain.HistoryEntry) (*Event, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode history entry: %w", err)
	}
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &Event{
		ID:        id,
		Type:      EventTypeRecorded,
		Source:    source,
		Subject:   SubjectFor(entry.Module),
		Data:      data,
		Timestamp: time.Now(),
	}, nil
}

// DecodeCalculation 从事件负载中还原历史记录。
func DecodeCalculation(payload []byte) (*domain.HistoryEntry, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	if event.Type != EventTypeRecorded {
		return nil, fmt.Errorf("unexpected event type %q", event.Type)
	}
	var entry domain.HistoryEntry
	if err := json.Unmarshal(event.Data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SubjectFor 返回模块对应的 subject。
// 模块显示名称会被转为小写，非字母数字字符替换为下划线，例如 "Ohm's Law" -> calculation.ohm_s_law.recorded。
func SubjectFor(module string) string {
	token := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, strings.TrimSpace(module))
	if token == "" {
		token = "unknown"
	}
	return SubjectPrefix + "." + token + ".recorded"
}
