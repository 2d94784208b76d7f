// Package api 提供物理计算服务的 HTTP API 处理程序。
// 主要功能包括：
//   - 各物理模块的公式求解（POST /api/{module}）
//   - 科学计算器与单位换算
//   - 计算历史的查询、清空、统计与实时推送
//   - 模块目录、单位表、令牌签发和健康检查
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/auth"
	"github.com/oriys/physlab/internal/calculator"
	"github.com/oriys/physlab/internal/domain"
	"github.com/oriys/physlab/internal/history"
	"github.com/oriys/physlab/internal/metrics"
	"github.com/oriys/physlab/internal/physics"
)

// maxBodyBytes 请求体大小上限
const maxBodyBytes = 1 << 20

// EventPublisher 定义了计算事件发布接口，由 events.EventBus 实现。
type EventPublisher interface {
	PublishCalculation(ctx context.Context, entry *domain.HistoryEntry) error
}

// Handler 是 API 请求处理器的核心结构体。
//
// 字段说明：
//   - registry: 物理模块注册表
//   - calc: 科学计算器
//   - store: 历史记录存储
//   - driver: 存储驱动名称，用于指标标签
//   - events: 事件发布器（可选）
//   - hub: 历史实时推送中心（可选）
//   - metrics: Prometheus 指标（可选）
//   - jwt/keys: 令牌签发所需的 JWT 管理器和 API Key 集合（可选）
//   - logger: 日志记录器
type Handler struct {
	registry *physics.Registry
	calc     *calculator.Calculator
	store    history.Store
	driver   string
	events   EventPublisher
	hub      *StreamHub
	metrics  *metrics.Metrics
	jwt      *auth.JWTManager
	keys     auth.APIKeyValidator
	logger   *logrus.Logger
}

// HandlerConfig 创建 Handler 所需的依赖
type HandlerConfig struct {
	Registry *physics.Registry
	Store    history.Store
	Driver   string
	Events   EventPublisher
	Hub      *StreamHub
	Metrics  *metrics.Metrics
	JWT      *auth.JWTManager
	Keys     auth.APIKeyValidator
	Logger   *logrus.Logger
}

// NewHandler 创建并返回一个新的 Handler 实例。
// Registry 为空时使用默认物理常量，Logger 为空时使用 logrus 标准记录器。
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Registry == nil {
		cfg.Registry = physics.NewRegistry(physics.DefaultConstants())
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Handler{
		registry: cfg.Registry,
		calc:     calculator.New(),
		store:    cfg.Store,
		driver:   cfg.Driver,
		events:   cfg.Events,
		hub:      cfg.Hub,
		metrics:  cfg.Metrics,
		jwt:      cfg.JWT,
		keys:     cfg.Keys,
		logger:   cfg.Logger,
	}
}

// Response 是计算类接口的统一响应结构。
type Response struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Steps     []string       `json:"steps,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Error     string         `json:"error,omitempty"`
	Field     string         `json:"field,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Health 处理基本健康检查请求。
// HTTP端点: GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready 处理就绪探针请求，检查历史存储是否可用。
// HTTP端点: GET /health/ready
//
// 返回值：
//   - 200: 服务就绪
//   - 503: 历史存储不可用
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.logWarn(r, "Ready", "History store not ready", logrus.Fields{"error": err.Error()})
			writeError(w, r, http.StatusServiceUnavailable, "history store not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Live 处理存活探针请求。
// HTTP端点: GET /health/live
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// decodeBody 将请求体解析为扁平的 JSON 对象，空请求体视为空对象。
// 数字保留为 json.Number，由参数解析统一处理。
func decodeBody(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("%w: request body must be a JSON object", domain.ErrInvalidInput)
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应。
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError 写入 {success:false, error, request_id} 格式的错误响应。
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, Response{
		Success:   false,
		Error:     message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeDomainError 按错误类别选择状态码并写入错误响应，字段错误会带上 field。
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	resp := Response{
		Success:   false,
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	var inputErr *domain.InputError
	if errors.As(err, &inputErr) {
		resp.Field = inputErr.Field
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		resp.Error = "internal server error"
	}
	writeJSON(w, status, resp)
}

// statusFor 将领域错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownModule):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrDomainViolation),
		errors.Is(err, domain.ErrUnknownUnit),
		errors.Is(err, domain.ErrInvalidExpression),
		errors.Is(err, domain.ErrMathError):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorType 返回用于指标标签的错误类别
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrUnknownModule):
		return "unknown_module"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrDomainViolation):
		return "domain_violation"
	case errors.Is(err, domain.ErrUnknownUnit):
		return "unknown_unit"
	case errors.Is(err, domain.ErrInvalidExpression):
		return "invalid_expression"
	case errors.Is(err, domain.ErrMathError):
		return "math_error"
	default:
		return "internal"
	}
}

// clientIP 返回请求的客户端 IP（RealIP 中间件已处理代理头）
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ========== 日志辅助方法 ==========

func (h *Handler) requestEntry(r *http.Request, method string) *logrus.Entry {
	return h.logger.WithContext(r.Context()).WithFields(logrus.Fields{
		"method":     method,
		"path":       r.URL.Path,
		"remote_ip":  r.RemoteAddr,
		"request_id": middleware.GetReqID(r.Context()),
	})
}

// logInfo 记录信息级别日志
func (h *Handler) logInfo(r *http.Request, method, message string, fields logrus.Fields) {
	h.requestEntry(r, method).WithFields(fields).Info(message)
}

// logDebug 记录调试级别日志
func (h *Handler) logDebug(r *http.Request, method, message string, fields logrus.Fields) {
	h.requestEntry(r, method).WithFields(fields).Debug(message)
}

// logWarn 记录警告级别日志
func (h *Handler) logWarn(r *http.Request, method, message string, fields logrus.Fields) {
	h.requestEntry(r, method).WithFields(fields).Warn(message)
}

// logError 记录错误级别日志
func (h *Handler) logError(r *http.Request, method, message string, err error, fields logrus.Fields) {
	entry := h.requestEntry(r, method).WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}
