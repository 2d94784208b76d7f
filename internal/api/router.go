package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/auth"
	"github.com/oriys/physlab/internal/telemetry"
)

// RouterConfig 路由器配置选项
type RouterConfig struct {
	// Handler API处理器
	Handler *Handler
	// Hub 历史推送中心（可选，未配置时不注册推送端点）
	Hub *StreamHub
	// Auth 认证中间件（可选）
	Auth *auth.Middleware
	// RateLimiter 计算接口限流器（可选）
	RateLimiter *RateLimiter
	// Logger 日志记录器
	Logger *logrus.Logger
	// RequestTimeout 单个请求的超时时间，默认 30 秒
	RequestTimeout time.Duration
	// ServiceName 追踪中使用的服务名
	ServiceName string
	// MetricsHandler 在 API 端口暴露 /metrics（可选）
	MetricsHandler http.Handler
}

// NewRouter 创建并配置HTTP路由器。
//
// 路由结构：
//
//	/health                  - 基本健康检查
//	/health/ready            - 就绪探针（检查历史存储）
//	/health/live             - 存活探针
//	/metrics                 - Prometheus指标端点
//	/api/calculator          - 科学计算器
//	/api/converter           - 单位换算
//	/api/history             - 计算历史
//	/api/history/clear       - 清空历史（认证启用时需要管理员）
//	/api/history/stream      - 历史实时推送 WebSocket
//	/api/v1/modules          - 模块目录
//	/api/v1/units            - 单位表
//	/api/v1/stats            - 历史统计
//	/api/v1/auth/token       - 用 API Key 换取 JWT
//	/api/{module}            - 物理公式求解
func NewRouter(cfg *RouterConfig) *chi.Mux {
	h := cfg.Handler
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "physlab-server"
	}
	authMW := cfg.Auth
	if authMW == nil {
		authMW = auth.NewMiddleware(nil, "", nil, false)
	}

	r := chi.NewRouter()

	// 中间件按照添加顺序执行
	r.Use(telemetry.HTTPMiddleware(serviceName))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)
	r.Get("/health/live", h.Live)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api", func(r chi.Router) {
		// WebSocket 长连接不受请求超时限制
		if cfg.Hub != nil {
			r.Get("/history/stream", cfg.Hub.ServeWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Get("/history", h.ListHistory)
			r.With(authMW.Authenticate, authMW.RequireRole(auth.RoleAdmin)).
				Post("/history/clear", h.ClearHistory)

			r.Route("/v1", func(r chi.Router) {
				r.Get("/modules", h.ListModules)
				r.Get("/modules/{module}", h.GetModule)
				r.Get("/units", h.ListUnits)
				r.Get("/stats", h.Stats)
				r.Post("/auth/token", h.IssueToken)
				r.With(authMW.Authenticate).Get("/auth/whoami", h.Whoami)
			})

			// 计算接口
			r.Group(func(r chi.Router) {
				if cfg.RateLimiter != nil {
					r.Use(cfg.RateLimiter.Middleware)
				}
				r.Post("/calculator", h.Calculator)
				r.Post("/converter", h.Converter)
				r.Post("/{module}", h.Solve)
			})
		})
	})

	return r
}

// corsMiddleware 处理跨域请求，允许所有来源
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		// 预检请求
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
