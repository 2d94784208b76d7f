// Package main 是物理计算服务的入口点。
// 服务提供公式求解、科学计算器、单位换算和计算历史的 HTTP API。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/api"
	"github.com/oriys/physlab/internal/auth"
	"github.com/oriys/physlab/internal/config"
	"github.com/oriys/physlab/internal/domain"
	"github.com/oriys/physlab/internal/events"
	"github.com/oriys/physlab/internal/history"
	"github.com/oriys/physlab/internal/metrics"
	"github.com/oriys/physlab/internal/physics"
	"github.com/oriys/physlab/internal/scheduler"
	"github.com/oriys/physlab/internal/telemetry"
)

func main() {
	// 未指定配置文件时使用默认配置（本地 JSON 文件历史）
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to load config")
		}
		cfg = loaded
	}

	logger := telemetry.NewLogger(cfg.Logging, os.Stdout)
	logger.WithFields(logrus.Fields{
		"driver":  cfg.History.Driver,
		"version": telemetry.Version,
	}).Info("Starting physlab server")

	// 初始化遥测系统，失败时不影响主服务
	tel, err := telemetry.New(context.Background(), cfg.Telemetry)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize telemetry, continuing without tracing")
	} else {
		defer tel.Shutdown(context.Background())
		if tel.IsEnabled() {
			logger.AddHook(telemetry.NewLogrusHook())
			logger.WithFields(logrus.Fields{
				"endpoint":    cfg.Telemetry.Endpoint,
				"sample_rate": cfg.Telemetry.SampleRate,
			}).Info("Telemetry initialized")
		}
	}

	store, err := history.Open(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}
	defer store.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Metrics.Namespace)
		if stats, err := history.Stats(context.Background(), store); err == nil {
			m.UpdateHistoryStats(stats.Total, stats.ByModule)
		}
	}

	hub := api.NewStreamHub(store, m, logger)
	defer hub.Close()

	// 配置了 NATS 时，所有实例通过订阅计算事件向本地 WebSocket 客户端推送
	var publisher api.EventPublisher
	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	if cfg.Events.NatsURL != "" {
		host, _ := os.Hostname()
		bus, err := events.NewEventBus(cfg.Events.NatsURL, "physlab-server/"+host, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to NATS, streaming locally only")
		} else {
			defer bus.Close()
			if err := bus.SubscribeCalculations(subCtx, func(entry *domain.HistoryEntry) {
				hub.Broadcast(entry)
			}); err != nil {
				logger.WithError(err).Warn("Failed to subscribe to calculation events, streaming locally only")
			} else {
				publisher = bus
			}
		}
	}

	cronMgr := scheduler.NewCronManager(logger)
	jobs := scheduler.NewHistoryJobs(store, cfg.History.MaxEntries, m, logger)
	if err := jobs.Register(cronMgr, cfg.History.RetentionSchedule); err != nil {
		logger.WithError(err).Error("Failed to register history jobs")
	}
	cronMgr.Start()
	defer cronMgr.Stop()

	// 认证：API Key 和 JWT
	var jwtMgr *auth.JWTManager
	var keyValidator auth.APIKeyValidator
	if cfg.Auth.Enabled {
		jwtMgr = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration)
		ring := auth.NewKeyRing(cfg.Auth.APIKeys)
		keyValidator = ring
		logger.WithField("api_keys", ring.Len()).Info("Authentication enabled")
	}
	authMW := auth.NewMiddleware(jwtMgr, cfg.Auth.APIKeyHeader, keyValidator, cfg.Auth.Enabled)

	var limiter *api.RateLimiter
	limiterCtx, limiterCancel := context.WithCancel(context.Background())
	defer limiterCancel()
	if cfg.RateLimit.Enabled {
		limiter = api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, m)
		go limiter.Run(limiterCtx)
	}

	handler := api.NewHandler(api.HandlerConfig{
		Registry: physics.NewRegistry(physics.Constants{
			Gravity: cfg.Physics.Gravity,
			Coulomb: cfg.Physics.CoulombConstant,
		}),
		Store:   store,
		Driver:  cfg.History.Driver,
		Events:  publisher,
		Hub:     hub,
		Metrics: m,
		JWT:     jwtMgr,
		Keys:    keyValidator,
		Logger:  logger,
	})

	router := api.NewRouter(&api.RouterConfig{
		Handler:        handler,
		Hub:            hub,
		Auth:           authMW,
		RateLimiter:    limiter,
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		ServiceName:    cfg.Telemetry.ServiceName,
	})

	// 指标端口与主服务端口不同时，单独启动指标服务器
	var metricsServer *http.Server
	if cfg.Metrics.Enabled && cfg.Server.MetricsPort != cfg.Server.HTTPPort {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.WithField("port", cfg.Server.MetricsPort).Info("Starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Fatal("Metrics server failed")
			}
		}()
	}

	// WebSocket 连接是长连接，不设置 WriteTimeout
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.HTTPPort).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// 等待关闭信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// 先关闭推送通道，让 WebSocket 处理协程退出
	hub.Close()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Metrics server shutdown error")
		}
	}

	logger.Info("Server stopped")
}
