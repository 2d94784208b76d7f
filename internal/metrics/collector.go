// Package metrics 提供 Prometheus 指标采集与上报的统一封装。
// 该包集中定义物理计算服务的关键指标（计算、单位换算、历史记录、限流等），便于在各模块复用并保持标签一致。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 封装服务运行时指标集合。
// 所有字段均为 Prometheus 指标类型，通过辅助方法更新指标值。
//
// 指标分类:
//   - 计算指标: 跟踪公式求解和科学计算器的次数、耗时和错误
//   - 换算指标: 统计单位换算的次数
//   - 历史指标: 监控历史记录数量和写入失败
//   - 接入指标: 限流和实时推送连接
type Metrics struct {
	// ========== 计算相关指标 ==========

	// CalculationsTotal 计算总次数计数器
	// 标签: module, status (success/error)
	CalculationsTotal *prometheus.CounterVec

	// CalculationDuration 计算耗时直方图（单位：毫秒）
	// 标签: module
	CalculationDuration *prometheus.HistogramVec

	// CalculationErrors 计算错误计数器，按错误类型分类
	// 标签: module, error_type
	CalculationErrors *prometheus.CounterVec

	// ConversionsTotal 单位换算次数计数器
	// 标签: category, status
	ConversionsTotal *prometheus.CounterVec

	// ========== 历史记录相关指标 ==========

	// HistoryEntries 当前历史记录总数，由定时任务刷新
	HistoryEntries prometheus.Gauge

	// HistoryEntriesByModule 各模块的历史记录数
	// 标签: module
	HistoryEntriesByModule *prometheus.GaugeVec

	// HistoryWriteErrors 历史记录写入失败次数
	// 标签: driver
	HistoryWriteErrors *prometheus.CounterVec

	// HistoryTrimmed 保留策略删除的记录数
	HistoryTrimmed prometheus.Counter

	// ========== 接入相关指标 ==========

	// RateLimited 被限流拒绝的请求数
	RateLimited prometheus.Counter

	// StreamClients 当前订阅历史推送的 WebSocket 连接数
	StreamClients prometheus.Gauge

	// EventsPublished 事件发布次数
	// 标签: status (success/error)
	EventsPublished *prometheus.CounterVec
}

// NewMetrics 创建并注册到默认注册表的一组 Prometheus 指标。
// namespace 用于作为所有指标名前缀，便于在同一 Prometheus 中区分不同应用。
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith 创建指标并注册到指定的注册表，测试中可传入独立的 prometheus.NewRegistry()。
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CalculationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calculations_total",
				Help:      "Total number of calculations",
			},
			[]string{"module", "status"},
		),
		CalculationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "calculation_duration_ms",
				Help:      "Calculation duration in milliseconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 50},
			},
			[]string{"module"},
		),
		CalculationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calculation_errors_total",
				Help:      "Total number of calculation errors",
			},
			[]string{"module", "error_type"},
		),
		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Total number of unit conversions",
			},
			[]string{"category", "status"},
		),
		HistoryEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "history_entries",
				Help:      "Number of entries in the calculation history",
			},
		),
		HistoryEntriesByModule: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "history_entries_by_module",
				Help:      "Number of history entries per module",
			},
			[]string{"module"},
		),
		HistoryWriteErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_write_errors_total",
				Help:      "Total number of failed history writes",
			},
			[]string{"driver"},
		),
		HistoryTrimmed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_trimmed_total",
				Help:      "Total number of history entries removed by retention",
			},
		),
		RateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),
		StreamClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_clients",
				Help:      "Number of connected history stream clients",
			},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Total number of published calculation events",
			},
			[]string{"status"},
		),
	}
}

// RecordCalculation 记录一次计算的统计信息。
// durationMs 为计算耗时（毫秒），errorType 为空表示计算成功。
func (m *Metrics) RecordCalculation(module string, durationMs float64, errorType string) {
	status := "success"
	if errorType != "" {
		status = "error"
		m.CalculationErrors.WithLabelValues(module, errorType).Inc()
	}
	m.CalculationsTotal.WithLabelValues(module, status).Inc()
	m.CalculationDuration.WithLabelValues(module).Observe(durationMs)
}

// RecordConversion 记录一次单位换算。
func (m *Metrics) RecordConversion(category string, success bool) {
	m.ConversionsTotal.WithLabelValues(category, boolStatus(success)).Inc()
}

// RecordHistoryWriteError 记录一次历史写入失败。
func (m *Metrics) RecordHistoryWriteError(driver string) {
	m.HistoryWriteErrors.WithLabelValues(driver).Inc()
}

// UpdateHistoryStats 更新历史记录数量指标。
func (m *Metrics) UpdateHistoryStats(total int, byModule map[string]int) {
	m.HistoryEntries.Set(float64(total))
	m.HistoryEntriesByModule.Reset()
	for module, n := range byModule {
		m.HistoryEntriesByModule.WithLabelValues(module).Set(float64(n))
	}
}

// RecordTrim 记录保留策略删除的记录数。
func (m *Metrics) RecordTrim(removed int) {
	if removed > 0 {
		m.HistoryTrimmed.Add(float64(removed))
	}
}

// RecordEventPublish 记录一次事件发布结果。
func (m *Metrics) RecordEventPublish(success bool) {
	m.EventsPublished.WithLabelValues(boolStatus(success)).Inc()
}

func boolStatus(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
