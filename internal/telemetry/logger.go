package telemetry

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/oriys/physlab/internal/config"
)

// NewLogger 按日志配置创建 logrus 记录器。
// format 为 text 时使用文本格式，其余情况使用 JSON；无法识别的级别回退为 info。
func NewLogger(cfg config.LoggingConfig, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stderr
	}
	logger := logrus.New()
	logger.SetOutput(out)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// LogrusHook 将日志条目上下文中的 trace_id 和 span_id 注入日志字段。
//
// 使用示例：
//
//	logger.AddHook(telemetry.NewLogrusHook())
//	logger.WithContext(r.Context()).Info("solved")
type LogrusHook struct{}

// NewLogrusHook 创建 LogrusHook
func NewLogrusHook() *LogrusHook {
	return &LogrusHook{}
}

// Levels 在所有级别触发
func (h *LogrusHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire 条目没有上下文或上下文中没有有效 Span 时不做处理
func (h *LogrusHook) Fire(entry *logrus.Entry) error {
	if entry.Context == nil {
		return nil
	}
	sc := trace.SpanFromContext(entry.Context).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	entry.Data["trace_id"] = sc.TraceID().String()
	entry.Data["span_id"] = sc.SpanID().String()
	if sc.IsSampled() {
		entry.Data["trace_sampled"] = true
	}
	return nil
}
