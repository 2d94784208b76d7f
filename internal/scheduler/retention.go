package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/history"
	"github.com/oriys/physlab/internal/metrics"
)

// 内置任务名称
const (
	JobRetention    = "history-retention"
	JobHistoryStats = "history-stats"
)

// jobTimeout 单次任务执行的超时时间
const jobTimeout = 30 * time.Second

// HistoryJobs 封装与历史记录相关的后台任务
type HistoryJobs struct {
	store      history.Store
	maxEntries int
	metrics    *metrics.Metrics
	logger     *logrus.Logger
}

// NewHistoryJobs 创建历史记录任务集合，metrics 可以为 nil。
func NewHistoryJobs(store history.Store, maxEntries int, m *metrics.Metrics, logger *logrus.Logger) *HistoryJobs {
	return &HistoryJobs{store: store, maxEntries: maxEntries, metrics: m, logger: logger}
}

// Register 将保留策略和指标刷新任务注册到 CronManager。
// maxEntries 为 0 时不注册保留策略；未启用指标时不注册刷新任务。
func (j *HistoryJobs) Register(cm *CronManager, retentionSpec string) error {
	if j.maxEntries > 0 {
		if err := cm.AddJob(JobRetention, retentionSpec, func() { j.Trim(context.Background()) }); err != nil {
			return err
		}
	}
	if j.metrics != nil {
		if err := cm.AddJob(JobHistoryStats, "@every 1m", func() { j.RefreshStats(context.Background()) }); err != nil {
			return err
		}
	}
	return nil
}

// Trim 执行一次保留策略，只保留最近的 maxEntries 条记录，返回删除的条数
func (j *HistoryJobs) Trim(ctx context.Context) int {
	if j.maxEntries <= 0 {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	removed, err := j.store.Trim(ctx, j.maxEntries)
	if err != nil {
		j.logger.WithError(err).Error("Failed to trim history")
		return 0
	}
	if removed > 0 {
		j.logger.WithFields(logrus.Fields{
			"removed": removed,
			"keep":    j.maxEntries,
		}).Info("History trimmed")
	}
	if j.metrics != nil {
		j.metrics.RecordTrim(removed)
	}
	return removed
}

// RefreshStats 从存储读取记录数并更新历史指标
func (j *HistoryJobs) RefreshStats(ctx context.Context) {
	if j.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	stats, err := history.Stats(ctx, j.store)
	if err != nil {
		j.logger.WithError(err).Warn("Failed to refresh history stats")
		return
	}
	j.metrics.UpdateHistoryStats(stats.Total, stats.ByModule)
}
