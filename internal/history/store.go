// Package history 提供计算历史记录的持久化存储。
// 历史记录只追加不修改，支持 JSON 文件、内存、SQLite、PostgreSQL 和 Redis 五种后端，
// 由配置中的 history.driver 选择具体实现。
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/oriys/physlab/internal/config"
	"github.com/oriys/physlab/internal/domain"
	"github.com/sirupsen/logrus"
)

// Store 定义了历史记录存储的接口。
// 所有实现都必须是并发安全的。
type Store interface {
	// Append 追加一条历史记录
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	// List 按时间顺序返回历史记录，Limit 保留最近的 N 条
	List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.HistoryEntry, error)
	// Count 返回记录总数
	Count(ctx context.Context) (int, error)
	// CountByModule 返回各模块的记录数
	CountByModule(ctx context.Context) (map[string]int, error)
	// Clear 清空全部记录
	Clear(ctx context.Context) error
	// Trim 只保留最近的 keep 条记录，返回删除的条数；keep <= 0 时不做任何处理
	Trim(ctx context.Context, keep int) (int, error)
	// Ping 检查后端是否可用
	Ping(ctx context.Context) error
	// Close 释放后端资源
	Close() error
}

// Open 根据配置创建对应的历史记录存储。
//
// 参数:
//   - cfg: 应用配置
//   - logger: 日志记录器
//
// 返回:
//   - Store: 历史记录存储
//   - error: 驱动不支持或连接失败时返回错误
func Open(cfg *config.Config, logger *logrus.Logger) (Store, error) {
	switch cfg.History.Driver {
	case config.DriverFile, "":
		return NewFileStore(cfg.History.Path, logger)
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite:
		return NewSQLiteStore(cfg.Storage.SQLite.Path)
	case config.DriverPostgres:
		return NewPostgresStore(cfg.Storage.Postgres)
	case config.DriverRedis:
		return NewRedisStore(cfg.Storage.Redis, logger)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedDriver, cfg.History.Driver)
	}
}

// Stats 汇总存储中的记录统计信息。
func Stats(ctx context.Context, store Store) (*domain.HistoryStats, error) {
	byModule, err := store.CountByModule(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range byModule {
		total += n
	}
	return &domain.HistoryStats{Total: total, ByModule: byModule}, nil
}

// applyFilter 在内存中对按时间排序的记录应用过滤条件。
// 模块名比较忽略大小写，Limit 保留末尾（最近）的记录。
func applyFilter(entries []*domain.HistoryEntry, filter domain.HistoryFilter) []*domain.HistoryEntry {
	out := entries
	if module := strings.TrimSpace(filter.Module); module != "" {
		out = make([]*domain.HistoryEntry, 0, len(entries))
		for _, e := range entries {
			if strings.EqualFold(e.Module, module) {
				out = append(out, e)
			}
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	result := make([]*domain.HistoryEntry, len(out))
	copy(result, out)
	return result
}

// countModules 统计各模块的记录数
func countModules(entries []*domain.HistoryEntry) map[string]int {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Module]++
	}
	return counts
}
