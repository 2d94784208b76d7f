package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/config"
	"github.com/oriys/physlab/internal/domain"
)

// DefaultRedisKey Redis 列表的默认键名
const DefaultRedisKey = "physlab:history"

// RedisStore 将历史记录保存在一个 Redis 列表中，每个元素是一条记录的 JSON。
// 新记录通过 RPUSH 追加到尾部，因此列表天然按时间排序。
type RedisStore struct {
	client *redis.Client
	key    string
	logger *logrus.Logger
}

// NewRedisStore 连接 Redis 并返回存储实例。
func NewRedisStore(cfg config.RedisConfig, logger *logrus.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping redis: %v", domain.ErrStorageConnection, err)
	}
	return NewRedisStoreWithClient(client, cfg.Key, logger), nil
}

// NewRedisStoreWithClient 使用已有的 Redis 客户端创建存储实例。
func NewRedisStoreWithClient(client *redis.Client, key string, logger *logrus.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisStore{client: client, key: key, logger: logger}
}

// Append 追加一条历史记录
func (s *RedisStore) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("rpush history: %w", err)
	}
	return nil
}

// List 按时间顺序返回历史记录
func (s *RedisStore) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.HistoryEntry, error) {
	// 无模块过滤时直接用 LRANGE 的负索引只取最近的 N 条
	start := int64(0)
	if filter.Module == "" && filter.Limit > 0 {
		start = -int64(filter.Limit)
	}
	entries, err := s.load(ctx, start)
	if err != nil {
		return nil, err
	}
	return applyFilter(entries, filter), nil
}

// Count 返回记录总数
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen history: %w", err)
	}
	return int(n), nil
}

// CountByModule 返回各模块的记录数
func (s *RedisStore) CountByModule(ctx context.Context) (map[string]int, error) {
	entries, err := s.load(ctx, 0)
	if err != nil {
		return nil, err
	}
	return countModules(entries), nil
}

// Clear 删除整个列表
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("del history: %w", err)
	}
	return nil
}

// Trim 只保留最近的 keep 条记录
func (s *RedisStore) Trim(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	pipe := s.client.TxPipeline()
	lenCmd := pipe.LLen(ctx, s.key)
	pipe.LTrim(ctx, s.key, -int64(keep), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}
	removed := int(lenCmd.Val()) - keep
	if removed < 0 {
		removed = 0
	}
	return removed, nil
}

// Ping 检查 Redis 连接
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageConnection, err)
	}
	return nil
}

// Close 关闭 Redis 客户端
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// load 读取 [start, -1] 范围内的记录，无法解析的元素会被跳过并记录警告
func (s *RedisStore) load(ctx context.Context, start int64) ([]*domain.HistoryEntry, error) {
	raw, err := s.client.LRange(ctx, s.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange history: %w", err)
	}
	entries := make([]*domain.HistoryEntry, 0, len(raw))
	for i, item := range raw {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			s.logger.WithError(err).WithField("index", i).Warn("Skipping corrupt history entry")
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
