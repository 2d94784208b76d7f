package history

import (
	"context"
	"sync"

	"github.com/oriys/physlab/internal/domain"
)

// MemoryStore 是基于内存切片的历史记录存储，进程退出后数据丢失。
// 主要用于测试和无状态部署。
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*domain.HistoryEntry
}

// NewMemoryStore 创建一个空的内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append 追加一条历史记录
func (s *MemoryStore) Append(_ context.Context, entry *domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List 按时间顺序返回历史记录
func (s *MemoryStore) List(_ context.Context, filter domain.HistoryFilter) ([]*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return applyFilter(s.entries, filter), nil
}

// Count 返回记录总数
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// CountByModule 返回各模块的记录数
func (s *MemoryStore) CountByModule(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countModules(s.entries), nil
}

// Clear 清空全部记录
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// Trim 只保留最近的 keep 条记录
func (s *MemoryStore) Trim(_ context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep <= 0 || len(s.entries) <= keep {
		return 0, nil
	}
	removed := len(s.entries) - keep
	s.entries = append([]*domain.HistoryEntry(nil), s.entries[removed:]...)
	return removed, nil
}

// Ping 内存存储始终可用
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close 内存存储无需释放资源
func (s *MemoryStore) Close() error { return nil }
