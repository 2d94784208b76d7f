package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oriys/physlab/internal/domain"
	"github.com/sirupsen/logrus"
)

// DefaultFilePath 文件后端的默认路径
const DefaultFilePath = "data/history.json"

// FileStore 将全部历史记录保存为一个 JSON 数组文件。
// 每次写入都会重写整个文件：先写临时文件，再通过 rename 原子替换。
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *logrus.Logger
}

// NewFileStore 创建文件存储，文件不存在时会在首次写入时创建。
//
// 参数:
//   - path: JSON 文件路径，为空时使用 data/history.json
//   - logger: 日志记录器，可以为 nil
//
// 返回:
//   - *FileStore: 文件存储
//   - error: 无法创建父目录时返回错误
func NewFileStore(path string, logger *logrus.Logger) (*FileStore, error) {
	if path == "" {
		path = DefaultFilePath
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Path 返回历史文件路径
func (s *FileStore) Path() string {
	return s.path
}

// Append 追加一条历史记录
func (s *FileStore) Append(_ context.Context, entry *domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	return s.save(entries)
}

// List 按时间顺序返回历史记录
func (s *FileStore) List(_ context.Context, filter domain.HistoryFilter) ([]*domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	return applyFilter(entries, filter), nil
}

// Count 返回记录总数
func (s *FileStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// CountByModule 返回各模块的记录数
func (s *FileStore) CountByModule(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	return countModules(entries), nil
}

// Clear 将文件重置为空数组
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save([]*domain.HistoryEntry{})
}

// Trim 只保留最近的 keep 条记录
func (s *FileStore) Trim(_ context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return 0, err
	}
	if len(entries) <= keep {
		return 0, nil
	}
	removed := len(entries) - keep
	if err := s.save(entries[removed:]); err != nil {
		return 0, err
	}
	return removed, nil
}

// Ping 检查历史文件所在目录是否可访问
func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageConnection, err)
	}
	return nil
}

// Close 文件存储无需释放资源
func (s *FileStore) Close() error { return nil }

// load 读取整个历史文件，调用方必须持有锁。
// 文件不存在或为空时视为空列表；内容损坏时将其重命名备份并从空列表重新开始。
func (s *FileStore) load() ([]*domain.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*domain.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []*domain.HistoryEntry{}, nil
	}

	var entries []*domain.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		if qerr := s.quarantine(err); qerr != nil {
			return nil, qerr
		}
		return []*domain.HistoryEntry{}, nil
	}

	// 过滤掉 JSON 数组中的 null 元素
	out := entries[:0]
	for _, e := range entries {
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// quarantine 将损坏的历史文件重命名为 <path>.corrupt-<unix> 并写入空数组
func (s *FileStore) quarantine(cause error) error {
	backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, backup); err != nil {
		return fmt.Errorf("%w: %v (backup failed: %v)", domain.ErrHistoryCorrupt, cause, err)
	}
	s.logger.WithFields(logrus.Fields{
		"path":   s.path,
		"backup": backup,
		"error":  cause.Error(),
	}).Warn("History file is corrupt, starting a new log")
	return s.save([]*domain.HistoryEntry{})
}

// save 以 2 空格缩进原子写入全部记录，调用方必须持有锁
func (s *FileStore) save(entries []*domain.HistoryEntry) error {
	if entries == nil {
		entries = []*domain.HistoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// ensureDir 创建文件所在的父目录
func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %v", domain.ErrStorageConnection, path, err)
	}
	return nil
}
