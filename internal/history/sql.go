package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/oriys/physlab/internal/config"
	"github.com/oriys/physlab/internal/domain"
)

// sqliteSchema SQLite 建表语句
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS history (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	module TEXT NOT NULL,
	inputs TEXT NOT NULL,
	outputs TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_module ON history(module);
`

// postgresSchema PostgreSQL 建表语句
const postgresSchema = `
CREATE TABLE IF NOT EXISTS history (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	module TEXT NOT NULL,
	inputs TEXT NOT NULL,
	outputs TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_module ON history(module);
`

// SQLStore 是基于 sqlx 的历史记录存储，SQLite 和 PostgreSQL 共用同一套查询。
// 记录按自增序号 seq 排序，输入和输出以 JSON 文本保存。
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// historyRow 对应 history 表的一行
type historyRow struct {
	Seq        int64  `db:"seq"`
	ID         string `db:"id"`
	RecordedAt string `db:"recorded_at"`
	Module     string `db:"module"`
	Inputs     string `db:"inputs"`
	Outputs    string `db:"outputs"`
}

// moduleCount 按模块分组计数的结果行
type moduleCount struct {
	Module string `db:"module"`
	N      int    `db:"n"`
}

// NewSQLiteStore 打开（或创建）SQLite 数据库并完成建表。
func NewSQLiteStore(path string) (*SQLStore, error) {
	if path == "" {
		path = "data/history.db"
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", domain.ErrStorageConnection, err)
	}
	// SQLite 只允许单个写连接
	db.SetMaxOpenConns(1)
	return newSQLStore(db, "sqlite", sqliteSchema)
}

// sqliteDSN 通过 modernc 驱动的 _pragma 参数开启 WAL 和忙等待
func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// NewPostgresStore 连接 PostgreSQL 并完成建表。
func NewPostgresStore(cfg config.PostgresConfig) (*SQLStore, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", domain.ErrStorageConnection, err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections / 2)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", domain.ErrStorageConnection, err)
	}
	return newSQLStore(db, "postgres", postgresSchema)
}

func newSQLStore(db *sqlx.DB, driver, schema string) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", driver, err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// Driver 返回底层数据库驱动名
func (s *SQLStore) Driver() string {
	return s.driver
}

// Append 追加一条历史记录
func (s *SQLStore) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	inputs, err := json.Marshal(entry.Inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}
	outputs, err := json.Marshal(entry.Outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}
	query := s.db.Rebind(`INSERT INTO history (id, recorded_at, module, inputs, outputs) VALUES (?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query, entry.ID, entry.Timestamp, entry.Module, string(inputs), string(outputs))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// List 按时间顺序返回历史记录
func (s *SQLStore) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.HistoryEntry, error) {
	query := `SELECT seq, id, recorded_at, module, inputs, outputs FROM history`
	var args []any
	if filter.Module != "" {
		query += ` WHERE LOWER(module) = LOWER(?)`
		args = append(args, filter.Module)
	}
	// 先倒序取最近的 N 条，再翻转为时间顺序
	query += ` ORDER BY seq DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []historyRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]*domain.HistoryEntry, len(rows))
	for i, row := range rows {
		entry, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		entries[len(rows)-1-i] = entry
	}
	return entries, nil
}

// Count 返回记录总数
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM history`); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// CountByModule 返回各模块的记录数
func (s *SQLStore) CountByModule(ctx context.Context) (map[string]int, error) {
	var rows []moduleCount
	if err := s.db.SelectContext(ctx, &rows, `SELECT module, COUNT(*) AS n FROM history GROUP BY module`); err != nil {
		return nil, fmt.Errorf("count history by module: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Module] = row.N
	}
	return counts, nil
}

// Clear 清空全部记录
func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Trim 只保留最近的 keep 条记录
func (s *SQLStore) Trim(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	query := s.db.Rebind(`DELETE FROM history WHERE seq NOT IN (SELECT seq FROM history ORDER BY seq DESC LIMIT ?)`)
	res, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Ping 检查数据库连接
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageConnection, err)
	}
	return nil
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (r historyRow) toEntry() (*domain.HistoryEntry, error) {
	entry := &domain.HistoryEntry{
		ID:        r.ID,
		Timestamp: r.RecordedAt,
		Module:    r.Module,
	}
	if err := json.Unmarshal([]byte(r.Inputs), &entry.Inputs); err != nil {
		return nil, fmt.Errorf("%w: row %d inputs: %v", domain.ErrHistoryCorrupt, r.Seq, err)
	}
	if err := json.Unmarshal([]byte(r.Outputs), &entry.Outputs); err != nil {
		return nil, fmt.Errorf("%w: row %d outputs: %v", domain.ErrHistoryCorrupt, r.Seq, err)
	}
	return entry, nil
}
