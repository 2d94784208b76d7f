package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig 在临时目录中写入配置文件并返回其路径
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoad_Defaults 测试空配置文件会被填充默认值
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.Server.HTTPPort)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.History.Driver != DriverFile {
		t.Errorf("History.Driver = %q, want %q", cfg.History.Driver, DriverFile)
	}
	if cfg.History.Path != "data/history.json" {
		t.Errorf("History.Path = %q", cfg.History.Path)
	}
	if cfg.Physics.Gravity != 9.8 {
		t.Errorf("Gravity = %v, want 9.8", cfg.Physics.Gravity)
	}
	if cfg.Physics.CoulombConstant != 8.99e9 {
		t.Errorf("CoulombConstant = %v, want 8.99e9", cfg.Physics.CoulombConstant)
	}
	if cfg.Auth.APIKeyHeader != "X-API-Key" {
		t.Errorf("APIKeyHeader = %q", cfg.Auth.APIKeyHeader)
	}
}

// TestLoad_Values 测试配置文件中的值会覆盖默认值
func TestLoad_Values(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  http_port: 9000
history:
  driver: sqlite
  max_entries: 500
physics:
  gravity: 9.81
rate_limit:
  enabled: true
  requests: 10
  window: 30s
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPPort != 9000 {
		t.Errorf("HTTPPort = %d, want 9000", cfg.Server.HTTPPort)
	}
	if cfg.History.Driver != DriverSQLite || cfg.History.MaxEntries != 500 {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Physics.Gravity != 9.81 {
		t.Errorf("Gravity = %v, want 9.81", cfg.Physics.Gravity)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Requests != 10 || cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
}

// TestLoad_Invalid 测试非法配置会被拒绝
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		// 未知的存储驱动
		{name: "unknown driver", content: "history:\n  driver: mongo\n"},
		// 负数的保留条数
		{name: "negative max entries", content: "history:\n  max_entries: -1\n"},
		// 启用认证但没有签名密钥
		{name: "auth without secret", content: "auth:\n  enabled: true\n"},
		// 非法的重力加速度
		{name: "negative gravity", content: "physics:\n  gravity: -1\n"},
		// 无法解析的 YAML
		{name: "broken yaml", content: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() expected error, got nil")
			}
		})
	}
}

// TestLoad_MissingFile 测试配置文件不存在时返回错误
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

// TestApplyEnvOverrides 测试敏感配置可以通过环境变量和 _FILE 文件覆盖
func TestApplyEnvOverrides(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "jwt")
	if err := os.WriteFile(secretFile, []byte("from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PHYSLAB_AUTH_JWT_SECRET", "from-env")
	t.Setenv("PHYSLAB_AUTH_JWT_SECRET_FILE", secretFile)
	t.Setenv("PHYSLAB_REDIS_PASSWORD", "redis-secret")
	t.Setenv("PHYSLAB_HISTORY_DRIVER", "redis")

	cfg := Default()

	// _FILE 方式优先级更高
	if cfg.Auth.JWTSecret != "from-file" {
		t.Errorf("JWTSecret = %q, want from-file", cfg.Auth.JWTSecret)
	}
	if cfg.Storage.Redis.Password != "redis-secret" {
		t.Errorf("Redis.Password = %q", cfg.Storage.Redis.Password)
	}
	if cfg.History.Driver != DriverRedis {
		t.Errorf("History.Driver = %q, want redis", cfg.History.Driver)
	}
}

// TestPostgresDSN 测试连接字符串的拼接
func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "lab", Password: "pw", Database: "physlab", SSLMode: "disable"}
	want := "host=db port=5432 user=lab password=pw dbname=physlab sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
