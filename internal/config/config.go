// Package config 提供了物理计算服务的配置管理功能。
// 该包负责从 YAML 配置文件加载配置，并支持通过环境变量覆盖敏感配置项（如密码和密钥）。
// 配置包含了服务器、历史记录、存储、事件、认证、日志、指标、遥测、限流和物理常量等设置。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 历史记录存储驱动名称
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config 是应用程序的主配置结构体，包含所有子系统的配置。
// 该结构体通过 YAML 标签与配置文件进行映射。
type Config struct {
	// Server 服务器配置，包括 HTTP 端口、指标端口等
	Server ServerConfig `yaml:"server"`
	// History 计算历史记录配置
	History HistoryConfig `yaml:"history"`
	// Storage 存储配置，包括 SQLite、PostgreSQL 和 Redis 连接信息
	Storage StorageConfig `yaml:"storage"`
	// Events 事件配置，包括 NATS 消息队列连接信息
	Events EventsConfig `yaml:"events"`
	// Auth 认证配置，包括 JWT 和 API Key 相关设置
	Auth AuthConfig `yaml:"auth"`
	// Logging 日志配置，包括日志级别和格式
	Logging LoggingConfig `yaml:"logging"`
	// Metrics 指标配置，用于 Prometheus 监控
	Metrics MetricsConfig `yaml:"metrics"`
	// Telemetry 遥测配置，用于分布式追踪
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// RateLimit 计算接口的限流配置
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// Physics 物理常量配置
	Physics PhysicsConfig `yaml:"physics"`
}

// ServerConfig 服务器配置结构体。
// 定义了服务端口和超时设置。
type ServerConfig struct {
	// HTTPPort HTTP API 服务端口
	// 默认值：8080
	HTTPPort int `yaml:"http_port"`
	// MetricsPort 指标服务端口，用于 Prometheus 指标暴露
	// 与 HTTPPort 相同时指标挂载在主路由上
	// 默认值：9090
	MetricsPort int `yaml:"metrics_port"`
	// RequestTimeout 单个请求的处理超时时间
	// 默认值：60 秒
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// ShutdownTimeout 优雅关闭超时时间
	// 默认值：30 秒
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HistoryConfig 历史记录配置结构体。
// 每次成功的计算都会追加一条历史记录。
type HistoryConfig struct {
	// Driver 存储驱动，可选值：file、sqlite、postgres、redis、memory
	// 默认值：file
	Driver string `yaml:"driver"`
	// Path file 驱动使用的 JSON 文件路径
	// 默认值：data/history.json
	Path string `yaml:"path"`
	// MaxEntries 保留的最大记录数，0 表示不限制
	MaxEntries int `yaml:"max_entries"`
	// RetentionSchedule 保留策略执行的 cron 表达式（支持秒字段）
	// 默认值：@every 1h
	RetentionSchedule string `yaml:"retention_schedule"`
}

// StorageConfig 存储配置结构体。
// 包含各种数据存储后端的配置。
type StorageConfig struct {
	// SQLite SQLite 数据库配置
	SQLite SQLiteConfig `yaml:"sqlite"`
	// Postgres PostgreSQL 数据库配置
	Postgres PostgresConfig `yaml:"postgres"`
	// Redis Redis 配置
	Redis RedisConfig `yaml:"redis"`
}

// SQLiteConfig SQLite 数据库配置结构体。
type SQLiteConfig struct {
	// Path 数据库文件路径
	// 默认值：data/history.db
	Path string `yaml:"path"`
}

// PostgresConfig PostgreSQL 数据库配置结构体。
// 定义了数据库连接的相关参数。
type PostgresConfig struct {
	// Host 数据库主机地址
	Host string `yaml:"host"`
	// Port 数据库端口号
	Port int `yaml:"port"`
	// Database 数据库名称
	Database string `yaml:"database"`
	// User 数据库用户名
	User string `yaml:"user"`
	// Password 数据库密码，可通过环境变量 PHYSLAB_POSTGRES_PASSWORD 或
	// PHYSLAB_POSTGRES_PASSWORD_FILE（文件路径）覆盖
	Password string `yaml:"password"`
	// SSLMode SSL 模式
	// 默认值：disable
	SSLMode string `yaml:"ssl_mode"`
	// MaxConnections 最大连接数
	MaxConnections int `yaml:"max_connections"`
}

// DSN 返回 lib/pq 使用的连接字符串。
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// RedisConfig Redis 配置结构体。
// 定义了 Redis 连接的相关参数。
type RedisConfig struct {
	// Address Redis 服务器地址，格式为 "host:port"
	Address string `yaml:"address"`
	// Password Redis 密码，可通过环境变量 PHYSLAB_REDIS_PASSWORD 或
	// PHYSLAB_REDIS_PASSWORD_FILE（文件路径）覆盖
	Password string `yaml:"password"`
	// DB Redis 数据库编号（0-15）
	DB int `yaml:"db"`
	// Key 历史记录列表使用的键名
	// 默认值：physlab:history
	Key string `yaml:"key"`
}

// EventsConfig 事件配置结构体。
// 定义了事件消息队列的连接信息。
type EventsConfig struct {
	// NatsURL NATS 消息服务器 URL，如 "nats://localhost:4222"
	// 为空时不发布事件
	NatsURL string `yaml:"nats_url"`
}

// AuthConfig 认证配置结构体。
// 定义了 JWT 和 API Key 认证相关的设置。
type AuthConfig struct {
	// Enabled 是否启用认证，启用后清空历史等破坏性操作需要凭证
	Enabled bool `yaml:"enabled"`
	// JWTSecret JWT 签名密钥，可通过环境变量 PHYSLAB_AUTH_JWT_SECRET 或
	// PHYSLAB_AUTH_JWT_SECRET_FILE（文件路径）覆盖
	JWTSecret string `yaml:"jwt_secret"`
	// JWTExpiration JWT 令牌过期时间
	// 默认值：24 小时
	JWTExpiration time.Duration `yaml:"jwt_expiration"`
	// APIKeyHeader API Key 请求头名称
	// 默认值：X-API-Key
	APIKeyHeader string `yaml:"api_key_header"`
	// APIKeys 允许的 API Key 列表，每项包含名称、SHA-256 哈希和角色
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig 单个 API Key 的配置。
type APIKeyConfig struct {
	// Name 密钥名称，作为认证后的用户标识
	Name string `yaml:"name"`
	// Hash 密钥的 SHA-256 十六进制哈希
	Hash string `yaml:"hash"`
	// Role 角色，可选值：admin、user
	Role string `yaml:"role"`
}

// LoggingConfig 日志配置结构体。
// 定义了日志输出的级别和格式。
type LoggingConfig struct {
	// Level 日志级别，可选值：debug、info、warn、error
	Level string `yaml:"level"`
	// Format 日志格式，可选值：json、text
	Format string `yaml:"format"`
}

// MetricsConfig 指标配置结构体。
// 定义了 Prometheus 指标收集的相关设置。
type MetricsConfig struct {
	// Enabled 是否启用指标收集
	Enabled bool `yaml:"enabled"`
	// Namespace 指标命名空间前缀
	// 默认值：physlab
	Namespace string `yaml:"namespace"`
}

// TelemetryConfig 遥测配置结构体。
// 定义了分布式追踪的相关设置，支持 OpenTelemetry 协议。
type TelemetryConfig struct {
	// Enabled 是否启用遥测
	Enabled bool `yaml:"enabled"`
	// Endpoint OTLP 端点地址（如 "tempo:4317"）
	// 默认值：tempo:4317
	Endpoint string `yaml:"endpoint"`
	// ServiceName 服务名称，用于追踪标识
	// 默认值：physlab-server
	ServiceName string `yaml:"service_name"`
	// SampleRate 采样率，范围 0.0 到 1.0
	// 默认值：0.1（10% 采样）
	SampleRate float64 `yaml:"sample_rate"`
	// Environment 环境标识（如 production、staging、development）
	// 默认值：development
	Environment string `yaml:"environment"`
}

// RateLimitConfig 限流配置结构体。
// 按客户端 IP 在固定时间窗口内计数。
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool `yaml:"enabled"`
	// Requests 每个窗口允许的请求数
	// 默认值：120
	Requests int `yaml:"requests"`
	// Window 窗口长度
	// 默认值：1 分钟
	Window time.Duration `yaml:"window"`
}

// PhysicsConfig 物理常量配置结构体。
// 请求中未提供 g 或 k 时使用这里的值。
type PhysicsConfig struct {
	// Gravity 重力加速度（m/s²）
	// 默认值：9.8
	Gravity float64 `yaml:"gravity"`
	// CoulombConstant 库仑常量（N·m²/C²）
	// 默认值：8.99e9
	CoulombConstant float64 `yaml:"coulomb_constant"`
}

// Load 从指定路径加载配置文件。
// 该函数会读取 YAML 配置文件，应用默认值，并处理环境变量覆盖。
//
// 参数：
//   - path: 配置文件的路径
//
// 返回值：
//   - *Config: 加载并处理后的配置对象
//   - error: 如果读取、解析或校验失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回只包含默认值的配置，用于未指定配置文件的场景。
// 环境变量覆盖同样生效。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg
}

// Validate 校验配置的合法性。
func (c *Config) Validate() error {
	switch c.History.Driver {
	case DriverFile, DriverSQLite, DriverPostgres, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("unsupported history driver %q", c.History.Driver)
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	if c.Physics.Gravity <= 0 {
		return fmt.Errorf("physics.gravity must be positive")
	}
	return nil
}

// applyEnvOverrides 应用环境变量覆盖。
// 该方法允许通过环境变量覆盖敏感配置项，支持两种方式：
// 1. 直接设置环境变量（如 PHYSLAB_POSTGRES_PASSWORD）
// 2. 通过 _FILE 后缀指定包含密钥的文件路径（如 PHYSLAB_POSTGRES_PASSWORD_FILE）
// _FILE 方式优先级更高，适用于 Docker Secrets 等场景。
func (c *Config) applyEnvOverrides() {
	if v := readEnvOrFileAny(
		[]string{"PHYSLAB_POSTGRES_PASSWORD"},
		[]string{"PHYSLAB_POSTGRES_PASSWORD_FILE"},
	); v != "" {
		c.Storage.Postgres.Password = v
	}
	if v := readEnvOrFileAny(
		[]string{"PHYSLAB_REDIS_PASSWORD"},
		[]string{"PHYSLAB_REDIS_PASSWORD_FILE"},
	); v != "" {
		c.Storage.Redis.Password = v
	}
	if v := readEnvOrFileAny(
		[]string{"PHYSLAB_AUTH_JWT_SECRET"},
		[]string{"PHYSLAB_AUTH_JWT_SECRET_FILE"},
	); v != "" {
		c.Auth.JWTSecret = v
	}
	// 非敏感项，方便容器内切换存储后端
	if v := strings.TrimSpace(os.Getenv("PHYSLAB_HISTORY_DRIVER")); v != "" {
		c.History.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("PHYSLAB_HISTORY_PATH")); v != "" {
		c.History.Path = v
	}
}

// readEnvOrFileAny 从环境变量或文件读取配置值。
// 优先从 fileKeys 指定的文件路径读取，如果文件不存在或读取失败，
// 则从 envKeys 指定的环境变量读取。
//
// 参数：
//   - envKeys: 直接存储值的环境变量名（按优先级从高到低）
//   - fileKeys: 存储文件路径的环境变量名（按优先级从高到低）
//
// 返回值：
//   - string: 读取到的配置值，如果都未设置则返回空字符串
func readEnvOrFileAny(envKeys []string, fileKeys []string) string {
	for _, fileKey := range fileKeys {
		if filePath := strings.TrimSpace(os.Getenv(fileKey)); filePath != "" {
			if b, err := os.ReadFile(filePath); err == nil {
				return strings.TrimSpace(string(b))
			}
		}
	}

	for _, envKey := range envKeys {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			return v
		}
	}

	return ""
}

// applyDefaults 应用默认配置值。
// 该方法为未设置的配置项填充合理的默认值，确保应用可以正常运行。
func (c *Config) applyDefaults() {
	// HTTP 端口默认为 8080
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	// 指标端口默认为 9090
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	// 优雅关闭超时默认为 30 秒
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	// 历史记录默认写入本地 JSON 文件
	if c.History.Driver == "" {
		c.History.Driver = DriverFile
	}
	if c.History.Path == "" {
		c.History.Path = "data/history.json"
	}
	if c.History.RetentionSchedule == "" {
		c.History.RetentionSchedule = "@every 1h"
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "data/history.db"
	}
	if c.Storage.Postgres.Port == 0 {
		c.Storage.Postgres.Port = 5432
	}
	if c.Storage.Postgres.SSLMode == "" {
		c.Storage.Postgres.SSLMode = "disable"
	}
	if c.Storage.Postgres.MaxConnections == 0 {
		c.Storage.Postgres.MaxConnections = 10
	}
	if c.Storage.Redis.Key == "" {
		c.Storage.Redis.Key = "physlab:history"
	}
	// JWT 过期时间默认为 24 小时
	if c.Auth.JWTExpiration == 0 {
		c.Auth.JWTExpiration = 24 * time.Hour
	}
	// API Key 请求头默认为 X-API-Key
	if c.Auth.APIKeyHeader == "" {
		c.Auth.APIKeyHeader = "X-API-Key"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "physlab"
	}
	// 遥测服务名称默认为 physlab-server
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "physlab-server"
	}
	// OTLP 端点默认为 tempo:4317
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "tempo:4317"
	}
	// 采样率默认为 10%
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 0.1
	}
	// 环境标识默认为 development
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = "development"
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 120
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Physics.Gravity == 0 {
		c.Physics.Gravity = 9.8
	}
	if c.Physics.CoulombConstant == 0 {
		c.Physics.CoulombConstant = 8.99e9
	}
}
