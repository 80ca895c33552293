package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix 环境变量前缀，如 UNISCHED_AUTH_JWT_SECRET
const envPrefix = "UNISCHED"

// Config 后端全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
// Driver 为 postgres（默认）或 sqlite；sqlite 时只使用 Path
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（Token 黑名单、登录限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
	MasterUsernames []string      `mapstructure:"master_usernames"` // 创建档案时标记为管理员的用户名
	SignInLimit     int           `mapstructure:"signin_limit"`     // 每个 IP 在窗口内允许的登录次数
	SignInWindow    time.Duration `mapstructure:"signin_window"`
}

// IsMaster 用户名是否在管理员名单中（大小写不敏感）
func (c *AuthConfig) IsMaster(username string) bool {
	for _, m := range c.MasterUsernames {
		if strings.EqualFold(strings.TrimSpace(m), username) {
			return true
		}
	}
	return false
}

// ScheduleConfig 课表渲染配置
type ScheduleConfig struct {
	Collation string `mapstructure:"collation"` // 课程分组排序语言（BCP 47）
	Timezone  string `mapstructure:"timezone"`  // ICS 导出默认时区
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从 .env、配置文件与环境变量加载后端配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	loadDotEnv()
	v := newViper("config", path)

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 5<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.path", "data/uni-schedule.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "uni_schedule")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Athens")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "720h")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.master_usernames", []string{})
	v.SetDefault("auth.signin_limit", 10)
	v.SetDefault("auth.signin_window", "1m")

	v.SetDefault("schedule.collation", "el")
	v.SetDefault("schedule.timezone", "Europe/Athens")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	// 逗号分隔的环境变量形式：UNISCHED_AUTH_MASTER_USERNAMES=maria,nikos
	if len(cfg.Auth.MasterUsernames) == 1 && strings.Contains(cfg.Auth.MasterUsernames[0], ",") {
		cfg.Auth.MasterUsernames = strings.Split(cfg.Auth.MasterUsernames[0], ",")
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 必须为 postgres 或 sqlite")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: schedule.timezone 无效: %w", err)
	}
	return nil
}

// ── 客户端（命令行）配置 ──

// ClientConfig 本地客户端配置
type ClientConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	DataPath   string        `mapstructure:"data_path"` // 本地存储文件（bbolt）
	Collation  string        `mapstructure:"collation"`
	Timezone   string        `mapstructure:"timezone"`
	Log        LogConfig     `mapstructure:"log"`
}

// LoadClient 加载命令行客户端配置
func LoadClient(path string) (*ClientConfig, error) {
	loadDotEnv()
	v := newViper("weekgrid", path)

	dataPath := "weekgrid.db"
	if dir, err := os.UserConfigDir(); err == nil {
		dataPath = filepath.Join(dir, "weekgrid", "weekgrid.db")
	}

	v.SetDefault("api_base_url", "http://localhost:8080")
	v.SetDefault("timeout", "15s")
	v.SetDefault("data_path", dataPath)
	v.SetDefault("collation", "el")
	v.SetDefault("timezone", "Europe/Athens")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("配置校验失败: timeout 必须大于 0")
	}
	return &cfg, nil
}

// ── 辅助函数 ──

// loadDotEnv 读取当前目录下的 .env（不存在时忽略），已存在的环境变量不会被覆盖
func loadDotEnv() {
	_ = godotenv.Load()
}

func newViper(name, path string) *viper.Viper {
	v := viper.New()

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}
	return nil
}
