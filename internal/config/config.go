package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 应用全局配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Task      TaskConfig      `mapstructure:"task"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"` // development | production
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SwaggerEnabled  bool          `mapstructure:"swagger_enabled"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent | error | warn | info
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// FeedConfig 价目表导入配置
type FeedConfig struct {
	DataDir        string        `mapstructure:"data_dir"`        // 本地价目表目录
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`   // URL 拉取超时
	MaxSize        int64         `mapstructure:"max_size"`        // 单个价目表最大字节数
	ImportCooldown time.Duration `mapstructure:"import_cooldown"` // 同一店铺两次导入的最小间隔
	Storage        StorageConfig `mapstructure:"storage"`
	Archive        bool          `mapstructure:"archive"` // 是否归档通过 URL 拉取的价目表
}

// StorageConfig 价目表文件存储
type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // local | s3
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	BasePath  string `mapstructure:"base_path"`
}

// NotifyConfig 通知投递配置
type NotifyConfig struct {
	Driver    string   `mapstructure:"driver"` // log | kafka
	Brokers   []string `mapstructure:"brokers"`
	Topic     string   `mapstructure:"topic"`
	Workers   int      `mapstructure:"workers"`
	QueueSize int      `mapstructure:"queue_size"`
}

type PaymentConfig struct {
	CallbackSecret string `mapstructure:"callback_secret"`
}

// TaskConfig 定时任务配置
type TaskConfig struct {
	FeedRefreshEnabled     bool   `mapstructure:"feed_refresh_enabled"`
	FeedRefreshSpec        string `mapstructure:"feed_refresh_spec"`
	FeedRefreshConcurrency int    `mapstructure:"feed_refresh_concurrency"`
	// 导入记录保留期，0 表示不清理
	ImportRetention time.Duration `mapstructure:"import_retention"`
}

type RateLimitConfig struct {
	AuthRPS   float64 `mapstructure:"auth_rps"`
	AuthBurst int     `mapstructure:"auth_burst"`
}

// ==================== 加载 ====================

// Load 加载配置
// 优先级: 环境变量 (MARKET_ 前缀) > config.yaml > 内置默认值
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/etc/marketplace"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 没有配置文件时使用默认值和环境变量
	}

	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "marketplace")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.swagger_enabled", true)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "marketplace")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("jwt.secret", "marketplace-secret-key-change-in-production")
	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)
	v.SetDefault("jwt.issuer", "marketplace")

	v.SetDefault("feed.data_dir", "./data")
	v.SetDefault("feed.fetch_timeout", 20*time.Second)
	v.SetDefault("feed.max_size", 10<<20)
	v.SetDefault("feed.import_cooldown", time.Minute)
	v.SetDefault("feed.storage.provider", "local")
	v.SetDefault("feed.storage.base_path", "feeds")
	v.SetDefault("feed.archive", false)

	v.SetDefault("notify.driver", "log")
	v.SetDefault("notify.brokers", []string{})
	v.SetDefault("notify.topic", "marketplace.notifications")
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.queue_size", 256)

	v.SetDefault("payment.callback_secret", "")

	v.SetDefault("task.feed_refresh_enabled", false)
	v.SetDefault("task.feed_refresh_spec", "0 0 */6 * * *")
	v.SetDefault("task.feed_refresh_concurrency", 4)
	v.SetDefault("task.import_retention", 90*24*time.Hour)

	v.SetDefault("rate_limit.auth_rps", 1.0)
	v.SetDefault("rate_limit.auth_burst", 5)
}

// validate 校验配置
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns 必须为正数")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) 不能超过 database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Feed.FetchTimeout <= 0 {
		return fmt.Errorf("feed.fetch_timeout 必须为正数")
	}
	switch c.Feed.Storage.Provider {
	case "local", "s3":
	default:
		return fmt.Errorf("不支持的存储提供者: %s", c.Feed.Storage.Provider)
	}
	switch c.Notify.Driver {
	case "log":
	case "kafka":
		if len(c.Notify.Brokers) == 0 {
			return fmt.Errorf("notify.driver=kafka 时必须配置 notify.brokers")
		}
	default:
		return fmt.Errorf("不支持的通知驱动: %s", c.Notify.Driver)
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("生产环境 jwt.secret 至少 32 位")
		}
		if c.Payment.CallbackSecret == "" {
			return fmt.Errorf("生产环境必须配置 payment.callback_secret")
		}
	}
	return nil
}

// DSN 生成 PostgreSQL 连接串
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
