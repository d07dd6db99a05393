package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、环境变量覆盖
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Order    OrderConfig    `mapstructure:"order"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	MQ       MQConfig       `mapstructure:"mq"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Limit    LimitConfig    `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN 生成MySQL连接字符串
// 格式：user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
// 注意：loc参数需要URL编码（Asia/Shanghai → Asia%2FShanghai）
func (d DatabaseConfig) DSN() string {
	loc := url.QueryEscape(d.Loc)
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpire  time.Duration `mapstructure:"access_token_expire"`
	RefreshTokenExpire time.Duration `mapstructure:"refresh_token_expire"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`  // debug | info | warn | error
	Format       string `mapstructure:"format"` // console | json
	Output       string `mapstructure:"output"` // stdout | stderr | /path/to/file
	EnableCaller bool   `mapstructure:"enable_caller"`
}

// AuthConfig 认证相关配置
type AuthConfig struct {
	// AdminEmails 使用这些邮箱注册的账号获得管理员角色
	AdminEmails []string `mapstructure:"admin_emails"`
	// BcryptCost 密码哈希强度，测试环境可以调低
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// IsAdminEmail 判断邮箱是否在管理员名单中（不区分大小写）
func (a AuthConfig) IsAdminEmail(email string) bool {
	for _, e := range a.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

// OrderConfig 订单相关配置
type OrderConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
	MaxItems        int           `mapstructure:"max_items"` // 单个订单最多的明细数
}

// PaymentConfig 支付回调配置
type PaymentConfig struct {
	WebhookEnabled bool          `mapstructure:"webhook_enabled"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	EventTTL       time.Duration `mapstructure:"event_ttl"` // 回调事件去重窗口
}

// MQConfig RabbitMQ配置
type MQConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	Exchange     string        `mapstructure:"exchange"`
	ExchangeType string        `mapstructure:"exchange_type"`
	Queue        string        `mapstructure:"queue"` // 通知进程消费的队列
	Breaker      BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 事件发布熔断器配置
type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`  // 半开状态允许的探测请求数
	Interval     time.Duration `mapstructure:"interval"`      // 关闭状态下计数清零的周期
	Timeout      time.Duration `mapstructure:"timeout"`       // 打开状态持续时间
	FailureRatio float64       `mapstructure:"failure_ratio"` // 触发熔断的失败率
	MinRequests  uint32        `mapstructure:"min_requests"`  // 计算失败率所需的最少请求数
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Exporter    string  `mapstructure:"exporter"` // otlp | stdout
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// GRPCConfig gRPC健康检查端口
type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

// LimitConfig 按客户端IP的令牌桶限流，保护登录和支付回调
type LimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`   // 每秒补充的令牌数
	Burst   int     `mapstructure:"burst"` // 桶容量
}

// Load 加载配置文件
// 支持：
// 1. 默认加载config/config.yaml
// 2. 通过环境变量BOOKSTORE_ENV指定环境（如config.prod.yaml）
// 3. 环境变量覆盖（如BOOKSTORE_DATABASE_PASSWORD）
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	if env := os.Getenv("BOOKSTORE_ENV"); env != "" {
		v.SetConfigName("config." + env)
	}

	return read(v)
}

// LoadFrom 从指定文件加载配置（测试和命令行 -config 参数使用）
func LoadFrom(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return read(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// 环境变量绑定：BOOKSTORE_DATABASE_PASSWORD → database.password
	v.SetEnvPrefix("BOOKSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults 默认值（配置文件缺省时生效）
// AutomaticEnv只对viper"知道"的键生效，所以需要覆盖的键都应有默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.port", 3306)
	v.SetDefault("database.password", "")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "Local")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	v.SetDefault("jwt.access_token_expire", 2*time.Hour)
	v.SetDefault("jwt.refresh_token_expire", 7*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("order.cache_ttl", 10*time.Minute)
	v.SetDefault("order.default_page_size", 20)
	v.SetDefault("order.max_page_size", 100)
	v.SetDefault("order.max_items", 50)

	v.SetDefault("payment.webhook_enabled", true)
	v.SetDefault("payment.webhook_secret", "")
	v.SetDefault("payment.event_ttl", 24*time.Hour)

	v.SetDefault("mq.enabled", false)
	v.SetDefault("mq.url", "")
	v.SetDefault("mq.exchange", "bookmall.events")
	v.SetDefault("mq.exchange_type", "topic")
	v.SetDefault("mq.queue", "bookmall.order.notification")
	v.SetDefault("mq.breaker.max_requests", 1)
	v.SetDefault("mq.breaker.interval", time.Minute)
	v.SetDefault("mq.breaker.timeout", 30*time.Second)
	v.SetDefault("mq.breaker.failure_ratio", 0.5)
	v.SetDefault("mq.breaker.min_requests", 5)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "bookmall-api")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.exporter", "otlp")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("grpc.port", 9090)

	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 10)
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	if cfg.GRPC.Port < 0 || cfg.GRPC.Port > 65535 {
		return fmt.Errorf("无效的gRPC端口: %d", cfg.GRPC.Port)
	}

	if cfg.JWT.Secret == "your-secret-key-change-in-production" && cfg.Server.Mode == "release" {
		return fmt.Errorf("生产环境必须修改JWT密钥")
	}

	if cfg.Payment.WebhookEnabled && cfg.Payment.WebhookSecret == "" {
		return fmt.Errorf("启用支付回调时必须配置payment.webhook_secret")
	}

	if cfg.Limit.Enabled && (cfg.Limit.RPS <= 0 || cfg.Limit.Burst <= 0) {
		return fmt.Errorf("无效的限流配置: rps=%v burst=%d", cfg.Limit.RPS, cfg.Limit.Burst)
	}

	if cfg.MQ.Enabled && cfg.MQ.URL == "" {
		return fmt.Errorf("启用消息队列时必须配置mq.url")
	}

	if cfg.Order.DefaultPageSize <= 0 || cfg.Order.MaxPageSize < cfg.Order.DefaultPageSize {
		return fmt.Errorf("无效的分页配置: default=%d max=%d", cfg.Order.DefaultPageSize, cfg.Order.MaxPageSize)
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("采样率必须在[0,1]之间: %v", cfg.Tracing.SampleRatio)
	}

	return nil
}
