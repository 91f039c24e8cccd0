package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/xiebiao/storefront/pkg/logger"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、.env文件、环境变量覆盖
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | memory
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
	Enabled      bool          `mapstructure:"enabled"`
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

type RabbitMQConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	URL          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	PaymentQueue string `mapstructure:"payment_queue"`
}

type JWTConfig struct {
	Secret            string        `mapstructure:"secret"`
	Issuer            string        `mapstructure:"issuer"`
	AccessTokenExpire time.Duration `mapstructure:"access_token_expire"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`  // debug | info | warn | error
	Format       string `mapstructure:"format"` // console | json
	Output       string `mapstructure:"output"` // stdout | stderr | /path/to/file
	EnableCaller bool   `mapstructure:"enable_caller"`
}

// Logger 转换为pkg/logger的配置
func (l LogConfig) Logger() logger.Config {
	return logger.Config{
		Level:        l.Level,
		Format:       l.Format,
		Output:       l.Output,
		EnableCaller: l.EnableCaller,
	}
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP gRPC，如 localhost:4317
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// CheckoutConfig 结账策略
// 金额用字符串配置，解析成decimal，避免YAML浮点数
type CheckoutConfig struct {
	TaxRate        string        `mapstructure:"tax_rate"`
	ShippingBase   string        `mapstructure:"shipping_base"`
	ShippingPerKg  string        `mapstructure:"shipping_per_kg"`
	SagaTimeout    time.Duration `mapstructure:"saga_timeout"`
	PendingTimeout time.Duration `mapstructure:"pending_timeout"` // PENDING订单超时回收
	CartMaxAge     time.Duration `mapstructure:"cart_max_age"`    // 购物车条目过期
}

// Decimals 解析金额配置
func (c CheckoutConfig) Decimals() (taxRate, shippingBase, shippingPerKg decimal.Decimal, err error) {
	if taxRate, err = decimal.NewFromString(c.TaxRate); err != nil {
		return taxRate, shippingBase, shippingPerKg, fmt.Errorf("无效的税率 %q: %w", c.TaxRate, err)
	}
	if shippingBase, err = decimal.NewFromString(c.ShippingBase); err != nil {
		return taxRate, shippingBase, shippingPerKg, fmt.Errorf("无效的基础运费 %q: %w", c.ShippingBase, err)
	}
	if shippingPerKg, err = decimal.NewFromString(c.ShippingPerKg); err != nil {
		return taxRate, shippingBase, shippingPerKg, fmt.Errorf("无效的重量运费 %q: %w", c.ShippingPerKg, err)
	}
	return taxRate, shippingBase, shippingPerKg, nil
}

// JobsConfig 定时任务（robfig/cron表达式，支持 @every 5m）
type JobsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ReconcileSpec string `mapstructure:"reconcile_spec"`
	CartSweepSpec string `mapstructure:"cart_sweep_spec"`
	LowStockSpec  string `mapstructure:"low_stock_spec"`
	BatchSize     int    `mapstructure:"batch_size"`
}

// setDefaults 默认值（配置文件缺省时也能以内存模式启动）
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "Local")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("rabbitmq.exchange", "storefront.events")
	v.SetDefault("rabbitmq.payment_queue", "storefront.payments")

	v.SetDefault("jwt.issuer", "storefront")
	v.SetDefault("jwt.access_token_expire", "2h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("tracing.service_name", "storefront")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("checkout.tax_rate", "0.08")
	v.SetDefault("checkout.shipping_base", "5.00")
	v.SetDefault("checkout.shipping_per_kg", "2.00")
	v.SetDefault("checkout.saga_timeout", "30s")
	v.SetDefault("checkout.pending_timeout", "30m")
	v.SetDefault("checkout.cart_max_age", "720h")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.reconcile_spec", "@every 5m")
	v.SetDefault("jobs.cart_sweep_spec", "0 30 3 * * *")
	v.SetDefault("jobs.low_stock_spec", "@every 15m")
	v.SetDefault("jobs.batch_size", 100)
}

// Load 加载配置
// 支持：
// 1. 默认加载config/config.yaml（不存在时只用默认值和环境变量）
// 2. 通过环境变量STOREFRONT_ENV指定环境（如config.prod.yaml）
// 3. .env文件（godotenv）和环境变量覆盖（如STOREFRONT_DATABASE_PASSWORD）
func Load() (*Config, error) {
	name := "config"
	if env := os.Getenv("STOREFRONT_ENV"); env != "" {
		name = "config." + env
	}
	return load(func(v *viper.Viper) {
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	})
}

// LoadFile 从指定文件加载（命令行 --config）
func LoadFile(path string) (*Config, error) {
	return load(func(v *viper.Viper) {
		v.SetConfigFile(path)
	})
}

func load(locate func(v *viper.Viper)) (*Config, error) {
	// .env只补充未设置的环境变量，文件不存在不算错误
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	locate(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// STOREFRONT_DATABASE_PASSWORD → database.password
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case "mysql", "memory":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	if cfg.JWT.Secret == "" {
		return fmt.Errorf("必须配置JWT密钥(jwt.secret)")
	}
	if cfg.JWT.Secret == "your-secret-key-change-in-production" && cfg.Server.Mode == "release" {
		return fmt.Errorf("生产环境必须修改JWT密钥")
	}

	taxRate, shippingBase, shippingPerKg, err := cfg.Checkout.Decimals()
	if err != nil {
		return err
	}
	if taxRate.IsNegative() || shippingBase.IsNegative() || shippingPerKg.IsNegative() {
		return fmt.Errorf("税率和运费不能为负数")
	}
	if cfg.Checkout.PendingTimeout <= 0 || cfg.Checkout.CartMaxAge <= 0 {
		return fmt.Errorf("pending_timeout和cart_max_age必须大于0")
	}

	if cfg.RabbitMQ.Enabled && cfg.RabbitMQ.URL == "" {
		return fmt.Errorf("启用RabbitMQ时必须配置rabbitmq.url")
	}

	return nil
}
