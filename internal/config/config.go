package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// EnvPrefix is prepended to every environment override, e.g. PORTAL_MYSQL_DSN.
const EnvPrefix = "PORTAL"

// ---- Root ----

type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Lookup     LookupConfig    `mapstructure:"lookup"`
	Vendors    VendorsConfig   `mapstructure:"vendors"`
	Scheduler  SchedulerConfig `mapstructure:"scheduler"`
	Analytics  AnalyticsConfig `mapstructure:"analytics"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	GroupID          string   `mapstructure:"group_id"`
	QueryEventsTopic string   `mapstructure:"query_events_topic"`
	MinBytes         int      `mapstructure:"min_bytes"`
	MaxBytes         int      `mapstructure:"max_bytes"`
	CommitInterval   int      `mapstructure:"commit_interval_ms"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	LoginAttempts   int           `mapstructure:"login_attempts"`
	LoginWindow     time.Duration `mapstructure:"login_window"`
	JobKeys         []string      `mapstructure:"job_keys"`
	DefaultPassword string        `mapstructure:"default_password"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type LookupConfig struct {
	DefaultCreditCharge string        `mapstructure:"default_credit_charge"`
	CatalogCacheSize    int           `mapstructure:"catalog_cache_size"`
	CatalogCacheTTL     time.Duration `mapstructure:"catalog_cache_ttl"`
	HistoryLimit        int           `mapstructure:"history_limit"`
}

// DefaultCharge parses DefaultCreditCharge, falling back to 5.00.
func (l LookupConfig) DefaultCharge() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(l.DefaultCreditCharge))
	if err != nil || !d.IsPositive() {
		return decimal.NewFromInt(5)
	}
	return d
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type EndpointConfig struct {
	Name      string        `mapstructure:"name"`
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

type VendorConfig struct {
	MaxAttempts int              `mapstructure:"max_attempts"`
	TokenPath   string           `mapstructure:"token_path"`
	Endpoints   []EndpointConfig `mapstructure:"endpoints"`
}

type VendorsConfig struct {
	Signzy  VendorConfig `mapstructure:"signzy"`
	Deepvue VendorConfig `mapstructure:"deepvue"`
}

type SchedulerConfig struct {
	ResetExpiredCredits string `mapstructure:"reset_expired_credits"`
}

type AnalyticsConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (PORTAL_*).
// A .env file in the working directory is loaded into the process environment first.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (PORTAL_*), nested keys use underscores: PORTAL_AUTH_JWT_SECRET
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
