package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/xela07ax/netpulse/internal/domain"
)

// Config: корневая структура конфигурации сервиса.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Console   ServerConfig    `mapstructure:"console"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Source    SourceConfig    `mapstructure:"source"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig описывает подключение к Redis (порог потерь, Pub/Sub, алерты).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig: RS256 для токенов и Basic (bcrypt) для дашборда.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"` // Только для выпуска токенов в тестах/утилитах
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	Username       string        `mapstructure:"username"`
	PasswordHash   string        `mapstructure:"password_hash"` // bcrypt, не пароль
	PublicKey      []byte
	PrivateKey     []byte
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// AnalyticsConfig: параметры движка и окна по умолчанию.
type AnalyticsConfig struct {
	LossThreshold float64       `mapstructure:"loss_threshold"` // %
	DefaultWindow time.Duration `mapstructure:"default_window"`
	Timezone      string        `mapstructure:"timezone"`
}

// Location возвращает часовой пояс для разбора дат; при ошибке, UTC.
func (c AnalyticsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

const (
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

// SourceConfig: откуда берем сырые серии и как защищаемся от сбоев источника.
type SourceConfig struct {
	Kind           string        `mapstructure:"kind"` // postgres, http
	URL            string        `mapstructure:"url"`  // для http: базовый адрес коллектора
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // запросов в секунду
	RateBurst      int           `mapstructure:"rate_burst"`
	RetryAttempts  uint          `mapstructure:"retry_attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`

	// Настройки Circuit Breaker
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"`
}

// ProbeConfig: цели в формате TAG:IP (или просто IP).
type ProbeConfig struct {
	Targets []string `mapstructure:"targets"`
}

// ProbeTarget: цель, до которой коллектор меряет задержку.
type ProbeTarget struct {
	Tag string
	IP  string
}

// ParseProbeTarget разбирает "TAG:IP". Без тега IP служит и тегом.
func ParseProbeTarget(s string) (ProbeTarget, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ProbeTarget{}, errors.New("empty probe target")
	}
	if idx := strings.Index(s, ":"); idx > 0 {
		ip := strings.TrimSpace(s[idx+1:])
		if ip == "" {
			return ProbeTarget{}, fmt.Errorf("probe target %q: empty address", s)
		}
		return ProbeTarget{Tag: strings.TrimSpace(s[:idx]), IP: ip}, nil
	}
	return ProbeTarget{Tag: s, IP: s}, nil
}

// ParsedTargets разбирает все цели, пустые элементы пропускаются.
func (c ProbeConfig) ParsedTargets() ([]ProbeTarget, error) {
	out := make([]ProbeTarget, 0, len(c.Targets))
	for _, raw := range c.Targets {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		pt, err := ParseProbeTarget(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, nil
}

// IngestConfig: батчер приема сэмплов от коллекторов.
type IngestConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

const (
	SinkNone  = "none"
	SinkRedis = "redis"
	SinkKafka = "kafka"
)

// AlertsConfig: фоновый детектор аномалий и куда слать события.
type AlertsConfig struct {
	Sink         string        `mapstructure:"sink"` // none, redis, kafka
	Interval     time.Duration `mapstructure:"interval"`
	Lookback     time.Duration `mapstructure:"lookback"`
	KafkaBrokers []string      `mapstructure:"kafka_brokers"`
	KafkaTopic   string        `mapstructure:"kafka_topic"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	return load(v)
}

// LoadConfigFrom читает конкретный файл. Отсутствие файла здесь считается ошибкой.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: ANALYTICS_LOSS_THRESHOLD=2 перекроет analytics.loss_threshold
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет, работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Ключи: сначала PEM прямо из ENV (Docker/K8s), потом файл по пути
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 9100)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("console.host", "")
	v.SetDefault("console.port", 8000)
	v.SetDefault("console.read_timeout", 5*time.Second)
	v.SetDefault("console.write_timeout", 10*time.Second)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.addr", ":50052")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.public_key_path", "")
	v.SetDefault("auth.private_key_path", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("analytics.loss_threshold", domain.DefaultLossThreshold)
	v.SetDefault("analytics.default_window", 24*time.Hour)
	v.SetDefault("analytics.timezone", "UTC")

	v.SetDefault("source.kind", SourcePostgres)
	v.SetDefault("source.url", "")
	v.SetDefault("source.username", "")
	v.SetDefault("source.password", "")
	v.SetDefault("source.timeout", 15*time.Second)
	v.SetDefault("source.rate_limit", 50)
	v.SetDefault("source.rate_burst", 10)
	v.SetDefault("source.retry_attempts", 3)
	v.SetDefault("source.attempt_timeout", 10*time.Second)
	v.SetDefault("source.cb_max_requests", 3)
	v.SetDefault("source.cb_interval", 5*time.Second)
	v.SetDefault("source.cb_timeout", 30*time.Second)
	v.SetDefault("source.cb_failures", 5)

	v.SetDefault("probe.targets", []string{"Google:8.8.8.8", "Cloudflare:1.1.1.1"})

	v.SetDefault("ingest.enabled", true)
	v.SetDefault("ingest.buffer_size", 1000)
	v.SetDefault("ingest.batch_size", 100)
	v.SetDefault("ingest.flush_interval", 500*time.Millisecond)

	v.SetDefault("alerts.sink", SinkNone)
	v.SetDefault("alerts.interval", time.Minute)
	v.SetDefault("alerts.lookback", time.Hour)
	v.SetDefault("alerts.kafka_brokers", []string{})
	v.SetDefault("alerts.kafka_topic", "netpulse.loss-alerts")
}

// Validate проверяет сочетания параметров, которые нельзя выразить дефолтами.
func (c *Config) Validate() error {
	if err := domain.ValidateThreshold(c.Analytics.LossThreshold); err != nil {
		return fmt.Errorf("config: analytics.loss_threshold: %w", err)
	}
	if c.Analytics.DefaultWindow <= 0 {
		return fmt.Errorf("config: analytics.default_window must be positive, got %v", c.Analytics.DefaultWindow)
	}
	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return fmt.Errorf("config: analytics.timezone: %w", err)
	}

	switch c.Source.Kind {
	case SourcePostgres:
		if c.Database.URL == "" {
			return errors.New("config: database.url is required for the postgres source")
		}
	case SourceHTTP:
		if c.Source.URL == "" {
			return errors.New("config: source.url is required for the http source")
		}
	default:
		return fmt.Errorf("config: unknown source.kind %q", c.Source.Kind)
	}

	if _, err := c.Probe.ParsedTargets(); err != nil {
		return fmt.Errorf("config: probe.targets: %w", err)
	}

	switch c.Alerts.Sink {
	case SinkNone, SinkRedis:
	case SinkKafka:
		if len(c.Alerts.KafkaBrokers) == 0 || c.Alerts.KafkaTopic == "" {
			return errors.New("config: alerts.kafka_brokers and alerts.kafka_topic are required for the kafka sink")
		}
	default:
		return fmt.Errorf("config: unknown alerts.sink %q", c.Alerts.Sink)
	}
	if c.Alerts.Sink != SinkNone && (c.Alerts.Interval <= 0 || c.Alerts.Lookback <= 0) {
		return errors.New("config: alerts.interval and alerts.lookback must be positive")
	}

	if c.Ingest.Enabled {
		if c.Ingest.BufferSize <= 0 || c.Ingest.BatchSize <= 0 {
			return errors.New("config: ingest.buffer_size and ingest.batch_size must be positive")
		}
		if c.Database.URL == "" {
			return errors.New("config: database.url is required when ingest is enabled")
		}
	}
	return nil
}

// loadKeyResource: универсальный хелпер архитектора
func loadKeyResource(path string, envDataKey string) []byte {
	// Если ключ прилетел напрямую в ENV (Base64 или PEM)
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	// Иначе читаем файл по пути из конфига
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
