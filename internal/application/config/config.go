package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pion/webrtc/v4"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"3000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`
	Domain     string `env:"DOMAIN" envDefault:"http://localhost:3000"`
	JWTSecret  string `env:"JWT_SECRET,required,notEmpty"`

	// PersistenceBackend - хранилище встреч и участников: memory | postgres
	PersistenceBackend string `env:"PERSISTENCE_BACKEND" envDefault:"memory"`
	// StateBackend - хранилище эфемерного состояния и лимитов: memory | redis
	StateBackend string `env:"STATE_BACKEND" envDefault:"memory"`

	Postgres  PostgresConfig
	Redis     RedisConfig
	Media     MediaConfig
	Kafka     KafkaConfig
	Realtime  RealtimeConfig
	Network   NetworkConfig
	RateLimit RateLimitConfig
	Turn      TurnConfig
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"roommeet"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
}

type MediaConfig struct {
	BaseURL        string        `env:"MEDIA_BASE_URL" envDefault:"https://api.agora.io"`
	AppID          string        `env:"MEDIA_APP_ID"`
	AppCertificate string        `env:"MEDIA_APP_CERTIFICATE"`
	CustomerID     string        `env:"MEDIA_CUSTOMER_ID"`
	CustomerSecret string        `env:"MEDIA_CUSTOMER_SECRET"`
	TokenTTL       time.Duration `env:"MEDIA_TOKEN_TTL" envDefault:"1h"`
	Timeout        time.Duration `env:"MEDIA_HTTP_TIMEOUT" envDefault:"10s"`
}

// KafkaConfig - пустой список брокеров отключает публикацию событий
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"meeting-events"`
}

func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type RealtimeConfig struct {
	PingInterval time.Duration `env:"REALTIME_PING_INTERVAL" envDefault:"30s"`
	PongTimeout  time.Duration `env:"REALTIME_PONG_TIMEOUT" envDefault:"60s"`
	WriteTimeout time.Duration `env:"REALTIME_WRITE_TIMEOUT" envDefault:"10s"`
	SendBuffer   int           `env:"REALTIME_SEND_BUFFER" envDefault:"256"`
}

type NetworkConfig struct {
	StalenessWindow   time.Duration `env:"NETWORK_STALENESS_WINDOW" envDefault:"5m"`
	SweepInterval     time.Duration `env:"NETWORK_SWEEP_INTERVAL" envDefault:"1m"`
	MaxAttempts       int           `env:"NETWORK_MAX_ATTEMPTS" envDefault:"10"`
	BackoffMultiplier float64       `env:"NETWORK_BACKOFF_MULTIPLIER" envDefault:"1.5"`
	BaseDelay         time.Duration `env:"NETWORK_BASE_DELAY" envDefault:"1s"`
	MaxDelay          time.Duration `env:"NETWORK_MAX_DELAY" envDefault:"60s"`
}

// RateLimitConfig - лимиты запросов на пользователя. Окна фиксированы в middleware.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Create  int  `env:"RATE_LIMIT_CREATE" envDefault:"10"`
	List    int  `env:"RATE_LIMIT_LIST" envDefault:"30"`
	Get     int  `env:"RATE_LIMIT_GET" envDefault:"60"`
	Join    int  `env:"RATE_LIMIT_JOIN" envDefault:"20"`
	Leave   int  `env:"RATE_LIMIT_LEAVE" envDefault:"30"`
	Hand    int  `env:"RATE_LIMIT_HAND" envDefault:"20"`
	Control int  `env:"RATE_LIMIT_CONTROL" envDefault:"30"`
}

type TurnConfig struct {
	Host string `env:"TURN_HOST"`

	// Secret - static-auth-secret coturn, из него выдаются временные креды
	Secret string        `env:"TURN_SECRET"`
	TTL    time.Duration `env:"TURN_CREDENTIALS_TTL" envDefault:"1h"`
}

func (t *TurnConfig) Enabled() bool {
	return t.Host != "" && t.Secret != ""
}

// ICEServers - TURN по UDP и TCP без кредов. Креды выдаются на каждый запрос.
func (t *TurnConfig) ICEServers() []webrtc.ICEServer {
	if t.Host == "" {
		return nil
	}

	return []webrtc.ICEServer{
		{URLs: []string{fmt.Sprintf("turn:%s?transport=udp", t.Host)}},
		{URLs: []string{fmt.Sprintf("turn:%s?transport=tcp", t.Host)}},
	}
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) validate() error {
	switch c.PersistenceBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("unknown persistence backend %q", c.PersistenceBackend)
	}

	switch c.StateBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown state backend %q", c.StateBackend)
	}

	if c.Network.MaxAttempts <= 0 || c.Network.BackoffMultiplier < 1 {
		return fmt.Errorf("invalid reconnection policy: attempts=%d multiplier=%v",
			c.Network.MaxAttempts, c.Network.BackoffMultiplier)
	}

	if c.Realtime.SendBuffer <= 0 {
		return fmt.Errorf("realtime send buffer must be positive")
	}

	return nil
}
