package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/chezmonami/platform/pkg/utils"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string  `yaml:"env" env:"ENV" env-default:"local"`
	Service  string  `yaml:"service" env:"SERVICE_NAME"`
	HTTP     HTTP    `yaml:"http"`
	Postgres PG      `yaml:"postgres"`
	Redis    Redis   `yaml:"redis"`
	Kafka    Kafka   `yaml:"kafka"`
	Logger   Logger  `yaml:"logger"`
	Limiter  Limiter `yaml:"limiter"`
	Order    Order   `yaml:"order"`
	Cache    Cache   `yaml:"cache"`
	SMTP     SMTP    `yaml:"smtp"`
	Tracing  Tracing `yaml:"tracing"`
	Breaker  Breaker `yaml:"breaker"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL        string `yaml:"url" env:"DB_URL"`
	Migrations string `yaml:"migrations" env:"DB_MIGRATIONS" env-default:"./migrations"`
	MaxConns   int32  `yaml:"max_conns" env-default:"10"`
	MinConns   int32  `yaml:"min_conns" env-default:"2"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	GroupID string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
}

type Logger struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"20"`
	Expiration time.Duration `yaml:"expiration" env-default:"5s"`
}

// Order holds the knobs of the order lifecycle engine.
type Order struct {
	TransitionPolicy string        `yaml:"transition_policy" env:"ORDER_TRANSITION_POLICY" env-default:"permissive"`
	HistoryMode      string        `yaml:"history_mode" env:"ORDER_HISTORY_MODE" env-default:"always"`
	CartTTL          time.Duration `yaml:"cart_ttl" env:"ORDER_CART_TTL" env-default:"24h"`
	DefaultCurrency  string        `yaml:"default_currency" env:"ORDER_DEFAULT_CURRENCY" env-default:"XOF"`
}

type Cache struct {
	PlacementsTTL time.Duration `yaml:"placements_ttl" env:"CACHE_PLACEMENTS_TTL" env-default:"1m"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

type Tracing struct {
	Endpoint string `yaml:"endpoint" env:"JAEGER_ENDPOINT" env-default:"localhost:4318"`
}

type Breaker struct {
	MaxRequests uint32        `yaml:"max_requests" env-default:"3"`
	Interval    time.Duration `yaml:"interval" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}
