package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-order-events/internal/orders"
	"github.com/ariefcatur/go-order-events/internal/retry"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr       string        `yaml:"http_addr"`
	ServiceName    string        `yaml:"service_name"`
	Log            LogConfig     `yaml:"log"`
	RedisAddr      string        `yaml:"redis_addr"` // empty disables the status cache
	StatusCacheTTL time.Duration `yaml:"status_cache_ttl"`
	Kafka          KafkaConfig   `yaml:"kafka"`
	Publish        RetryConfig   `yaml:"publish"`
	Consume        RetryConfig   `yaml:"consume"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json|console
}

type KafkaConfig struct {
	Brokers         []string      `yaml:"brokers"`
	ClientID        string        `yaml:"client_id"`
	CreatedTopic    string        `yaml:"created_topic"`
	UpdatedTopic    string        `yaml:"updated_topic"`
	ConsumerGroup   string        `yaml:"consumer_group"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
}

// RetryConfig is an exponential policy: wait before retry n is Backoff * 2^n.
type RetryConfig struct {
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
}

func (k KafkaConfig) Topics() orders.Topics {
	return orders.Topics{Created: k.CreatedTopic, Updated: k.UpdatedTopic}
}

func (r RetryConfig) Policy() retry.Policy {
	return retry.Exponential(r.Retries, r.Backoff)
}

// PublishBudget is the longest a single publish may take: every attempt
// running into the delivery timeout plus every backoff wait.
func (c Config) PublishBudget() time.Duration {
	attempts := time.Duration(c.Publish.Retries + 1)
	return attempts*c.Kafka.DeliveryTimeout + c.Publish.Policy().TotalWait()
}

// Defaults returns the configuration used when nothing is set. serviceName is
// also used as the Kafka client id.
func Defaults(serviceName, httpAddr string) Config {
	return Config{
		HTTPAddr:       httpAddr,
		ServiceName:    serviceName,
		Log:            LogConfig{Level: "info", Format: "json"},
		StatusCacheTTL: 5 * time.Minute,
		Kafka: KafkaConfig{
			Brokers:         []string{"localhost:9093"},
			ClientID:        serviceName,
			CreatedTopic:    orders.DefaultTopicOrderCreated,
			UpdatedTopic:    orders.DefaultTopicOrderUpdated,
			ConsumerGroup:   "order-service",
			DeliveryTimeout: 5 * time.Second,
		},
		Publish: RetryConfig{Retries: 3, Backoff: time.Second},
		Consume: RetryConfig{Retries: 5, Backoff: time.Second},
	}
}

// Load builds the configuration from, in increasing priority: defaults, the
// YAML file named by CONFIG_PATH, the environment (a .env file is loaded first
// when present).
func Load(serviceName, httpAddr string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults(serviceName, httpAddr)
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.ServiceName = getenv("SERVICE_NAME", cfg.ServiceName)
	cfg.Log.Level = getenv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv("LOG_FORMAT", cfg.Log.Format)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.StatusCacheTTL = getenvDuration("STATUS_CACHE_TTL", cfg.StatusCacheTTL)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitCSV(v)
	}
	cfg.Kafka.ClientID = getenv("KAFKA_CLIENT_ID", cfg.Kafka.ClientID)
	cfg.Kafka.CreatedTopic = getenv("KAFKA_ORDER_CREATED_TOPIC", cfg.Kafka.CreatedTopic)
	cfg.Kafka.UpdatedTopic = getenv("KAFKA_ORDER_UPDATED_TOPIC", cfg.Kafka.UpdatedTopic)
	cfg.Kafka.ConsumerGroup = getenv("KAFKA_CONSUMER_GROUP", cfg.Kafka.ConsumerGroup)
	cfg.Kafka.DeliveryTimeout = getenvDuration("KAFKA_DELIVERY_TIMEOUT", cfg.Kafka.DeliveryTimeout)

	cfg.Publish.Retries = getenvInt("PUBLISH_RETRIES", cfg.Publish.Retries)
	cfg.Publish.Backoff = getenvDuration("PUBLISH_BACKOFF", cfg.Publish.Backoff)
	cfg.Consume.Retries = getenvInt("CONSUME_RETRIES", cfg.Consume.Retries)
	cfg.Consume.Backoff = getenvDuration("CONSUME_BACKOFF", cfg.Consume.Backoff)

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka brokers is empty"))
	}
	if c.Kafka.CreatedTopic == "" || c.Kafka.UpdatedTopic == "" {
		errs = append(errs, errors.New("kafka topic names must not be empty"))
	} else if c.Kafka.CreatedTopic == c.Kafka.UpdatedTopic {
		errs = append(errs, errors.New("created and updated topics must differ"))
	}
	if c.Kafka.ConsumerGroup == "" {
		errs = append(errs, errors.New("kafka consumer group is empty"))
	}
	if c.Kafka.DeliveryTimeout <= 0 {
		errs = append(errs, errors.New("kafka delivery timeout must be positive"))
	}
	if c.Publish.Retries < 0 || c.Consume.Retries < 0 {
		errs = append(errs, errors.New("retry counts must not be negative"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is empty"))
	}
	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
