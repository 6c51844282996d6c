package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"go.yaml.in/yaml/v4"
)

// EnvPrefix: SHIPTRACK_DATABASE_HOST переопределяет database.host,
// SHIPTRACK_APP_* секцию shiptrack.
const EnvPrefix = "SHIPTRACK"

type Config struct {
	AfterShip AfterShipConfig `yaml:"aftership" envconfig:"AFTERSHIP"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Kafka     KafkaConfig     `yaml:"kafka" envconfig:"KAFKA"`
	Redis     RedisConfig     `yaml:"redis" envconfig:"REDIS"`
	ShipTrack ShipTrackConfig `yaml:"shiptrack" envconfig:"APP"`
	Log       LogConfig       `yaml:"log" envconfig:"LOG"`
}

type AfterShipConfig struct {
	BaseURL        string `yaml:"base_url" split_words:"true" validate:"omitempty,url"`
	Version        string `yaml:"version" split_words:"true"`
	TimeoutSeconds int    `yaml:"timeout_seconds" split_words:"true" validate:"gte=0"`

	// Значения настроек до первого сохранения через /v1/settings.
	APIKey                    string `yaml:"api_key" split_words:"true"`
	Username                  string `yaml:"username" split_words:"true"`
	AllowCustomerNotification bool   `yaml:"allow_customer_notification" split_words:"true"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" split_words:"true" validate:"required"`
	Port     int    `yaml:"port" split_words:"true" validate:"gte=1,lte=65535"`
	Username string `yaml:"username" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	DBName   string `yaml:"name" split_words:"true" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
}

func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

type KafkaConfig struct {
	Host                     string `yaml:"host" split_words:"true" validate:"required"`
	Port                     int    `yaml:"port" split_words:"true" validate:"gte=1,lte=65535"`
	ShipmentEventsTopicName  string `yaml:"shipment_events_topic_name" split_words:"true"`
	TrackingUpdatedTopicName string `yaml:"tracking_updated_topic_name" split_words:"true"`
}

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

type RedisConfig struct {
	Host     string `yaml:"host" split_words:"true" validate:"required"`
	Port     int    `yaml:"port" split_words:"true" validate:"gte=1,lte=65535"`
	Password string `yaml:"password" split_words:"true"`
	DB       int    `yaml:"db" split_words:"true" validate:"gte=0"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type ShipTrackConfig struct {
	HTTPAddr           string `yaml:"http_addr" split_words:"true"`
	SwaggerPath        string `yaml:"swagger_path" split_words:"true"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group" split_words:"true"`
	LocalesPath        string `yaml:"locales_path" split_words:"true"`

	// postgres или redis
	AttributeStore string `yaml:"attribute_store" split_words:"true" validate:"omitempty,oneof=postgres redis"`

	SettingsCacheSeconds int `yaml:"settings_cache_seconds" split_words:"true" validate:"gte=0"`

	// Перебор курьеров: 0/1 последовательно, больше одновременно.
	ProbeConcurrency    int `yaml:"probe_concurrency" split_words:"true" validate:"gte=0"`
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds" split_words:"true" validate:"gte=0"`

	CacheDeliveredTTLSeconds    int `yaml:"cache_delivered_ttl_seconds" split_words:"true" validate:"gte=0"`
	CacheExpiredTTLSeconds      int `yaml:"cache_expired_ttl_seconds" split_words:"true" validate:"gte=0"`
	CacheInTransitMinTTLSeconds int `yaml:"cache_in_transit_min_ttl_seconds" split_words:"true" validate:"gte=0"`
	CacheInTransitMaxTTLSeconds int `yaml:"cache_in_transit_max_ttl_seconds" split_words:"true" validate:"gte=0"`
	CacheDefaultTTLSeconds      int `yaml:"cache_default_ttl_seconds" split_words:"true" validate:"gte=0"`

	WorkerHTTPAddr            string `yaml:"worker_http_addr" split_words:"true"`
	WorkerSwaggerPath         string `yaml:"worker_swagger_path" split_words:"true"`
	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds" split_words:"true" validate:"gte=0"`
	WorkerPageSize            int    `yaml:"worker_page_size" split_words:"true" validate:"gte=0,lte=200"`
	WorkerMaxPages            int    `yaml:"worker_max_pages" split_words:"true" validate:"gte=0"`
	WorkerConcurrency         int    `yaml:"worker_concurrency" split_words:"true" validate:"gte=0"`
	WorkerLookbackHours       int    `yaml:"worker_lookback_hours" split_words:"true" validate:"gte=0"`
	WorkerRateLimitPerMinute  int    `yaml:"worker_rate_limit_per_minute" split_words:"true" validate:"gte=0"`
	WorkerRetrackExpired      bool   `yaml:"worker_retrack_expired" split_words:"true"`
}

// Seconds переводит значение *_seconds; ноль и отрицательные дают 0.
func Seconds(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}

type LogConfig struct {
	Level string `yaml:"level" split_words:"true" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// LoadConfig читает YAML, применяет переменные окружения SHIPTRACK_* и
// валидирует результат.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}
	config.applyDefaults()

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Kafka.ShipmentEventsTopicName == "" {
		c.Kafka.ShipmentEventsTopicName = "shipment.events"
	}
	if c.Kafka.TrackingUpdatedTopicName == "" {
		c.Kafka.TrackingUpdatedTopicName = "aftership.tracking.updated"
	}
	if c.ShipTrack.HTTPAddr == "" {
		c.ShipTrack.HTTPAddr = ":8080"
	}
	if c.ShipTrack.WorkerHTTPAddr == "" {
		c.ShipTrack.WorkerHTTPAddr = ":8082"
	}
	if c.ShipTrack.KafkaConsumerGroup == "" {
		c.ShipTrack.KafkaConsumerGroup = "track-api"
	}
	if c.ShipTrack.AttributeStore == "" {
		c.ShipTrack.AttributeStore = "postgres"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
