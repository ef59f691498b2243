package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: "true" to always require the key, or a store driver name to
//   require it only when that driver is selected
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// StoreDriver selects the order store: postgres or memory.
	StoreDriver string `mapstructure:"STORE_DRIVER" default:"postgres"`

	// Database holds the database configuration.
	Database DatabaseConfig `mapstructure:",squash"`

	// Redis holds the cache configuration.
	Redis RedisConfig `mapstructure:",squash"`

	// Kafka holds the event broker configuration.
	Kafka KafkaConfig `mapstructure:",squash"`

	// Orders holds order placement switches.
	Orders OrdersConfig `mapstructure:",squash"`

	// HTTP holds middleware settings.
	HTTP HTTPConfig `mapstructure:",squash"`
}

// DatabaseConfig holds database connection details.
type DatabaseConfig struct {
	// Host is the database server hostname.
	Host string `mapstructure:"DB_HOST" default:"localhost"`
	// Port is the database connection port.
	Port int `mapstructure:"DB_PORT" default:"5432"`
	// User is the database role.
	User string `mapstructure:"DB_USER" required:"postgres"`
	// Password is the role password.
	Password string `mapstructure:"DB_PASSWORD"`
	// Name is the database name.
	Name string `mapstructure:"DB_NAME" required:"postgres"`
	// SSLMode is passed to the driver as sslmode.
	SSLMode string `mapstructure:"DB_SSLMODE" default:"disable"`
	// SlowQueryMS is the threshold above which queries are logged as slow.
	SlowQueryMS int `mapstructure:"DB_SLOW_QUERY_MS" default:"200"`
}

// SlowQuery returns the slow query threshold.
func (c DatabaseConfig) SlowQuery() time.Duration {
	return time.Duration(c.SlowQueryMS) * time.Millisecond
}

// RedisConfig holds the optional cache settings.
type RedisConfig struct {
	// URL enables the cache when set (redis://[:password@]host[:port][/database]).
	URL string `mapstructure:"REDIS_URL"`
	// IdempotencyTTLSeconds is how long placement receipts stay replayable.
	IdempotencyTTLSeconds int `mapstructure:"IDEMPOTENCY_TTL_SECONDS" default:"86400"`
}

// IdempotencyTTL returns the receipt retention.
func (c RedisConfig) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLSeconds) * time.Second
}

// KafkaConfig holds the optional broker settings.
type KafkaConfig struct {
	// Brokers is a comma separated list. Events are only logged when empty.
	Brokers string `mapstructure:"KAFKA_BROKERS"`
	// OrderTopic receives order events.
	OrderTopic string `mapstructure:"KAFKA_ORDER_TOPIC" default:"order-events"`
}

// OrdersConfig holds order placement switches.
type OrdersConfig struct {
	// CatalogPricing takes unit prices from the catalog instead of the request.
	CatalogPricing bool `mapstructure:"ORDER_CATALOG_PRICING" default:"false"`
}

// HTTPConfig holds middleware settings.
type HTTPConfig struct {
	// CORSOrigin is the allowed origin list.
	CORSOrigin string `mapstructure:"CORS_ORIGIN" default:"*"`
	// RateLimitMax is the number of requests allowed per window and IP.
	RateLimitMax int `mapstructure:"RATE_LIMIT_MAX" default:"1000"`
	// RateLimitWindowSeconds is the limiter window.
	RateLimitWindowSeconds int `mapstructure:"RATE_LIMIT_WINDOW_SECONDS" default:"900"`
}

// RateLimitWindow returns the limiter window.
func (c HTTPConfig) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	if config.StoreDriver != DriverPostgres && config.StoreDriver != DriverMemory {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: must be %s or %s", config.StoreDriver, DriverPostgres, DriverMemory)
	}

	if err := validateRequired(&config, config.StoreDriver); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks that fields marked as required have non-zero
// values. A field tagged with a driver name is only checked for that driver.
func validateRequired(config interface{}, driver string) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface(), driver); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" || (required != "" && required == driver) {
			if isZero(val.Field(i)) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
