package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration marks missing or invalid configuration values.
var ErrConfiguration = errors.New("configuration error")

// Config holds all configuration for the collector and the interactive tools.
// It is built once at startup and passed to every component that needs it.
type Config struct {
	LogLevel    string   `json:"log_level" validate:"oneof=debug info warn error"`
	MetricsPort int      `json:"metrics_port" validate:"gte=0,lte=65535"`
	HTTPTimeout Duration `json:"http_timeout" validate:"min=1s"`
	TimeZone    string   `json:"time_zone"`

	Auth      AuthConfig      `json:"auth"`
	Secrets   SecretsConfig   `json:"secrets"`
	Storage   StorageConfig   `json:"storage"`
	Fitbit    FitbitConfig    `json:"fitbit"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

// AuthConfig describes the OAuth2 client registration.
type AuthConfig struct {
	ClientID string `json:"client_id" validate:"required"`
	// ClientSecret is used as-is when set. Otherwise ClientSecretRef is
	// looked up in the configured secret store.
	ClientSecret    string   `json:"client_secret"`
	ClientSecretRef string   `json:"client_secret_ref"`
	AuthURL         string   `json:"auth_url" validate:"required,url"`
	TokenURL        string   `json:"token_url" validate:"required,url"`
	RedirectURL     string   `json:"redirect_url" validate:"omitempty,url"`
	Scopes          []string `json:"scopes" validate:"min=1,dive,required"`
	// AuthStyle is one of auto, header or params.
	AuthStyle string `json:"auth_style" validate:"oneof=auto header params"`
}

// SecretsConfig selects where ClientSecretRef is resolved.
type SecretsConfig struct {
	Type   string `json:"type" validate:"oneof=env file aws"`
	Dir    string `json:"dir" validate:"required_if=Type file"`
	Region string `json:"region"`
}

// StorageConfig selects the blob store holding the token and the archive.
type StorageConfig struct {
	Type            string `json:"type" validate:"oneof=file sqlite redis mongo s3"`
	Path            string `json:"path" validate:"required_if=Type file,required_if=Type sqlite"`
	Bucket          string `json:"bucket" validate:"required_if=Type s3"`
	Prefix          string `json:"prefix"`
	Region          string `json:"region"`
	RedisAddr       string `json:"redis_addr" validate:"required_if=Type redis"`
	RedisPassword   string `json:"redis_password"`
	RedisDB         int    `json:"redis_db" validate:"gte=0"`
	MongoURI        string `json:"mongo_uri" validate:"required_if=Type mongo"`
	MongoDatabase   string `json:"mongo_database" validate:"required_if=Type mongo"`
	MongoCollection string `json:"mongo_collection"`
	TokenKey        string `json:"token_key" validate:"required"`
	// EncryptionKey enables the AES-256-GCM token envelope when set.
	EncryptionKey string `json:"encryption_key" validate:"omitempty,len=32"`
}

// FitbitConfig points at the heart-rate API.
type FitbitConfig struct {
	BaseURL     string `json:"base_url" validate:"required,url"`
	DetailLevel string `json:"detail_level" validate:"omitempty,oneof=1sec 1min 5min 15min"`
}

// SchedulerConfig controls the daemon's cron loop.
type SchedulerConfig struct {
	Schedule string `json:"schedule" validate:"required"`
}

// Duration is a wrapper around time.Duration that implements JSON marshaling/unmarshaling
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("invalid duration")
	}
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Default returns a Config populated with the defaults every field falls
// back to when neither the file nor the environment sets it.
func Default() *Config {
	cfg := &Config{
		LogLevel:    "info",
		MetricsPort: 9090,
		HTTPTimeout: Duration{30 * time.Second},
		TimeZone:    "Local",
	}
	cfg.Auth.Scopes = []string{"heartrate"}
	cfg.Auth.AuthStyle = "auto"
	cfg.Secrets.Type = "env"
	cfg.Storage.Type = "file"
	cfg.Storage.Path = "."
	cfg.Storage.TokenKey = "token.json"
	cfg.Storage.MongoCollection = "blobs"
	cfg.Fitbit.BaseURL = "https://api.fitbit.com"
	cfg.Scheduler.Schedule = "0 6 * * *"
	return cfg
}

// Load builds the configuration from defaults, an optional JSON file and
// environment variables, in that order, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading config file: %w", ErrConfiguration, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing config file: %w", ErrConfiguration, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("%w: applying environment overrides: %w", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides overrides config fields with environment variables.
func (c *Config) applyEnvOverrides() error {
	// Auth overrides
	setString(&c.Auth.ClientID, "CLIENT_ID")
	setString(&c.Auth.ClientSecret, "CLIENT_SECRET")
	setString(&c.Auth.AuthURL, "AUTH_URL")
	setString(&c.Auth.TokenURL, "TOKEN_URL")
	setString(&c.Auth.RedirectURL, "REDIRECT_URL")
	setString(&c.Auth.AuthStyle, "AUTH_STYLE")
	if v := os.Getenv("SCOPES"); v != "" {
		c.Auth.Scopes = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}

	// Secret store overrides. An ARN implies Secrets Manager unless the
	// store type is given explicitly.
	setString(&c.Secrets.Type, "SECRET_STORE_TYPE")
	setString(&c.Secrets.Dir, "SECRET_STORE_DIR")
	setString(&c.Secrets.Region, "AWS_REGION")
	if v := os.Getenv("CLIENT_SECRET_ARN"); v != "" {
		c.Auth.ClientSecretRef = v
		if os.Getenv("SECRET_STORE_TYPE") == "" {
			c.Secrets.Type = "aws"
		}
	}
	setString(&c.Auth.ClientSecretRef, "CLIENT_SECRET_REF")

	// Storage overrides. A bucket name implies S3 unless the storage type
	// is given explicitly.
	setString(&c.Storage.Type, "STORAGE_TYPE")
	setString(&c.Storage.Path, "STORAGE_PATH")
	setString(&c.Storage.Prefix, "STORAGE_PREFIX")
	setString(&c.Storage.Region, "AWS_REGION")
	if v := os.Getenv("BUCKET_NAME"); v != "" {
		c.Storage.Bucket = v
		if os.Getenv("STORAGE_TYPE") == "" {
			c.Storage.Type = "s3"
		}
	}
	setString(&c.Storage.RedisAddr, "REDIS_ADDR")
	setString(&c.Storage.RedisPassword, "REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing REDIS_DB: %w", err)
		}
		c.Storage.RedisDB = n
	}
	setString(&c.Storage.MongoURI, "MONGO_URI")
	setString(&c.Storage.MongoDatabase, "MONGO_DATABASE")
	setString(&c.Storage.MongoCollection, "MONGO_COLLECTION")
	setString(&c.Storage.TokenKey, "TOKEN_KEY")
	setString(&c.Storage.EncryptionKey, "TOKEN_ENCRYPTION_KEY")

	// Fitbit overrides
	setString(&c.Fitbit.BaseURL, "FITBIT_BASE_URL")
	setString(&c.Fitbit.DetailLevel, "FITBIT_DETAIL_LEVEL")

	// Scheduler overrides
	setString(&c.Scheduler.Schedule, "SCHEDULE")

	// Process-level overrides
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.TimeZone, "TIME_ZONE")
	if v := os.Getenv("METRICS_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing METRICS_PORT: %w", err)
		}
		c.MetricsPort = n
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = Duration{d}
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validate := validator.New()

	// Register custom validation for Duration
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if duration, ok := field.Interface().(Duration); ok {
			return duration.Duration
		}
		return nil
	}, Duration{})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: validation failed: %w", ErrConfiguration, err)
	}

	// Additional custom validations
	if c.Auth.ClientSecret == "" && c.Auth.ClientSecretRef == "" {
		return fmt.Errorf("%w: one of client_secret or client_secret_ref is required", ErrConfiguration)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves TimeZone. An empty value or "Local" means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: time zone %q: %w", ErrConfiguration, c.TimeZone, err)
	}
	return loc, nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
