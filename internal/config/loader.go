// Package config loads the service's configuration from a YAML file with an
// environment-variable overlay, following the teacher's "defaults → file →
// env" precedence.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("GOLDSVC").
//	    Load()
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service's complete configuration tree.
type Config struct {
	Server   ServerConfig   `yaml:"server" env:"SERVER"`
	Store    StoreConfig    `yaml:"store" env:"STORE"`
	Redis    RedisConfig    `yaml:"redis" env:"REDIS"`
	LLM      LLMConfig      `yaml:"llm" env:"LLM"`
	Prices   PricesConfig   `yaml:"prices" env:"PRICES"`
	Auth     AuthConfig     `yaml:"auth" env:"AUTH"`
	Admin    AdminConfig    `yaml:"admin" env:"ADMIN"`
	Log      LogConfig      `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig controls the HTTP edge.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	CORSAllowedOrigins []string   `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// StoreConfig is the persistence backend DSN (spec §6.6: MONGO_URL/DB_NAME
// equivalent, implemented over GORM/SQL — see internal/store).
type StoreConfig struct {
	Driver          string        `yaml:"driver" env:"DRIVER"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Name            string        `yaml:"name" env:"NAME"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DSN renders the driver-appropriate connection string.
func (s StoreConfig) DSN() string {
	switch s.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.Host, s.Port, s.User, s.Password, s.Name, s.SSLMode,
		)
	case "sqlite":
		return s.Name
	default:
		return ""
	}
}

// RedisConfig is the optional external cache backend (spec §4.2); when Addr
// is empty the cache runs in-process only.
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// LLMConfig configures the Anthropic-backed LLMClient.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Model       string        `yaml:"model" env:"MODEL"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Language    string        `yaml:"language" env:"LANGUAGE"`
}

// ProviderConfig is one gold/forex spot-price provider entry.
type ProviderConfig struct {
	Name        string        `yaml:"name" env:"NAME"`
	Description string        `yaml:"description" env:"DESCRIPTION"`
	URL         string        `yaml:"url" env:"URL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Priority    int           `yaml:"priority" env:"PRIORITY"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// PricesConfig controls the PriceAggregator.
type PricesConfig struct {
	CacheTTL      time.Duration    `yaml:"cache_ttl" env:"CACHE_TTL"`
	Providers     []ProviderConfig `yaml:"providers" env:"-"`
	FallbackQuote FallbackQuote    `yaml:"fallback_quote" env:"FALLBACK_QUOTE"`
}

// FallbackQuote is the literal degraded-mode quote used when every provider
// fails and no cached quote survives — matches the original service's demo
// fallback numbers.
type FallbackQuote struct {
	Price     float64 `yaml:"price" env:"PRICE"`
	Change    float64 `yaml:"change" env:"CHANGE"`
	ChangePct float64 `yaml:"change_pct" env:"CHANGE_PCT"`
	Ask       float64 `yaml:"ask" env:"ASK"`
	Bid       float64 `yaml:"bid" env:"BID"`
	High24h   float64 `yaml:"high_24h" env:"HIGH_24H"`
	Low24h    float64 `yaml:"low_24h" env:"LOW_24H"`
}

// AuthConfig configures AuthEngine, including analysis-cache TTL and the
// admin broadcast gate.
type AuthConfig struct {
	AnalysisCacheTTL time.Duration `yaml:"analysis_cache_ttl" env:"ANALYSIS_CACHE_TTL"`
	MasterUserID     int64         `yaml:"master_user_id" env:"MASTER_USER_ID"`
	BotSignature     string        `yaml:"bot_signature" env:"BOT_SIGNATURE"`
}

// AdminConfig configures the admin JWT scheme (REDESIGN FLAG: replaces the
// original fixed placeholder token with real signed bearer tokens).
type AdminConfig struct {
	Username  string        `yaml:"username" env:"USERNAME"`
	Password  string        `yaml:"password" env:"PASSWORD"`
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
}

// LogConfig controls zap's construction.
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig controls the OTel SDK.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader builds a Config via the builder pattern.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a Loader with the service's default env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "GOLDSVC",
		validators: make([]func(*Config) error, 0),
	}
}

func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load applies: defaults → YAML file → environment variables → validators.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads the config from path, panicking on failure. cmd/ does not
// use it; it builds a Loader with NewLoader() and handles Load's error itself.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks cross-field invariants beyond what per-field defaults give.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, "llm.api_key (CLAUDE_API_KEY) is required")
	}
	if len(c.Prices.Providers) == 0 {
		errs = append(errs, "at least one gold-price provider must be configured")
	}
	if c.Auth.MasterUserID <= 0 {
		errs = append(errs, "auth.master_user_id (MASTER_USER_ID) is required")
	}
	if c.Store.Name == "" {
		errs = append(errs, "store.name (DB_NAME) is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
