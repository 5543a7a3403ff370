package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

var (
	facultyOrders = []string{"least_loaded", "most_capacity"}
	roomOrders    = []string{"smallest_first", "largest_first"}
)

// Config is the process configuration, read from the environment and an optional .env file.
type Config struct {
	Env             string
	Port            int
	APIPrefix       string
	ShutdownTimeout time.Duration

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Timetable TimetableConfig
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnectAttempts  int
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig tunes generation heuristics, view caching and the
// asynchronous run queue.
type TimetableConfig struct {
	FacultyOrder  string
	RoomOrder     string
	CacheTTL      time.Duration
	AsyncWorkers    int
	AsyncRetries    int
	AsyncRetryDelay time.Duration
	GenerateRate    float64
	GenerateBurst   int
}

// Load reads configuration and rejects values the service cannot run with.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and numeric ranges.
func (c *Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of %s, %s, %s; got %q", EnvDevelopment, EnvProduction, EnvTest, c.Env))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if !oneOf(c.Timetable.FacultyOrder, facultyOrders) {
		errs = append(errs, fmt.Errorf("TIMETABLE_FACULTY_ORDER must be one of %s; got %q", strings.Join(facultyOrders, ", "), c.Timetable.FacultyOrder))
	}
	if !oneOf(c.Timetable.RoomOrder, roomOrders) {
		errs = append(errs, fmt.Errorf("TIMETABLE_ROOM_ORDER must be one of %s; got %q", strings.Join(roomOrders, ", "), c.Timetable.RoomOrder))
	}
	if c.Timetable.GenerateRate < 0 {
		errs = append(errs, errors.New("TIMETABLE_GENERATE_RATE must not be negative"))
	}
	return errors.Join(errs...)
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.ShutdownTimeout = parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 15*time.Second)

	cfg.Database = DatabaseConfig{
		Host:             v.GetString("DB_HOST"),
		Port:             v.GetInt("DB_PORT"),
		User:             v.GetString("DB_USER"),
		Password:         v.GetString("DB_PASSWORD"),
		Name:             v.GetString("DB_NAME"),
		SSLMode:          v.GetString("DB_SSL_MODE"),
		MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectAttempts:  v.GetInt("DB_CONNECT_ATTEMPTS"),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 0),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("REDIS_ENABLED"),
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	workers := v.GetInt("TIMETABLE_ASYNC_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	retries := v.GetInt("TIMETABLE_ASYNC_RETRIES")
	if retries < 0 {
		retries = 0
	}
	burst := v.GetInt("TIMETABLE_GENERATE_BURST")
	if burst <= 0 {
		burst = 1
	}
	cfg.Timetable = TimetableConfig{
		FacultyOrder:    strings.ToLower(strings.TrimSpace(v.GetString("TIMETABLE_FACULTY_ORDER"))),
		RoomOrder:       strings.ToLower(strings.TrimSpace(v.GetString("TIMETABLE_ROOM_ORDER"))),
		CacheTTL:        parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 10*time.Minute),
		AsyncWorkers:    workers,
		AsyncRetries:    retries,
		AsyncRetryDelay: parseDuration(v.GetString("TIMETABLE_ASYNC_RETRY_DELAY"), 2*time.Second),
		GenerateRate:    v.GetFloat64("TIMETABLE_GENERATE_RATE"),
		GenerateBurst:   burst,
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_ATTEMPTS", 5)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "60s")

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "timetable-api:")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_FACULTY_ORDER", "least_loaded")
	v.SetDefault("TIMETABLE_ROOM_ORDER", "smallest_first")
	v.SetDefault("TIMETABLE_CACHE_TTL", "10m")
	v.SetDefault("TIMETABLE_ASYNC_WORKERS", 1)
	v.SetDefault("TIMETABLE_ASYNC_RETRIES", 0)
	v.SetDefault("TIMETABLE_ASYNC_RETRY_DELAY", "2s")
	v.SetDefault("TIMETABLE_GENERATE_RATE", 0.2)
	v.SetDefault("TIMETABLE_GENERATE_BURST", 2)
}

// isMissingFile covers viper returning the raw open error for an explicit
// config file path.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
