package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FetchConfig — параметры скачивания изображений.
type FetchConfig struct {
	Concurrency   int
	Timeout       time.Duration
	MaxBodyBytes  int
	MinImageBytes int
	RatePerHost   float64 // запросов в секунду на хост, 0 — без ограничения
}

// SnapshotConfig описывает, куда и как часто сохранять состояние пакета.
type SnapshotConfig struct {
	Backend  string // file | redis | none
	File     string
	Interval time.Duration
	RedisURL string
	RedisKey string
}

type StdoutLogConfig struct {
	Level string
	JSON  bool
}

type FluentBitConfig struct {
	Enabled bool
	Host    string
	Port    int
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	Port         string
	CORSOrigins  []string
	Fetch        FetchConfig
	Snapshot     SnapshotConfig
	StdoutLogger StdoutLogConfig
	FluentBit    FluentBitConfig
}

// LoadConfig загружает конфигурацию из переменных окружения. Файл .env
// необязателен: если его нет, используются переменные процесса и значения
// по умолчанию.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath...)
	} else {
		err = godotenv.Load()
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env file (path: %v): %w", envPath, err)
	}

	cfg := &AppConfig{
		AppName:     getEnvAsString("APP_NAME", "photobatch"),
		Port:        getEnvAsString("PORT", "8080"),
		CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Fetch: FetchConfig{
			Concurrency:   getEnvAsInt("WORKER_CONCURRENCY", 10),
			Timeout:       getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
			MaxBodyBytes:  getEnvAsInt("FETCH_MAX_BODY_BYTES", 20<<20),
			MinImageBytes: getEnvAsInt("FETCH_MIN_IMAGE_BYTES", 512),
			RatePerHost:   getEnvAsFloat("FETCH_RATE_PER_HOST", 0),
		},
		Snapshot: SnapshotConfig{
			Backend:  strings.ToLower(getEnvAsString("SNAPSHOT_BACKEND", "file")),
			File:     getEnvAsString("SNAPSHOT_FILE", "batch_snapshot.json"),
			Interval: getEnvAsDuration("SNAPSHOT_INTERVAL", 15*time.Second),
			RedisURL: getEnvAsString("REDIS_URL", "redis://localhost:6379/0"),
			RedisKey: getEnvAsString("REDIS_KEY", "photobatch:snapshot"),
		},
		StdoutLogger: StdoutLogConfig{
			Level: getEnvAsString("STDOUT_LOG_LEVEL", "info"),
			JSON:  getEnvAsBool("LOG_JSON", false),
		},
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *AppConfig) error {
	if cfg.Fetch.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", cfg.Fetch.Concurrency)
	}
	switch cfg.Snapshot.Backend {
	case "file", "redis", "none":
	default:
		return fmt.Errorf("SNAPSHOT_BACKEND must be file, redis or none, got %q", cfg.Snapshot.Backend)
	}
	return nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию.
// Если значение не разбирается, пишет предупреждение.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as float: %v. Using default value: %v\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return d
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valStr, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
