package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	QR       QRConfig       `yaml:"qr"`
	Upload   UploadConfig   `yaml:"upload"`
	Cache    CacheConfig    `yaml:"cache"`
	Queue    QueueConfig    `yaml:"queue"`
}

// DatabaseConfig holds database-related configuration. An empty DSN disables persistence.
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	InboxDirs       []string      `yaml:"inbox_dirs"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Binary      string        `yaml:"binary"`
	TessdataDir string        `yaml:"tessdata_dir"`
	Languages   []string      `yaml:"languages"`
	PSM         int           `yaml:"psm"`
	OEM         int           `yaml:"oem"`
	Timeout     time.Duration `yaml:"timeout"`
}

// QRConfig holds QR decoder configuration. An empty Binary disables decoding.
type QRConfig struct {
	Binary  string        `yaml:"binary"`
	Timeout time.Duration `yaml:"timeout"`
}

// UploadConfig bounds what the HTTP boundary accepts.
type UploadConfig struct {
	MaxBytes   int64    `yaml:"max_bytes"`
	Extensions []string `yaml:"extensions"`
	TempDir    string   `yaml:"temp_dir"`
}

// CacheConfig selects the result cache. Driver is "memory", "redis" or "" (off).
type CacheConfig struct {
	Driver   string        `yaml:"driver"`
	TTL      time.Duration `yaml:"ttl"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
}

// QueueConfig sizes the background recognition queue.
type QueueConfig struct {
	Workers        int           `yaml:"workers"`
	Size           int           `yaml:"size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// DefaultConfig returns the built-in defaults every source overlays.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:        ":5000",
			GRPCAddr:        ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		OCR: OCRConfig{
			Binary:    "tesseract",
			Languages: []string{"rus", "eng"},
			PSM:       6,
			OEM:       3,
			Timeout:   60 * time.Second,
		},
		QR: QRConfig{
			Binary:  "zbarimg",
			Timeout: 10 * time.Second,
		},
		Upload: UploadConfig{
			MaxBytes:   10 << 20,
			Extensions: []string{".png", ".jpg", ".jpeg"},
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Queue: QueueConfig{
			Workers:        2,
			Size:           64,
			ProcessTimeout: 2 * time.Minute,
		},
	}
}

// LoadConfig loads configuration from environment variables, reading a .env
// file first when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()
	cfg := DefaultConfig()
	applyEnv(cfg)
	return cfg
}

// LoadConfigFile overlays a YAML file on the defaults; environment variables
// still take precedence over the file.
func LoadConfigFile(path string) (*Config, error) {
	_ = godotenv.Load()
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "parse config file", err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.InboxDirs = getEnvAsList("INBOX_DIRS", c.Server.InboxDirs)

	c.OCR.Binary = getEnv("TESSERACT_BIN", c.OCR.Binary)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.Languages = getEnvAsList("OCR_LANGUAGES", c.OCR.Languages)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)
	c.OCR.OEM = getEnvAsInt("OCR_OEM", c.OCR.OEM)
	c.OCR.Timeout = getEnvAsDuration("OCR_TIMEOUT", c.OCR.Timeout)

	c.QR.Binary = getEnv("ZBARIMG_BIN", c.QR.Binary)
	c.QR.Timeout = getEnvAsDuration("QR_TIMEOUT", c.QR.Timeout)

	c.Upload.MaxBytes = getEnvAsInt64("UPLOAD_MAX_BYTES", c.Upload.MaxBytes)
	c.Upload.Extensions = getEnvAsList("UPLOAD_EXTENSIONS", c.Upload.Extensions)
	c.Upload.TempDir = getEnv("UPLOAD_TEMP_DIR", c.Upload.TempDir)

	c.Cache.Driver = getEnv("CACHE_DRIVER", c.Cache.Driver)
	c.Cache.TTL = getEnvAsDuration("CACHE_TTL", c.Cache.TTL)
	c.Cache.Addr = getEnv("REDIS_ADDR", c.Cache.Addr)
	c.Cache.Password = getEnv("REDIS_PASSWORD", c.Cache.Password)
	c.Cache.DB = getEnvAsInt("REDIS_DB", c.Cache.DB)

	c.Queue.Workers = getEnvAsInt("QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.Size = getEnvAsInt("QUEUE_SIZE", c.Queue.Size)
	c.Queue.ProcessTimeout = getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", c.Queue.ProcessTimeout)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the settings the daemon cannot start without.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR or GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.OCR.Binary == "" {
		return NewAppError("CONFIG_ERROR", "TESSERACT_BIN is required", ErrInvalidInput)
	}
	if c.Upload.MaxBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "UPLOAD_MAX_BYTES must be positive", ErrInvalidInput)
	}
	switch c.Cache.Driver {
	case "", "memory":
	case "redis":
		if c.Cache.Addr == "" {
			return NewAppError("CONFIG_ERROR", "REDIS_ADDR is required for the redis cache", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown cache driver %q", c.Cache.Driver), ErrInvalidInput)
	}
	if c.Queue.Workers <= 0 || c.Queue.Size <= 0 {
		return NewAppError("CONFIG_ERROR", "QUEUE_WORKERS and QUEUE_SIZE must be positive", ErrInvalidInput)
	}
	return nil
}
