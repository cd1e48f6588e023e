package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the optional YAML file loaded before the environment.
const ConfigFileEnv = "LABEX_CONFIG"

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	PDF        PDFConfig        `yaml:"pdf"`
	Staging    StagingConfig    `yaml:"staging"`
	Queue      QueueConfig      `yaml:"queue"`
	Extraction ExtractionConfig `yaml:"extraction"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"`
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
	HTTPAddr       string `yaml:"http_addr"`
	GRPCAddr       string `yaml:"grpc_addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// PDFConfig holds text extraction configuration
type PDFConfig struct {
	Method    string `yaml:"method"`
	Pdftotext string `yaml:"pdftotext"`
	MaxPages  int    `yaml:"max_pages"`
	Inspect   bool   `yaml:"inspect"`
}

// StagingConfig holds upload staging configuration
type StagingConfig struct {
	Dir string `yaml:"dir"`
}

// QueueConfig holds async processing configuration
type QueueConfig struct {
	Workers        int           `yaml:"workers"`
	Size           int           `yaml:"size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// ExtractionConfig holds report extraction configuration
type ExtractionConfig struct {
	ExtendedSchema bool          `yaml:"extended_schema"`
	Timeout        time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:labex.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			GRPCAddr:       ":9090",
			MaxUploadBytes: 32 << 20,
		},
		PDF: PDFConfig{
			Method:    "auto",
			Pdftotext: "pdftotext",
		},
		Staging: StagingConfig{
			Dir: "./tmp",
		},
		Queue: QueueConfig{
			Workers:        2,
			Size:           64,
			ProcessTimeout: 2 * time.Minute,
		},
		Extraction: ExtractionConfig{
			ExtendedSchema: true,
			Timeout:        10 * time.Second,
		},
	}
}

// LoadConfig loads the defaults, then the YAML file named by LABEX_CONFIG
// if set, then environment variables. Later sources win.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)

	c.PDF.Method = getEnv("PDF_METHOD", c.PDF.Method)
	c.PDF.Pdftotext = getEnv("PDFTOTEXT_BIN", c.PDF.Pdftotext)
	c.PDF.MaxPages = getEnvAsInt("PDF_MAX_PAGES", c.PDF.MaxPages)
	c.PDF.Inspect = getEnvAsBool("PDF_INSPECT", c.PDF.Inspect)

	c.Staging.Dir = getEnv("STAGING_DIR", c.Staging.Dir)

	c.Queue.Workers = getEnvAsInt("QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.Size = getEnvAsInt("QUEUE_SIZE", c.Queue.Size)
	c.Queue.ProcessTimeout = getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", c.Queue.ProcessTimeout)

	c.Extraction.ExtendedSchema = getEnvAsBool("EXTENDED_SCHEMA", c.Extraction.ExtendedSchema)
	c.Extraction.Timeout = getEnvAsDuration("EXTRACT_TIMEOUT", c.Extraction.Timeout)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("database.driver", c.Database.Driver, OneOf("sqlite", "postgres")).
		Field("database.dsn", c.Database.DSN, Required).
		Field("pdf.method", c.PDF.Method, OneOf("native", "pdftotext", "auto")).
		Field("queue.workers", c.Queue.Workers, Positive).
		Field("queue.size", c.Queue.Size, Positive).
		Field("server.max_upload_bytes", c.Server.MaxUploadBytes, Positive)
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		v.Field("server.http_addr", c.Server.HTTPAddr, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
