package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTDuration time.Duration `yaml:"jwt_duration"`
}

type SparkConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type DocumentsConfig struct {
	// Backend is "sqlite" or "gcs".
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`
	// Prefix is prepended to GCS object names.
	Prefix string `yaml:"prefix"`
	// CredentialsFile is a service account key; empty uses ambient credentials.
	CredentialsFile string `yaml:"credentials_file"`
	MaxBytes        int64  `yaml:"max_bytes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dev   bool   `yaml:"dev"`
}

type Config struct {
	HTTPAddr  string          `yaml:"http_addr"`
	GRPCAddr  string          `yaml:"grpc_addr"`
	DBPath    string          `yaml:"db_path"`
	Auth      AuthConfig      `yaml:"auth"`
	Spark     SparkConfig     `yaml:"spark"`
	Documents DocumentsConfig `yaml:"documents"`
	Log       LogConfig       `yaml:"log"`
}

func DefaultConfig() Config {
	return Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
		Auth: AuthConfig{
			// dev default (change for deployment)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "karmasri",
			JWTDuration: 24 * time.Hour,
		},
		Spark: SparkConfig{
			BaseURL: "http://localhost:9000",
			Timeout: 10 * time.Second,
		},
		Documents: DocumentsConfig{
			Backend:  "sqlite",
			Prefix:   "documents/",
			MaxBytes: 5 << 20,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load starts from DefaultConfig, applies the YAML file at path when it
// exists, then KARMASRI_* environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromEnv uses KARMASRI_CONFIG as the file path.
func LoadFromEnv() (Config, error) {
	return Load(os.Getenv("KARMASRI_CONFIG"))
}

func (c Config) Validate() error {
	switch c.Documents.Backend {
	case "sqlite":
	case "gcs":
		if c.Documents.Bucket == "" {
			return errors.New("config: documents.bucket required for gcs backend")
		}
	default:
		return fmt.Errorf("config: unknown documents backend %q", c.Documents.Backend)
	}
	if c.Auth.JWTDuration <= 0 {
		return errors.New("config: auth.jwt_duration must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.HTTPAddr, "KARMASRI_HTTP_ADDR")
	setString(&cfg.GRPCAddr, "KARMASRI_GRPC_ADDR")
	setString(&cfg.DBPath, "KARMASRI_DB_PATH")
	setString(&cfg.Auth.JWTSecret, "KARMASRI_JWT_SECRET")
	setString(&cfg.Auth.JWTIssuer, "KARMASRI_JWT_ISSUER")
	setString(&cfg.Spark.BaseURL, "KARMASRI_SPARK_URL")
	setString(&cfg.Documents.Backend, "KARMASRI_DOCUMENTS_BACKEND")
	setString(&cfg.Documents.Bucket, "KARMASRI_DOCUMENTS_BUCKET")
	setString(&cfg.Documents.CredentialsFile, "KARMASRI_DOCUMENTS_CREDENTIALS")
	setString(&cfg.Log.Level, "KARMASRI_LOG_LEVEL")

	if v := os.Getenv("KARMASRI_JWT_TTL_HOURS"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h <= 0 {
			return fmt.Errorf("KARMASRI_JWT_TTL_HOURS: invalid value %q", v)
		}
		cfg.Auth.JWTDuration = time.Duration(h) * time.Hour
	}
	if v := os.Getenv("KARMASRI_SPARK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("KARMASRI_SPARK_TIMEOUT: %w", err)
		}
		cfg.Spark.Timeout = d
	}
	if v := os.Getenv("KARMASRI_DOCUMENTS_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("KARMASRI_DOCUMENTS_MAX_BYTES: %w", err)
		}
		cfg.Documents.MaxBytes = n
	}
	if v := os.Getenv("KARMASRI_LOG_DEV"); v != "" {
		cfg.Log.Dev = strings.EqualFold(v, "true") || v == "1"
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
