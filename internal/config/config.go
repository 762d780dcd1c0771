// Package config loads estatedesk settings from defaults, an optional
// estatedesk.yaml, a .env file and ESTATEDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/erazemk/estatedesk/internal/workflow"
)

const (
	configName = "estatedesk"
	envPrefix  = "ESTATEDESK"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Log      LogConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Analysis AnalysisConfig
	Upload   UploadConfig
	Cache    CacheConfig
	Workflow WorkflowConfig
}

type ServerConfig struct {
	Addr string `validate:"required"`
}

type DBConfig struct {
	Path string `validate:"required"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
	Path  string
}

type AuthConfig struct {
	TokenExpiryHours int `validate:"gte=1,lte=720"`
}

type StorageConfig struct {
	Backend string `validate:"oneof=db s3"`
	S3      S3Config
}

type S3Config struct {
	Bucket          string `validate:"required_if=Enabled true"`
	Region          string
	Endpoint        string `validate:"omitempty,url"`
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string `validate:"omitempty,url"`
	UsePathStyle    bool
	Enabled         bool
}

type AnalysisConfig struct {
	Provider       string `validate:"oneof=gemini placeholder"`
	Gemini         GeminiConfig
	TimeoutSeconds int `validate:"gte=1"`
	Concurrency    int `validate:"gte=1,lte=32"`
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type UploadConfig struct {
	MaxBytes     int64 `validate:"gte=1"`
	MaxDimension int   `validate:"gte=64"`
	Concurrency  int   `validate:"gte=1,lte=32"`
}

type CacheConfig struct {
	TTLSeconds int `validate:"gte=0"`
}

type WorkflowConfig struct {
	DispositionConflict string `validate:"oneof=reject last_write_wins"`
}

// TokenExpiry returns the JWT lifetime.
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.Auth.TokenExpiryHours) * time.Hour
}

// AnalysisTimeout returns the deadline for one analysis batch.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutSeconds) * time.Second
}

// CacheTTL returns the item cache lifetime. Zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// ConflictPolicy returns the parsed disposition conflict policy.
func (c *Config) ConflictPolicy() workflow.ConflictPolicy {
	p, err := workflow.ParseConflictPolicy(c.Workflow.DispositionConflict)
	if err != nil {
		return workflow.ConflictReject
	}
	return p
}

var validate = validator.New()

// secretKeys may be supplied as files through <KEY>_FILE.
var secretKeys = []string{
	"analysis.gemini.api_key",
	"storage.s3.access_key_id",
	"storage.s3.secret_access_key",
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// readSecret sets the env var for key from the file named by <ENV>_FILE,
// unless the env var is already set.
func readSecret(key string) error {
	env := envName(key)
	if os.Getenv(env) != "" {
		return nil
	}
	path := os.Getenv(env + "_FILE")
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s_FILE: %w", env, err)
	}
	return os.Setenv(env, strings.TrimSpace(string(data)))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("db.path", "estatedesk.sqlite3")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("auth.token_expiry_hours", 24)
	v.SetDefault("storage.backend", "db")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "auto")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.public_url", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("analysis.provider", "placeholder")
	v.SetDefault("analysis.gemini.api_key", "")
	v.SetDefault("analysis.gemini.model", "gemini-2.5-flash")
	v.SetDefault("analysis.timeout_seconds", 120)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("upload.max_bytes", 20<<20)
	v.SetDefault("upload.max_dimension", 2048)
	v.SetDefault("upload.concurrency", 4)
	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("workflow.disposition_conflict", "reject")
}

// Load reads the configuration. file names an explicit config file; when
// empty, estatedesk.yaml is looked up in the working directory and is
// optional.
func Load(file string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	for _, key := range secretKeys {
		if err := readSecret(key); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Addr: v.GetString("server.addr")},
		DB:     DBConfig{Path: v.GetString("db.path")},
		Log: LogConfig{
			Level: strings.ToLower(v.GetString("log.level")),
			Path:  v.GetString("log.path"),
		},
		Auth: AuthConfig{TokenExpiryHours: v.GetInt("auth.token_expiry_hours")},
		Storage: StorageConfig{
			Backend: v.GetString("storage.backend"),
			S3: S3Config{
				Bucket:          v.GetString("storage.s3.bucket"),
				Region:          v.GetString("storage.s3.region"),
				Endpoint:        v.GetString("storage.s3.endpoint"),
				AccessKeyID:     v.GetString("storage.s3.access_key_id"),
				SecretAccessKey: v.GetString("storage.s3.secret_access_key"),
				PublicURL:       v.GetString("storage.s3.public_url"),
				UsePathStyle:    v.GetBool("storage.s3.use_path_style"),
			},
		},
		Analysis: AnalysisConfig{
			Provider: v.GetString("analysis.provider"),
			Gemini: GeminiConfig{
				APIKey: v.GetString("analysis.gemini.api_key"),
				Model:  v.GetString("analysis.gemini.model"),
			},
			TimeoutSeconds: v.GetInt("analysis.timeout_seconds"),
			Concurrency:    v.GetInt("analysis.concurrency"),
		},
		Upload: UploadConfig{
			MaxBytes:     v.GetInt64("upload.max_bytes"),
			MaxDimension: v.GetInt("upload.max_dimension"),
			Concurrency:  v.GetInt("upload.concurrency"),
		},
		Cache:    CacheConfig{TTLSeconds: v.GetInt("cache.ttl_seconds")},
		Workflow: WorkflowConfig{DispositionConflict: v.GetString("workflow.disposition_conflict")},
	}
	cfg.Storage.S3.Enabled = cfg.Storage.Backend == "s3"

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Analysis.Provider == "gemini" && cfg.Analysis.Gemini.APIKey == "" {
		return nil, errors.New("invalid config: analysis.gemini.api_key is required for the gemini provider")
	}
	return cfg, nil
}
