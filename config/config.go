package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys. FOODGRAM_DATABASE__HOST becomes database.host.
const EnvPrefix = "FOODGRAM_"

// ConfigFileEnvVar names an optional YAML file layered over the defaults.
const ConfigFileEnvVar = "CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	Environment Environment `koanf:"-"`

	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Log       LogConfig       `koanf:"log"`
	Storage   StorageConfig   `koanf:"storage"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port string `koanf:"port"`
	// PublicURL is the externally visible base used for short links.
	PublicURL       string        `koanf:"public_url"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	PageSize        int           `koanf:"page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
}

type DatabaseConfig struct {
	// Driver is postgres or sqlite.
	Driver          string        `koanf:"driver"`
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	Path            string        `koanf:"path"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	MigrationsDir   string        `koanf:"migrations_dir"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the postgres connection string in URL form, as lib/pq expects
// it from the migrate command.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Enabled reports whether any Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Host != ""
}

type JWTConfig struct {
	Secret string        `koanf:"secret"`
	Issuer string        `koanf:"issuer"`
	TTL    time.Duration `koanf:"ttl"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type StorageConfig struct {
	// Backend is s3 or local.
	Backend       string `koanf:"backend"`
	Bucket        string `koanf:"bucket"`
	Region        string `koanf:"region"`
	Endpoint      string `koanf:"endpoint"`
	PublicBaseURL string `koanf:"public_base_url"`
	LocalDir      string `koanf:"local_dir"`
	MaxImageBytes int    `koanf:"max_image_bytes"`
}

type RateLimitConfig struct {
	Enabled            bool          `koanf:"enabled"`
	RecipeCreateLimit  int           `koanf:"recipe_create_limit"`
	RecipeCreateWindow time.Duration `koanf:"recipe_create_window"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			PublicURL:       "http://localhost:8080",
			ShutdownTimeout: 5 * time.Second,
			PageSize:        6,
			MaxPageSize:     100,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            "5432",
			User:            "foodgram",
			Name:            "foodgram",
			SSLMode:         "disable",
			Path:            "foodgram.db",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			MigrationsDir:   "migrations",
		},
		JWT: JWTConfig{
			Issuer: "foodgram",
			TTL:    24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Backend:       "local",
			Region:        "us-east-1",
			PublicBaseURL: "http://localhost:8080/media",
			LocalDir:      "media",
			MaxImageBytes: 5 << 20,
		},
		RateLimit: RateLimitConfig{
			Enabled:            true,
			RecipeCreateLimit:  30,
			RecipeCreateWindow: time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// LoadConfig builds the configuration from, in increasing precedence:
// built-in defaults, the optional YAML file named by CONFIG_FILE, and
// FOODGRAM_* environment variables. Secrets that are still empty are read
// from the Docker secrets directory.
func LoadConfig() (*Config, error) {
	environment := GetEnvironment()

	// A missing .env is normal outside local development.
	if environment == Development {
		_ = godotenv.Load()
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigFileEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitListField(k, "cors.allowed_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Environment = environment

	loadSecrets(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransformFunc maps FOODGRAM_RATE_LIMIT__RECIPE_CREATE_LIMIT to
// rate_limit.recipe_create_limit.
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// splitListField turns a comma-separated env value into a slice.
func splitListField(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// loadSecrets fills sensitive values that were not provided through the
// environment or config file.
func loadSecrets(cfg *Config) {
	if cfg.Database.Password == "" {
		cfg.Database.Password = readSecret("db_password")
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = readSecret("jwt_secret")
	}
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = readSecret("redis_password")
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
