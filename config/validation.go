package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs []ValidationError

	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		errs = append(errs, ValidationError{"server.port", "must be numeric"})
	}
	if cfg.Server.PageSize < 1 || cfg.Server.MaxPageSize < cfg.Server.PageSize {
		errs = append(errs, ValidationError{"server.page_size", "must be positive and not exceed server.max_page_size"})
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			errs = append(errs, ValidationError{"database", "host and name are required for postgres"})
		}
		if cfg.Environment == Production && cfg.Database.Password == "" {
			errs = append(errs, ValidationError{"database.password", "db_password secret is required"})
		}
	case "sqlite":
		if cfg.Database.Path == "" {
			errs = append(errs, ValidationError{"database.path", "is required for sqlite"})
		}
	default:
		errs = append(errs, ValidationError{"database.driver", fmt.Sprintf("unsupported driver %q", cfg.Database.Driver)})
	}

	if cfg.JWT.Secret == "" {
		errs = append(errs, ValidationError{"jwt.secret", "jwt_secret secret is required"})
	}
	if cfg.JWT.TTL <= 0 {
		errs = append(errs, ValidationError{"jwt.ttl", "must be positive"})
	}

	switch cfg.Storage.Backend {
	case "s3":
		if cfg.Storage.Bucket == "" {
			errs = append(errs, ValidationError{"storage.bucket", "is required for the s3 backend"})
		}
	case "local":
		if cfg.Storage.LocalDir == "" {
			errs = append(errs, ValidationError{"storage.local_dir", "is required for the local backend"})
		}
	default:
		errs = append(errs, ValidationError{"storage.backend", fmt.Sprintf("unsupported backend %q", cfg.Storage.Backend)})
	}
	if cfg.Storage.MaxImageBytes <= 0 {
		errs = append(errs, ValidationError{"storage.max_image_bytes", "must be positive"})
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.RecipeCreateLimit <= 0 || cfg.RateLimit.RecipeCreateWindow <= 0) {
		errs = append(errs, ValidationError{"rate_limit", "limit and window must be positive when enabled"})
	}

	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.Error()
	}
	return fmt.Errorf("configuration validation failed:\n%s", strings.Join(lines, "\n"))
}
