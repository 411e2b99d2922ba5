package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/utils"
)

// Config is the top-level process configuration. A yaml file named by
// CONFIG_PATH seeds it; environment variables override file values.
// Component-level settings (docstore, redis, database) stay env-driven in
// their own constructors.
type Config struct {
	ServiceName    string   `yaml:"service_name"`
	Environment    string   `yaml:"environment"`
	Version        string   `yaml:"version"`
	Port           string   `yaml:"port"`
	LogMode        string   `yaml:"log_mode"`
	JWTSecret      string   `yaml:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Load(log *logger.Logger) Config {
	cfg := Config{
		ServiceName: "pathwise-backend",
		Environment: "development",
		Version:     "dev",
		Port:        "8080",
		LogMode:     "development",
		JWTSecret:   "defaultsecret",
	}

	path := utils.GetEnv("CONFIG_PATH", "", log)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("config file unreadable, using env/defaults", "path", path, "error", err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Warn("config file unparsable, using env/defaults", "path", path, "error", err)
		}
	}

	cfg.ServiceName = utils.GetEnv("SERVICE_NAME", cfg.ServiceName, log)
	cfg.Environment = utils.GetEnv("ENVIRONMENT", cfg.Environment, log)
	cfg.Version = utils.GetEnv("SERVICE_VERSION", cfg.Version, log)
	cfg.Port = utils.GetEnv("PORT", cfg.Port, log)
	cfg.LogMode = utils.GetEnv("LOG_MODE", cfg.LogMode, log)
	cfg.JWTSecret = utils.GetEnv("JWT_SECRET_KEY", cfg.JWTSecret, log)
	return cfg
}
