package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort       string        `mapstructure:"SERVER_PORT"`
	MongoURI         string        `mapstructure:"MONGO_URI"`
	MongoDBName      string        `mapstructure:"MONGO_DB_NAME"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	JWTTTL           time.Duration `mapstructure:"JWT_TTL"`
	AdminInviteToken string        `mapstructure:"ADMIN_INVITE_TOKEN"`
	ClientURL        string        `mapstructure:"CLIENT_URL"`
	LogFile          string        `mapstructure:"LOG_FILE"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	DBTimeout        time.Duration `mapstructure:"DB_TIMEOUT"`
}

var keys = []string{
	"SERVER_PORT", "MONGO_URI", "MONGO_DB_NAME", "JWT_SECRET", "JWT_TTL",
	"ADMIN_INVITE_TOKEN", "CLIENT_URL", "LOG_FILE", "LOG_LEVEL", "DB_TIMEOUT",
}

// Load reads an optional env file into the process environment and then
// resolves every setting from the environment, falling back to defaults.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "task_manager")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("ADMIN_INVITE_TOKEN", "")
	v.SetDefault("CLIENT_URL", "*")
	v.SetDefault("LOG_FILE", "logs/server.log")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_TIMEOUT", "10s")
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.DBTimeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT must be positive, got %s", c.DBTimeout)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.ServerPort
}
