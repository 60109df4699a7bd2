package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration. Values are read from a YAML
// file and can be overridden by environment variables. The bot token and the
// database URL may be empty at startup; outbound calls will then fail at call
// time rather than preventing the process from starting.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		// APIBaseURL overrides the Telegram Bot API endpoint, used in tests.
		APIBaseURL string `yaml:"api_base_url"`
	} `yaml:"telegram"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		Port string `yaml:"port" validate:"required"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
	} `yaml:"log"`
}

// LoadConfig reads configuration from the specified YAML file, applies
// environment variable overrides and validates the result. A missing config
// file is not an error; defaults plus environment variables are used instead.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	config.Server.Port = ":8080"
	config.Log.Level = "info"

	file, err := os.Open(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
	} else {
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_API_BASE_URL"); v != "" {
		config.Telegram.APIBaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Database.URL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		config.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
}
