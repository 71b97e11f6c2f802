package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "NOMAD_SCANNER_CONFIG"
	baseURLEnv       = "NOMAD_BASE_URL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"

	defaultBaseURL = "https://nomad-lab.eu/prod/v1/api/v1"
)

// Config holds high-level settings required across the application.
type Config struct {
	API           APIConfig          `yaml:"api"`
	Selection     SelectionConfig    `yaml:"selection"`
	Output        OutputConfig       `yaml:"output"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// APIConfig describes how to reach the NOMAD search API.
type APIConfig struct {
	BaseURL        string `yaml:"baseUrl"`
	PageSize       int    `yaml:"pageSize"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// SelectionConfig controls deterministic sampling.
type SelectionConfig struct {
	Seed                 int    `yaml:"seed"`
	AuthorQuantity       string `yaml:"authorQuantity"`
	MaxAuthorsPerCode    int    `yaml:"maxAuthorsPerCode"`
	MaxDatasetsPerAuthor int    `yaml:"maxDatasetsPerAuthor"`
}

// OutputConfig places persisted tables, per-code entries, and run history.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	HistoryPath string `yaml:"historyPath"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(baseURLEnv); v != "" {
		c.API.BaseURL = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.API.BaseURL != "" {
		base.API.BaseURL = override.API.BaseURL
	}
	if override.API.PageSize > 0 {
		base.API.PageSize = override.API.PageSize
	}
	if override.API.TimeoutSeconds > 0 {
		base.API.TimeoutSeconds = override.API.TimeoutSeconds
	}

	if override.Selection.Seed != 0 {
		base.Selection.Seed = override.Selection.Seed
	}
	if override.Selection.AuthorQuantity != "" {
		base.Selection.AuthorQuantity = override.Selection.AuthorQuantity
	}
	if override.Selection.MaxAuthorsPerCode > 0 {
		base.Selection.MaxAuthorsPerCode = override.Selection.MaxAuthorsPerCode
	}
	if override.Selection.MaxDatasetsPerAuthor > 0 {
		base.Selection.MaxDatasetsPerAuthor = override.Selection.MaxDatasetsPerAuthor
	}

	if override.Output.Dir != "" {
		base.Output.Dir = override.Output.Dir
	}
	if override.Output.HistoryPath != "" {
		base.Output.HistoryPath = override.Output.HistoryPath
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        defaultBaseURL,
			PageSize:       500,
			TimeoutSeconds: 60,
		},
		Selection: SelectionConfig{
			Seed:                 0,
			AuthorQuantity:       "main_author",
			MaxAuthorsPerCode:    25,
			MaxDatasetsPerAuthor: 10,
		},
		Output: OutputConfig{
			Dir:         ".",
			HistoryPath: "runs.db",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
