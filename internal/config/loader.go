package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/edgard/ticketbot/internal/keyword"
)

// Task names known to the scheduler.
const (
	TaskConfirmationSweep = "confirmation_sweep"
	TaskArchiveRetention  = "archive_retention"
	TaskSQLMaintenance    = "sql_maintenance"
)

var defaults = map[string]any{
	"logger.level": "info",
	"logger.json":  false,

	"discord.token":                 "",
	"discord.guild_id":              "",
	"discord.staff_role_id":         "",
	"discord.category_id":           "",
	"discord.transcript_channel_id": "",

	"ticket.confirm_timeout":  60 * time.Second,
	"ticket.grace_delay":      5 * time.Second,
	"ticket.transcript_limit": 1000,
	"ticket.timezone":         "UTC",

	"keyword_cooldown": time.Duration(0),

	"http.enabled": true,
	"http.addr":    ":8080",

	"database.path":              "storage.db",
	"database.archive_retention": 90 * 24 * time.Hour,

	"scheduler.tasks." + TaskConfirmationSweep + ".enabled":  true,
	"scheduler.tasks." + TaskConfirmationSweep + ".schedule": "*/10 * * * * *",
	"scheduler.tasks." + TaskArchiveRetention + ".enabled":   true,
	"scheduler.tasks." + TaskArchiveRetention + ".schedule":  "0 0 4 * * *",
	"scheduler.tasks." + TaskSQLMaintenance + ".enabled":     true,
	"scheduler.tasks." + TaskSQLMaintenance + ".schedule":    "0 30 4 * * 0",

	"messages.permission_denied": "You do not have permission to use this command.",
	"messages.general_error":     "Something went wrong. Please try again later.",
}

// LoadConfig reads the YAML file at path, overlays BOT_* environment
// variables (BOT_DISCORD_TOKEN sets discord.token) and validates the result.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("%w: read %s: %w", ErrConfiguration, path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrConfiguration, err)
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = append([]keyword.Rule(nil), keyword.DefaultRules...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
