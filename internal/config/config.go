// Package config loads the bot configuration from config.yaml and BOT_*
// environment variables, applies defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edgard/ticketbot/internal/keyword"
)

// ErrConfiguration wraps every load or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config is the root configuration.
type Config struct {
	Logger          LoggerConfig    `mapstructure:"logger"`
	Discord         DiscordConfig   `mapstructure:"discord"`
	Ticket          TicketConfig    `mapstructure:"ticket"`
	Keywords        []keyword.Rule  `mapstructure:"keywords"         validate:"dive"`
	KeywordCooldown time.Duration   `mapstructure:"keyword_cooldown" validate:"min=0"`
	HTTP            HTTPConfig      `mapstructure:"http"`
	Database        DatabaseConfig  `mapstructure:"database"`
	Scheduler       SchedulerConfig `mapstructure:"scheduler"`
	Messages        MessagesConfig  `mapstructure:"messages"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DiscordConfig identifies the bot and the guild objects tickets depend on.
type DiscordConfig struct {
	Token               string `mapstructure:"token"                 validate:"required"`
	GuildID             string `mapstructure:"guild_id"              validate:"required,numeric"`
	StaffRoleID         string `mapstructure:"staff_role_id"         validate:"required,numeric"`
	CategoryID          string `mapstructure:"category_id"           validate:"required,numeric"`
	TranscriptChannelID string `mapstructure:"transcript_channel_id" validate:"required,numeric"`
}

type TicketConfig struct {
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"  validate:"min=1s,max=1h"`
	GraceDelay      time.Duration `mapstructure:"grace_delay"      validate:"min=0,max=1m"`
	TranscriptLimit int           `mapstructure:"transcript_limit" validate:"min=1,max=10000"`
	// Timezone is the IANA zone used for transcript timestamps.
	Timezone string `mapstructure:"timezone" validate:"required"`
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"    validate:"required_if=Enabled true"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// ArchiveRetention is how long ledger entries are kept; zero keeps them
	// forever.
	ArchiveRetention time.Duration `mapstructure:"archive_retention" validate:"min=0"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds user-facing replies that operators may reword.
type MessagesConfig struct {
	PermissionDenied string `mapstructure:"permission_denied" validate:"required"`
	GeneralError     string `mapstructure:"general_error"     validate:"required"`
}

// Validate checks the struct tags and the values they cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Ticket.Timezone); err != nil {
		return fmt.Errorf("ticket.timezone: %w", err)
	}
	return nil
}

// Location returns the transcript time zone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ticket.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
