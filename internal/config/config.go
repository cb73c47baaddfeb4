package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the agent.
type Config struct {
	App     AppConfig
	Discord DiscordConfig
	Ticket  TicketConfig
	Media   MediaConfig
	Logger  LoggerConfig
}

// AppConfig controls the operator HTTP surface.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// DiscordConfig holds gateway connection and destination identifiers.
type DiscordConfig struct {
	Token        string
	GuildID      string
	LogChannelID string
}

// TicketConfig defines ticket workflow identifiers and timings.
type TicketConfig struct {
	StaffRoleID       string
	OwnerID           string
	CategoryID        string
	ArchiveCategoryID string
	WelcomeRoleID     string
	ResolvedRoleID    string
	CooldownSeconds   int
	DeleteDelaySecs   int
	TranscriptLimit   int
}

// MediaConfig defines the attachment cache behavior.
type MediaConfig struct {
	CacheDir            string
	RetentionMinutes    int
	SweepIntervalMins   int
	DownloadTimeoutSecs int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "community-agent"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Discord: DiscordConfig{
			Token:        token,
			GuildID:      os.Getenv("GUILD_ID"),
			LogChannelID: os.Getenv("LOG_CHANNEL_ID"),
		},
		Ticket: TicketConfig{
			StaffRoleID:       os.Getenv("STAFF_ROLE_ID"),
			OwnerID:           os.Getenv("OWNER_ID"),
			CategoryID:        os.Getenv("TICKET_CATEGORY_ID"),
			ArchiveCategoryID: os.Getenv("TICKET_ARCHIVE_CATEGORY_ID"),
			WelcomeRoleID:     os.Getenv("WELCOME_ROLE_ID"),
			ResolvedRoleID:    os.Getenv("RESOLVED_ROLE_ID"),
			CooldownSeconds:   getEnvAsInt("TICKET_COOLDOWN_SECONDS", 300),
			DeleteDelaySecs:   getEnvAsInt("CLOSE_DELETE_DELAY_SECONDS", 3),
			TranscriptLimit:   getEnvAsInt("TRANSCRIPT_FIELD_LIMIT", 1024),
		},
		Media: MediaConfig{
			CacheDir:            getEnv("MEDIA_CACHE_DIR", "./media_cache"),
			RetentionMinutes:    getEnvAsInt("MEDIA_RETENTION_MINUTES", 30),
			SweepIntervalMins:   getEnvAsInt("MEDIA_SWEEP_INTERVAL_MINUTES", 30),
			DownloadTimeoutSecs: getEnvAsInt("MEDIA_DOWNLOAD_TIMEOUT_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address for the operator surface.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Cooldown returns the ticket creation cooldown window.
func (t TicketConfig) Cooldown() time.Duration {
	return time.Duration(t.CooldownSeconds) * time.Second
}

// DeleteDelay returns the close-fallback channel deletion delay.
func (t TicketConfig) DeleteDelay() time.Duration {
	return time.Duration(t.DeleteDelaySecs) * time.Second
}

// Retention returns the media retention window.
func (m MediaConfig) Retention() time.Duration {
	return time.Duration(m.RetentionMinutes) * time.Minute
}

// SweepInterval returns the period between cache sweeps.
func (m MediaConfig) SweepInterval() time.Duration {
	return time.Duration(m.SweepIntervalMins) * time.Minute
}

// DownloadTimeout returns the per-attachment download timeout.
func (m MediaConfig) DownloadTimeout() time.Duration {
	return time.Duration(m.DownloadTimeoutSecs) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
