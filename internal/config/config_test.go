package config

import (
	"testing"
	"time"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load without DISCORD_TOKEN should fail")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.App.Addr())
	}
	if cfg.Ticket.Cooldown() != 5*time.Minute {
		t.Errorf("Cooldown = %v, want 5m", cfg.Ticket.Cooldown())
	}
	if cfg.Ticket.DeleteDelay() != 3*time.Second {
		t.Errorf("DeleteDelay = %v, want 3s", cfg.Ticket.DeleteDelay())
	}
	if cfg.Ticket.TranscriptLimit != 1024 {
		t.Errorf("TranscriptLimit = %d, want 1024", cfg.Ticket.TranscriptLimit)
	}
	if cfg.Media.Retention() != 30*time.Minute {
		t.Errorf("Retention = %v, want 30m", cfg.Media.Retention())
	}
	if cfg.Media.SweepInterval() != 30*time.Minute {
		t.Errorf("SweepInterval = %v, want 30m", cfg.Media.SweepInterval())
	}
	if cfg.Media.DownloadTimeout() != 30*time.Second {
		t.Errorf("DownloadTimeout = %v, want 30s", cfg.Media.DownloadTimeout())
	}
	if cfg.Media.CacheDir != "./media_cache" {
		t.Errorf("CacheDir = %q", cfg.Media.CacheDir)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Level = %q", cfg.Logger.Level)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-123")
	t.Setenv("TICKET_COOLDOWN_SECONDS", "60")
	t.Setenv("MEDIA_RETENTION_MINUTES", "10")
	t.Setenv("STAFF_ROLE_ID", "role-1")
	t.Setenv("LOG_CHANNEL_ID", "chan-log")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ticket.Cooldown() != time.Minute {
		t.Errorf("Cooldown = %v, want 1m", cfg.Ticket.Cooldown())
	}
	if cfg.Media.Retention() != 10*time.Minute {
		t.Errorf("Retention = %v, want 10m", cfg.Media.Retention())
	}
	if cfg.Ticket.StaffRoleID != "role-1" {
		t.Errorf("StaffRoleID = %q", cfg.Ticket.StaffRoleID)
	}
	if cfg.Discord.LogChannelID != "chan-log" {
		t.Errorf("LogChannelID = %q", cfg.Discord.LogChannelID)
	}
}

func TestBadIntFallsBack(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-123")
	t.Setenv("TICKET_COOLDOWN_SECONDS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ticket.CooldownSeconds != 300 {
		t.Errorf("CooldownSeconds = %d, want default 300", cfg.Ticket.CooldownSeconds)
	}
}
