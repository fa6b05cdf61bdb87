package config

import (
	"os"
	"path/filepath"

	"github.com/MKPie/Fatality/internal/domain"
)

// Environment overrides, loaded from a .env file in development.
const (
	EnvBaseURL      = "FATALITY_API_URL"
	EnvSettingsPath = "FATALITY_SETTINGS"
	EnvWatchFolder  = "FATALITY_WATCH_FOLDER"
)

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		BaseURL:               "http://localhost:8000",
		WatchFolder:           filepath.Join(homeDir, "vendor_data", "process"),
		WatchEnabled:          false,
		RequestTimeoutSeconds: 30,
	}
}

// SettingsPath resolves the settings file location, honoring the
// environment override.
func SettingsPath() string {
	if p := os.Getenv(EnvSettingsPath); p != "" {
		return p
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".fatality", "settings.json")
}

// ApplyEnvOverrides layers process environment on top of stored
// settings so a dev backend can be targeted without editing the
// saved file.
func ApplyEnvOverrides(s domain.Settings) domain.Settings {
	if v := os.Getenv(EnvBaseURL); v != "" {
		s.BaseURL = v
	}
	if v := os.Getenv(EnvWatchFolder); v != "" {
		s.WatchFolder = v
	}
	return s
}
