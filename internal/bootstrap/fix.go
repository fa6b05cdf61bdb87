package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"github.com/MKPie/Fatality/internal/config"
	"github.com/MKPie/Fatality/internal/domain"
)

// FixDiagnostic applies the remediation for one failed diagnostic item
// and reruns the checks. Only items the checker marks fixable are
// accepted; a dead backend has to be started by the operator.
func (a *App) FixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	settingsChanged := false
	var fixErr error

	switch id {
	case "base_url":
		settings, settingsChanged = fixBaseURL(settings)
	case "watch_folder":
		if fixErr = fixWatchFolder(settings); fixErr == nil {
			a.restartWatcher(settings)
		}
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item %s has no automatic fix", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.runDiagnostics(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
		a.applySettings(settings)
	}

	report := a.runDiagnostics(settings)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

// fixBaseURL resets a malformed backend address to the default.
func fixBaseURL(settings domain.Settings) (domain.Settings, bool) {
	def := config.DefaultSettings().BaseURL
	if settings.BaseURL == def {
		return settings, false
	}
	settings.BaseURL = def
	return settings, true
}

// fixWatchFolder creates the configured watch folder.
func fixWatchFolder(settings domain.Settings) error {
	folder := strings.TrimSpace(settings.WatchFolder)
	if folder == "" {
		return fmt.Errorf("watch folder is not set")
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create watch folder %s: %w", folder, err)
	}
	return nil
}
