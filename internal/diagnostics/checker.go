package diagnostics

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MKPie/Fatality/internal/domain"
)

// pingTimeout bounds the backend reachability probe so startup never
// hangs on a dead address.
const pingTimeout = 5 * time.Second

// Checker validates the console's settings and its connection to the
// VendorFlow backend.
type Checker struct {
	ping       func(ctx context.Context, baseURL string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies. ping probes
// the backend at the given base URL and returns its identity banner.
func NewChecker(ping func(ctx context.Context, baseURL string) (string, error)) *Checker {
	return &Checker{
		ping:       ping,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(ctx context.Context, settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkBaseURL(settings.BaseURL),
		c.checkBackend(ctx, settings.BaseURL),
		c.checkWatchFolder(settings.WatchFolder, settings.WatchEnabled),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkBaseURL validates the configured backend address without
// touching the network.
func (c *Checker) checkBaseURL(baseURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:      "base_url",
		Name:    "Backend address",
		Fixable: true,
	}

	if strings.TrimSpace(baseURL) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Backend address is empty."
		item.Hint = "Set the VendorFlow API address in settings."
		return item
	}

	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend address is not a valid http(s) URL: %s", baseURL)
		item.Hint = "Use a full address like http://localhost:8000."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Address configured: %s", baseURL)
	return item
}

// checkBackend probes the backend's identity endpoint.
func (c *Checker) checkBackend(ctx context.Context, baseURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "backend",
		Name: "Backend connection",
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	banner, err := c.ping(ctx, baseURL)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend is not reachable: %v", err)
		item.Hint = "Start the VendorFlow API service or correct the address in settings."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Connected: %s", banner)
	return item
}

// checkWatchFolder validates the drop folder exists and is writable.
// With watching off the folder is not required.
func (c *Checker) checkWatchFolder(folder string, enabled bool) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:      "watch_folder",
		Name:    "Watch folder",
		Fixable: true,
	}

	if !enabled {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "Folder watching is off."
		return item
	}

	if strings.TrimSpace(folder) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Watch folder is empty."
		item.Hint = "Set the folder vendor files are dropped into."
		return item
	}

	if err := c.mkdirAll(folder, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create watch folder: %s", folder)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(folder, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Watch folder is not writable: %s", folder)
		item.Hint = "Choose a writable folder for vendor file drops."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable folder: %s", folder)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	ping func(ctx context.Context, baseURL string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		ping:       ping,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
