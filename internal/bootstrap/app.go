package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/MKPie/Fatality/internal/config"
	"github.com/MKPie/Fatality/internal/diagnostics"
	"github.com/MKPie/Fatality/internal/domain"
	"github.com/MKPie/Fatality/internal/introspect"
	"github.com/MKPie/Fatality/internal/jobs"
	"github.com/MKPie/Fatality/internal/vendorflow"
	"github.com/MKPie/Fatality/internal/watch"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const (
	stopRequestTimeout = 5 * time.Second
	downloadTimeout    = 5 * time.Minute
)

var spreadsheetDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Spreadsheets",
		Pattern:     "*.csv;*.xlsx;*.xls",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, jobs, the backend client, and UI runtime
// callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Logs        *jobs.LogBuffer
	Diagnostics domain.DiagnosticReport

	assets  fs.FS
	checker *diagnostics.Checker

	// pollInterval overrides the status poll cadence; zero uses the
	// client default.
	pollInterval time.Duration

	mu         sync.Mutex
	backend    *vendorflow.Client
	watcher    *watch.Watcher
	runtimeCtx context.Context
	cancelJob  context.CancelFunc
	// jobGen rises on every job start and stop. Folds carry the
	// generation they were started under and fall through once it is
	// stale, so a stopped job cannot touch its successor's state.
	jobGen uint64
}

// submitFunc posts one prepared job submission to the backend.
type submitFunc func(ctx context.Context, client *vendorflow.Client) (*vendorflow.StartResponse, error)

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	store := config.NewJSONStore(config.SettingsPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(config.ApplyEnvOverrides(settings))

	app := &App{
		Settings: settings,
		Store:    store,
		Jobs:     jobs.NewManager(),
		Logs:     jobs.NewLogBuffer(jobs.DefaultLogCap),
		assets:   assets,
		checker:  diagnostics.NewChecker(pingBackend),
		backend:  vendorflow.New(settings.BaseURL, requestTimeout(settings)),
	}
	app.Diagnostics = app.checker.Run(context.Background(), settings)
	app.restartWatcher(settings)

	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "VendorFlow Console",
		Width:       1280,
		Height:      820,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// Shutdown stops the folder watcher and any running job on window close.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	cancel := a.cancelJob
	a.cancelJob = nil
	watcher := a.watcher
	a.watcher = nil
	a.runtimeCtx = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		watcher.Close()
	}
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(config.ApplyEnvOverrides(settings))

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, rebuilds the backend
// client and folder watcher, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.applySettings(normalized)
	a.runDiagnostics(normalized)
	return normalized, nil
}

// RefreshDiagnostics reloads settings and reruns the startup checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(config.ApplyEnvOverrides(settings))

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return a.runDiagnostics(settings), nil
}

// PickSpreadsheet opens a native file dialog for vendor file selection.
func (a *App) PickSpreadsheet() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select vendor file",
		Filters: spreadsheetDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickWatchFolder opens a native directory picker for the process folder.
func (a *App) PickWatchFolder() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select watch folder",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// InspectSpreadsheet reads a local spreadsheet and derives form
// defaults from its header and filename.
func (a *App) InspectSpreadsheet(path string) (introspect.Report, error) {
	report, err := introspect.InspectFile(path)
	if err != nil {
		return introspect.Report{}, fmt.Errorf("inspect %s: %w", filepath.Base(path), err)
	}
	return report, nil
}

// OpenLocalFolder opens the given path (or the downloads folder) in
// the platform file manager.
func (a *App) OpenLocalFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		dir, err := downloadsDir()
		if err != nil {
			return err
		}
		target = dir
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve folder path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// StartScrape uploads a vendor spreadsheet and begins a scrape job.
func (a *App) StartScrape(params domain.ScrapeParams) (domain.JobSnapshot, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return a.Jobs.Snapshot(), err
	}

	message := "Starting scrape for " + filepath.Base(params.FilePath)
	return a.start(domain.JobKindScrape, message, func(ctx context.Context, client *vendorflow.Client) (*vendorflow.StartResponse, error) {
		return client.SubmitScrape(ctx, params)
	})
}

// StartTags begins a tag processing or tag push job.
func (a *App) StartTags(params domain.TagsParams) (domain.JobSnapshot, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return a.Jobs.Snapshot(), err
	}

	message := "Processing tags from " + filepath.Base(params.ExcelPath)
	if params.Mode == domain.TagsModePush {
		message = "Pushing tags from " + filepath.Base(params.CSVPath)
	}
	return a.start(domain.JobKindTags, message, func(ctx context.Context, client *vendorflow.Client) (*vendorflow.StartResponse, error) {
		return client.SubmitTags(ctx, params)
	})
}

// StartWeights begins a weight/dimension sync job.
func (a *App) StartWeights(params domain.WeightParams) (domain.JobSnapshot, error) {
	if err := params.Validate(); err != nil {
		return a.Jobs.Snapshot(), err
	}

	message := "Starting weight sync for " + filepath.Base(params.VendorPath)
	return a.start(domain.JobKindWeights, message, func(ctx context.Context, client *vendorflow.Client) (*vendorflow.StartResponse, error) {
		return client.SubmitWeights(ctx, params)
	})
}

// StartFreight begins a freight-API sync job.
func (a *App) StartFreight(params domain.FreightParams) (domain.JobSnapshot, error) {
	if err := params.Validate(); err != nil {
		return a.Jobs.Snapshot(), err
	}

	message := "Starting freight sync for " + filepath.Base(params.LookupPath)
	return a.start(domain.JobKindFreight, message, func(ctx context.Context, client *vendorflow.Client) (*vendorflow.StartResponse, error) {
		return client.SubmitFreight(ctx, params)
	})
}

// StopJob halts the running job locally, then asks the backend to stop
// its side. The local job is cleared even when the backend cannot be
// reached.
func (a *App) StopJob() error {
	a.mu.Lock()
	cancel := a.cancelJob
	a.cancelJob = nil
	a.jobGen++
	client := a.backend
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := a.Jobs.Stop(); err != nil {
		return err
	}

	a.appendLog(domain.LogLevelWarning, "Job stopped by user")
	a.pushStatus()

	ctx, release := context.WithTimeout(context.Background(), stopRequestTimeout)
	defer release()
	if err := client.Stop(ctx); err != nil {
		a.appendLog(domain.LogLevelWarning, "Backend stop request failed: "+err.Error())
	}
	return nil
}

// CurrentStatus returns the job snapshot for initial render and
// polling fallback.
func (a *App) CurrentStatus() domain.JobSnapshot {
	return a.Jobs.Snapshot()
}

// LogSince returns activity entries with sequence greater than seq.
func (a *App) LogSince(seq int64) []domain.LogEntry {
	return a.Logs.Since(seq)
}

// LoadRemoteConfig fetches the backend's configuration document.
func (a *App) LoadRemoteConfig() (domain.RemoteConfig, error) {
	return a.backendClient().LoadConfig(context.Background())
}

// SaveRemoteConfig replaces the backend's configuration document.
func (a *App) SaveRemoteConfig(cfg domain.RemoteConfig) error {
	return a.backendClient().SaveConfig(context.Background(), cfg)
}

// SetRemoteOption updates one backend option by section and key,
// read-modify-write against the full document.
func (a *App) SetRemoteOption(section, key, value string) (domain.RemoteConfig, error) {
	client := a.backendClient()
	cfg, err := client.LoadConfig(context.Background())
	if err != nil {
		return domain.RemoteConfig{}, fmt.Errorf("load backend config: %w", err)
	}
	if err := cfg.UpdateField(section, key, value); err != nil {
		return domain.RemoteConfig{}, err
	}
	if err := client.SaveConfig(context.Background(), cfg); err != nil {
		return domain.RemoteConfig{}, fmt.Errorf("save backend config: %w", err)
	}
	return cfg, nil
}

// DownloadResult fetches a produced file from the backend into the
// local downloads folder and returns the saved path.
func (a *App) DownloadResult(filename string) (string, error) {
	dir, err := downloadsDir()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()

	path, err := a.backendClient().DownloadResult(ctx, filename, dir)
	if err != nil {
		a.appendLog(domain.LogLevelError, "Download "+filename+" failed: "+err.Error())
		return "", err
	}

	a.appendLog(domain.LogLevelSuccess, "Saved "+filepath.Base(path))
	return path, nil
}

// start begins the single foreground job and submits it in the
// background. The manager guard runs before anything else, so a
// rejected start leaves the activity feed exactly as it was.
func (a *App) start(kind domain.JobKind, startMessage string, submit submitFunc) (domain.JobSnapshot, error) {
	if err := a.Jobs.Begin(kind); err != nil {
		return a.Jobs.Snapshot(), err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.jobGen++
	gen := a.jobGen
	a.cancelJob = cancel
	client := a.backend
	a.mu.Unlock()

	a.Logs.Reset()
	a.appendLog(domain.LogLevelInfo, startMessage)
	a.pushStatus()

	go a.runJob(ctx, gen, client, submit)
	return a.Jobs.Snapshot(), nil
}

// runJob submits the job and follows whichever status channel the
// backend provides until a terminal event or cancellation.
func (a *App) runJob(ctx context.Context, gen uint64, client *vendorflow.Client, submit submitFunc) {
	resp, err := submit(ctx, client)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		a.foldDone(gen, false, describeSubmitError(err))
		return
	}

	if resp.Streamed() {
		a.consumeFragments(ctx, gen, resp.Stream)
		return
	}

	if resp.Ack.SessionID != "" && a.jobGenMatches(gen) {
		a.Jobs.AttachSession(resp.Ack.SessionID)
		a.pushStatus()
	}

	stream, err := client.OpenLogStream(ctx, resp.Ack.SessionID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.pollStatus(ctx, gen, client)
		return
	}
	defer stream.Close()
	a.consumeEvents(ctx, gen, client, stream)
}

// consumeFragments folds a line-delimited submission response into job
// state. The response body carries the whole job, so running out of
// lines without a terminal status is a failure.
func (a *App) consumeFragments(ctx context.Context, gen uint64, stream *vendorflow.FragmentReader) {
	defer stream.Close()

	for {
		frag, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				a.foldDone(gen, false, "Backend stream ended before the job finished")
				return
			}
			a.foldDone(gen, false, "Job stream broke: "+err.Error())
			return
		}

		if frag.Log != "" {
			a.foldLog(gen, domain.ParseLogLevel(frag.Type), frag.Log)
		}
		if frag.Progress != nil {
			a.foldProgress(gen, int(math.Round(*frag.Progress)), "")
		}
		if frag.Terminal() {
			a.foldDone(gen, frag.Succeeded(), terminalMessage(frag.Succeeded(), frag.Message))
			return
		}
	}
}

// consumeEvents folds live stream events into job state until a
// terminal event arrives. A dropped stream downgrades to polling so a
// flaky connection does not strand an accepted job.
func (a *App) consumeEvents(ctx context.Context, gen uint64, client *vendorflow.Client, stream *vendorflow.EventStream) {
	for {
		ev, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.pollStatus(ctx, gen, client)
			return
		}

		switch ev.Type {
		case vendorflow.EventProgress:
			if v, ok := progressValue(ev); ok {
				a.foldProgress(gen, v, ev.CurrentItem)
			}
		case vendorflow.EventLog:
			a.foldLog(gen, domain.ParseLogLevel(ev.Level), ev.Message)
		case vendorflow.EventComplete, vendorflow.EventError:
			a.foldDone(gen, !ev.Failed(), terminalMessage(!ev.Failed(), ev.Message))
			return
		}
	}
}

// pollStatus tracks an accepted job through the status endpoint when
// no live stream is available.
func (a *App) pollStatus(ctx context.Context, gen uint64, client *vendorflow.Client) {
	poller := vendorflow.NewStatusPoller(client, a.pollInterval)
	poller.Run(ctx,
		func(status vendorflow.BackendStatus) {
			a.foldProgress(gen, status.Percent(), status.CurrentTask)
		},
		func() {
			a.foldDone(gen, true, "Job completed")
		})
}

// foldProgress applies a progress update from the job started at gen.
func (a *App) foldProgress(gen uint64, progress int, task string) {
	if !a.jobGenMatches(gen) {
		return
	}
	if a.Jobs.SetProgress(progress, task) {
		a.pushStatus()
	}
}

// foldLog appends a feed entry from the job started at gen.
func (a *App) foldLog(gen uint64, level domain.LogLevel, message string) {
	if !a.jobGenMatches(gen) {
		return
	}
	a.appendLog(level, message)
}

// foldDone finishes the job started at gen with one terminal entry.
func (a *App) foldDone(gen uint64, success bool, message string) {
	if !a.jobGenMatches(gen) {
		return
	}
	if a.Jobs.Complete(success) {
		level := domain.LogLevelSuccess
		if !success {
			level = domain.LogLevelError
		}
		a.appendLog(level, message)
		a.pushStatus()
	}
	a.clearJobHandle(gen)
}

// jobGenMatches reports whether gen is still the live job generation.
func (a *App) jobGenMatches(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.jobGen == gen
}

// clearJobHandle releases the cancellation handle of a finished job.
func (a *App) clearJobHandle(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.jobGen == gen && a.cancelJob != nil {
		a.cancelJob()
		a.cancelJob = nil
	}
}

// appendLog stores one feed entry and pushes it to the frontend.
func (a *App) appendLog(level domain.LogLevel, message string) {
	entry := a.Logs.Append(level, message)
	a.emit("log:entry", entry)
}

// pushStatus sends the current job snapshot to the frontend.
func (a *App) pushStatus() {
	a.emit("job:status", a.Jobs.Snapshot())
}

// emit pushes one named event to the frontend when the runtime is up.
func (a *App) emit(name string, payload any) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, name, payload)
	}
}

// backendClient returns the client for the currently configured
// backend address.
func (a *App) backendClient() *vendorflow.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.backend
}

// applySettings swaps the live settings and rebuilds the pieces that
// depend on them.
func (a *App) applySettings(settings domain.Settings) {
	a.mu.Lock()
	a.Settings = settings
	a.backend = vendorflow.New(settings.BaseURL, requestTimeout(settings))
	a.mu.Unlock()

	a.restartWatcher(settings)
}

// restartWatcher reconciles the folder watcher with settings.
func (a *App) restartWatcher(settings domain.Settings) {
	a.mu.Lock()
	watcher := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	if watcher != nil {
		watcher.Close()
	}

	if !settings.WatchEnabled {
		return
	}

	next, err := watch.New(settings.WatchFolder, a.onWatchedFile)
	if err != nil {
		a.appendLog(domain.LogLevelWarning, "Folder watching unavailable: "+err.Error())
		return
	}

	a.mu.Lock()
	a.watcher = next
	a.mu.Unlock()
}

// watchedFile pairs a detected spreadsheet with its derived scrape
// defaults.
type watchedFile struct {
	Path   string            `json:"path"`
	Report introspect.Report `json:"report"`
}

// onWatchedFile announces a spreadsheet dropped into the watched
// folder and ships its derived defaults to the frontend. When the
// backend's auto-scrape toggle is on and nothing is running, the
// scrape starts unattended from those defaults.
func (a *App) onWatchedFile(path string) {
	report, err := introspect.InspectFile(path)
	if err != nil {
		a.appendLog(domain.LogLevelWarning, "Dropped file "+filepath.Base(path)+" is not readable: "+err.Error())
		return
	}

	a.appendLog(domain.LogLevelInfo, "Detected "+filepath.Base(path)+" in watch folder")
	a.emit("watch:file", watchedFile{Path: path, Report: report})

	a.maybeAutoScrape(path, report)
}

// maybeAutoScrape starts a scrape for a dropped file if the backend's
// automation settings ask for one. Every bail-out is silent or a
// single warning; a dropped file must never error the console.
func (a *App) maybeAutoScrape(path string, report introspect.Report) {
	if a.Jobs.IsProcessing() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopRequestTimeout)
	defer cancel()
	cfg, err := a.backendClient().LoadConfig(ctx)
	if err != nil || !cfg.Automation.AutoScrape {
		return
	}

	params := domain.ScrapeParams{
		FilePath:      path,
		ModelColumn:   report.KeyColumn,
		Prefix:        report.Prefix,
		VariationMode: cfg.Scraping.VariationMode,
		StartRow:      1,
		EndRow:        report.Preview.RowCount,
		SaveInterval:  cfg.Scraping.SaveInterval,
	}
	if !report.PrefixFound {
		params.Prefix = cfg.Scraping.Prefix
	}
	if params.EndRow < 1 {
		params.EndRow = cfg.Scraping.EndRow
	}
	params.Normalize()
	if err := params.Validate(); err != nil {
		a.appendLog(domain.LogLevelWarning, "Auto-scrape skipped for "+filepath.Base(path)+": "+err.Error())
		return
	}

	if _, err := a.StartScrape(params); err != nil && !errors.Is(err, jobs.ErrJobAlreadyRunning) {
		a.appendLog(domain.LogLevelWarning, "Auto-scrape failed to start: "+err.Error())
	}
}

// runDiagnostics evaluates the checks against settings and caches the
// report.
func (a *App) runDiagnostics(settings domain.Settings) domain.DiagnosticReport {
	report := a.checker.Run(context.Background(), settings)

	a.mu.Lock()
	a.Diagnostics = report
	a.mu.Unlock()
	return report
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// pingBackend is the connectivity probe behind the backend diagnostic.
func pingBackend(ctx context.Context, baseURL string) (string, error) {
	health, err := vendorflow.New(baseURL, 0).Health(ctx)
	if err != nil {
		return "", err
	}
	if health.Service == "" {
		return health.Status, nil
	}
	return health.Service + " " + health.Version, nil
}

// normalizeSettings trims user inputs and restores required defaults.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.BaseURL = strings.TrimRight(strings.TrimSpace(settings.BaseURL), "/")
	settings.WatchFolder = strings.TrimSpace(settings.WatchFolder)
	if settings.BaseURL == "" {
		settings.BaseURL = config.DefaultSettings().BaseURL
	}
	if settings.RequestTimeoutSeconds <= 0 {
		settings.RequestTimeoutSeconds = config.DefaultSettings().RequestTimeoutSeconds
	}
	return settings
}

// requestTimeout converts the configured unary timeout to a duration.
func requestTimeout(settings domain.Settings) time.Duration {
	return time.Duration(settings.RequestTimeoutSeconds) * time.Second
}

// progressValue derives the 0..100 display value from whichever fields
// the progress event carried.
func progressValue(ev vendorflow.StreamEvent) (int, bool) {
	if ev.Percentage != nil {
		return int(math.Round(*ev.Percentage)), true
	}
	if ev.Total > 0 {
		return int(math.Round(float64(ev.Processed) / float64(ev.Total) * 100)), true
	}
	return 0, false
}

// terminalMessage picks the feed entry text for a finished job.
func terminalMessage(success bool, message string) string {
	if message != "" {
		return message
	}
	if success {
		return "Job completed"
	}
	return "Job failed"
}

// describeSubmitError turns a failed submission into feed entry text.
func describeSubmitError(err error) string {
	var apiErr *vendorflow.APIError
	if errors.As(err, &apiErr) && apiErr.Busy() {
		return "Backend is already processing another job"
	}
	return "Job failed: " + err.Error()
}

// downloadsDir resolves where result files land on this machine.
func downloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
