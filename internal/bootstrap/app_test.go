package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MKPie/Fatality/internal/config"
	"github.com/MKPie/Fatality/internal/diagnostics"
	"github.com/MKPie/Fatality/internal/domain"
	"github.com/MKPie/Fatality/internal/jobs"
	"github.com/MKPie/Fatality/internal/vendorflow"
)

// fakeStore keeps settings in memory for App tests.
type fakeStore struct {
	mu       sync.Mutex
	settings domain.Settings
	saves    int
}

// Load returns the stored settings.
func (s *fakeStore) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

// Save records the settings for later assertions.
func (s *fakeStore) Save(settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.saves++
	return nil
}

// newTestApp builds an App wired to the given backend address with a
// fast poll cadence.
func newTestApp(baseURL string) *App {
	settings := domain.Settings{BaseURL: baseURL, RequestTimeoutSeconds: 2}
	return &App{
		Settings:     settings,
		Store:        &fakeStore{settings: settings},
		Jobs:         jobs.NewManager(),
		Logs:         jobs.NewLogBuffer(jobs.DefaultLogCap),
		backend:      vendorflow.New(baseURL, 2*time.Second),
		pollInterval: 20 * time.Millisecond,
	}
}

// writeVendorCSV creates a vendor spreadsheet with n data rows.
func writeVendorCSV(t *testing.T, dir, name string, rows int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("Mfr Model,Price\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "MODEL-%03d,%d.99\n", i, 10+i)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write vendor csv: %v", err)
	}
	return path
}

// writeSSE sends one event payload in server-sent-event framing.
func writeSSE(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "data: %s\n\n", payload)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// waitForPhase polls until the job reaches the desired phase or times out.
func waitForPhase(t *testing.T, app *App, want domain.JobPhase) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if app.CurrentStatus().Phase == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("phase = %s, want %s", app.CurrentStatus().Phase, want)
}

// waitForCondition polls until check passes or times out.
func waitForCondition(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// assertFeedContains verifies some entry message contains the fragment.
func assertFeedContains(t *testing.T, entries []domain.LogEntry, fragment string) {
	t.Helper()
	for _, entry := range entries {
		if strings.Contains(entry.Message, fragment) {
			return
		}
	}
	t.Fatalf("no feed entry contains %q", fragment)
}

// assertItemStatus verifies one report item has the wanted status.
func assertItemStatus(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s status = %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("item %s not found in report", id)
}

// TestStartScrapeRunsJobToCompletion walks the full path: inspect a
// dropped vendor file, submit with derived defaults, follow the live
// stream, and land on a completed job with a success entry.
func TestStartScrapeRunsJobToCompletion(t *testing.T) {
	csvPath := writeVendorCSV(t, t.TempDir(), "Vendor-205.csv", 50)

	var captured struct {
		mu          sync.Mutex
		prefix      string
		modelColumn string
		endRow      string
		variation   string
		fileName    string
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/scrape/file", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		captured.mu.Lock()
		captured.prefix = r.FormValue("prefix")
		captured.modelColumn = r.FormValue("model_column")
		captured.endRow = r.FormValue("end_row")
		captured.variation = r.FormValue("variation_mode")
		if _, header, err := r.FormFile("file"); err == nil {
			captured.fileName = header.Filename
		}
		captured.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"started","session_id":"sess-205"}`)
	})
	mux.HandleFunc("/api/logs/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, `{"type":"progress","percentage":50,"current_item":"MODEL-025"}`)
		writeSSE(w, `{"type":"log","message":"Scraped MODEL-025","level":"info"}`)
		writeSSE(w, `{"type":"complete","status":"success","message":"Scrape finished"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	app := newTestApp(server.URL)

	report, err := app.InspectSpreadsheet(csvPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if report.Prefix != "205" || report.KeyColumn != "Mfr Model" {
		t.Fatalf("report = %+v, want prefix 205 and key column Mfr Model", report)
	}
	if report.Preview.RowCount != 50 {
		t.Fatalf("rowCount = %d, want 50", report.Preview.RowCount)
	}

	if _, err := app.StartScrape(domain.ScrapeParams{
		FilePath:    csvPath,
		ModelColumn: report.KeyColumn,
		Prefix:      report.Prefix,
		EndRow:      report.Preview.RowCount,
	}); err != nil {
		t.Fatalf("start scrape: %v", err)
	}

	waitForPhase(t, app, domain.JobPhaseCompleted)
	waitForCondition(t, "terminal feed entry", func() bool {
		entries := app.LogSince(0)
		return len(entries) > 0 && entries[len(entries)-1].Level == domain.LogLevelSuccess
	})

	status := app.CurrentStatus()
	if status.Progress != 100 {
		t.Fatalf("progress = %d, want 100", status.Progress)
	}
	if status.Session != "sess-205" {
		t.Fatalf("session = %q, want sess-205", status.Session)
	}

	captured.mu.Lock()
	defer captured.mu.Unlock()
	if captured.prefix != "205" {
		t.Fatalf("submitted prefix = %q, want 205", captured.prefix)
	}
	if captured.modelColumn != "Mfr Model" {
		t.Fatalf("submitted model_column = %q, want Mfr Model", captured.modelColumn)
	}
	if captured.endRow != "50" {
		t.Fatalf("submitted end_row = %q, want 50", captured.endRow)
	}
	if captured.variation != "None" {
		t.Fatalf("submitted variation_mode = %q, want None", captured.variation)
	}
	if captured.fileName != "Vendor-205.csv" {
		t.Fatalf("submitted file name = %q, want Vendor-205.csv", captured.fileName)
	}

	entries := app.LogSince(0)
	if entries[0].Level != domain.LogLevelInfo || !strings.Contains(entries[0].Message, "Vendor-205.csv") {
		t.Fatalf("first entry = %+v, want start entry naming the file", entries[0])
	}
	assertFeedContains(t, entries, "Scraped MODEL-025")
	if last := entries[len(entries)-1]; !strings.Contains(last.Message, "Scrape finished") {
		t.Fatalf("last entry = %+v, want the completion message", last)
	}
}

// TestStartRejectsSecondJobAndKeepsFeed pins the single-job guard: a
// second submission fails fast and the feed from the running job is
// untouched.
func TestStartRejectsSecondJobAndKeepsFeed(t *testing.T) {
	csvPath := writeVendorCSV(t, t.TempDir(), "Vendor-310.csv", 5)
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/scrape/file", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"started"}`)
	})
	mux.HandleFunc("/api/logs/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, `{"type":"progress","percentage":30}`)
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		writeSSE(w, `{"type":"complete","status":"success"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	app := newTestApp(server.URL)

	if _, err := app.StartScrape(domain.ScrapeParams{FilePath: csvPath, Prefix: "310", EndRow: 5}); err != nil {
		t.Fatalf("start first job: %v", err)
	}

	before := app.LogSince(0)
	if len(before) != 1 {
		t.Fatalf("feed length = %d, want the single start entry", len(before))
	}

	_, err := app.StartScrape(domain.ScrapeParams{FilePath: csvPath, Prefix: "310", EndRow: 5})
	if !errors.Is(err, jobs.ErrJobAlreadyRunning) {
		t.Fatalf("second start error = %v, want %v", err, jobs.ErrJobAlreadyRunning)
	}

	after := app.LogSince(0)
	if len(after) != 1 || after[0].Seq != before[0].Seq {
		t.Fatalf("feed changed after rejected start: %+v", after)
	}

	close(release)
	waitForPhase(t, app, domain.JobPhaseCompleted)
}

// TestStartScrapeRejectsInvalidParamsBeforeTouchingState checks that
// validation runs ahead of the job guard, so a bad form leaves the
// manager idle and the feed empty.
func TestStartScrapeRejectsInvalidParamsBeforeTouchingState(t *testing.T) {
	app := newTestApp("http://127.0.0.1:0")

	_, err := app.StartScrape(domain.ScrapeParams{FilePath: "/tmp/vendor.csv"})
	if !errors.Is(err, domain.ErrMissingPrefix) {
		t.Fatalf("error = %v, want %v", err, domain.ErrMissingPrefix)
	}

	if phase := app.CurrentStatus().Phase; phase != domain.JobPhaseIdle {
		t.Fatalf("phase = %s, want idle", phase)
	}
	if entries := app.LogSince(0); len(entries) != 0 {
		t.Fatalf("feed = %+v, want empty", entries)
	}
}

// TestStopJobClearsStateAndSilencesStream verifies stop semantics: the
// job returns to idle, exactly one stop entry lands, the backend stop
// endpoint is called, and the dead stream adds nothing afterwards.
func TestStopJobClearsStateAndSilencesStream(t *testing.T) {
	csvPath := writeVendorCSV(t, t.TempDir(), "Vendor-440.csv", 5)
	var stopCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/scrape/file", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"started"}`)
	})
	mux.HandleFunc("/api/logs/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, `{"type":"progress","percentage":40,"current_item":"MODEL-002"}`)
		<-r.Context().Done()
	})
	mux.HandleFunc("/api/stop", func(w http.ResponseWriter, r *http.Request) {
		stopCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"stopped"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	app := newTestApp(server.URL)

	if _, err := app.StartScrape(domain.ScrapeParams{FilePath: csvPath, Prefix: "440", EndRow: 5}); err != nil {
		t.Fatalf("start job: %v", err)
	}
	waitForCondition(t, "first progress fold", func() bool {
		return app.CurrentStatus().Progress == 40
	})

	if err := app.StopJob(); err != nil {
		t.Fatalf("stop job: %v", err)
	}

	status := app.CurrentStatus()
	if status.Phase != domain.JobPhaseIdle || status.Progress != 0 {
		t.Fatalf("status after stop = %+v, want idle with zero progress", status)
	}

	entries := app.LogSince(0)
	if last := entries[len(entries)-1]; last.Level != domain.LogLevelWarning || !strings.Contains(last.Message, "stopped") {
		t.Fatalf("last entry = %+v, want the stop warning", last)
	}
	if stopCalls.Load() != 1 {
		t.Fatalf("backend stop calls = %d, want 1", stopCalls.Load())
	}

	// The cancelled stream must not add anything after the stop entry.
	count := len(entries)
	time.Sleep(150 * time.Millisecond)
	if got := len(app.LogSince(0)); got != count {
		t.Fatalf("feed grew from %d to %d entries after stop", count, got)
	}

	if err := app.StopJob(); !errors.Is(err, jobs.ErrNoRunningJob) {
		t.Fatalf("second stop error = %v, want %v", err, jobs.ErrNoRunningJob)
	}
}

// TestSubmitFailureProducesSingleErrorEntry covers a busy backend: the
// job flips to error with exactly one error entry after the start one.
func TestSubmitFailureProducesSingleErrorEntry(t *testing.T) {
	csvPath := writeVendorCSV(t, t.TempDir(), "Vendor-550.csv", 5)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/scrape/file", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Already processing"}`, http.StatusConflict)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	app := newTestApp(server.URL)

	if _, err := app.StartScrape(domain.ScrapeParams{FilePath: csvPath, Prefix: "550", EndRow: 5}); err != nil {
		t.Fatalf("start job: %v", err)
	}

	waitForPhase(t, app, domain.JobPhaseError)
	waitForCondition(t, "error feed entry", func() bool {
		entries := app.LogSince(0)
		return len(entries) == 2
	})

	entries := app.LogSince(0)
	if entries[1].Level != domain.LogLevelError {
		t.Fatalf("second entry level = %s, want error", entries[1].Level)
	}
	if !strings.Contains(entries[1].Message, "already processing") {
		t.Fatalf("error entry = %q, want busy explanation", entries[1].Message)
	}
}

// TestStartConsumesStreamedSubmissionResponse covers backends that
// stream line-delimited status on the submission response itself,
// including a malformed line degrading to a raw info entry.
func TestStartConsumesStreamedSubmissionResponse(t *testing.T) {
	csvPath := writeVendorCSV(t, t.TempDir(), "Vendor-660.csv", 5)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/scrape/file", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"log":"Processing MODEL-001","type":"info"}`)
		fmt.Fprintln(w, `{"progress":40}`)
		fmt.Fprintln(w, `plain text heartbeat`)
		fmt.Fprintln(w, `{"status":"complete","message":"Scrape finished"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	app := newTestApp(server.URL)

	if _, err := app.StartScrape(domain.ScrapeParams{FilePath: csvPath, Prefix: "660", EndRow: 5}); err != nil {
		t.Fatalf("start job: %v", err)
	}

	waitForPhase(t, app, domain.JobPhaseCompleted)
	waitForCondition(t, "terminal feed entry", func() bool {
		entries := app.LogSince(0)
		return len(entries) > 0 && entries[len(entries)-1].Level == domain.LogLevelSuccess
	})

	if progress := app.CurrentStatus().Progress; progress != 100 {
		t.Fatalf("progress = %d, want 100", progress)
	}

	entries := app.LogSince(0)
	assertFeedContains(t, entries, "Processing MODEL-001")
	assertFeedContains(t, entries, "plain text heartbeat")
	if last := entries[len(entries)-1]; !strings.Contains(last.Message, "Scrape finished") {
		t.Fatalf("last entry = %+v, want the completion message", last)
	}
}

// TestStartFallsBackToPollingWhenStreamUnavailable covers the status
// poller path: no live stream, completion detected from the first poll
// reporting the backend went quiet.
func TestStartFallsBackToPollingWhenStreamUnavailable(t *testing.T) {
	csvPath := writeVendorCSV(t, t.TempDir(), "Vendor-770.csv", 5)
	var statusCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/scrape/file", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"started"}`)
	})
	mux.HandleFunc("/api/logs/stream", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stream disabled", http.StatusNotFound)
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if statusCalls.Add(1) == 1 {
			fmt.Fprint(w, `{"is_processing":true,"current_task":"Scraping row 5","progress":5,"total":10}`)
			return
		}
		fmt.Fprint(w, `{"is_processing":false,"current_task":"","progress":10,"total":10}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	app := newTestApp(server.URL)

	if _, err := app.StartScrape(domain.ScrapeParams{FilePath: csvPath, Prefix: "770", EndRow: 5}); err != nil {
		t.Fatalf("start job: %v", err)
	}

	waitForPhase(t, app, domain.JobPhaseCompleted)
	waitForCondition(t, "terminal feed entry", func() bool {
		entries := app.LogSince(0)
		return len(entries) > 0 && entries[len(entries)-1].Level == domain.LogLevelSuccess
	})

	if progress := app.CurrentStatus().Progress; progress != 100 {
		t.Fatalf("progress = %d, want 100", progress)
	}
	if statusCalls.Load() < 2 {
		t.Fatalf("status polls = %d, want at least 2", statusCalls.Load())
	}
}

// TestWatchedFileAutoScrapes covers the unattended path: a dropped
// vendor file starts a scrape with its derived defaults when the
// backend's auto-scrape toggle is on.
func TestWatchedFileAutoScrapes(t *testing.T) {
	csvPath := writeVendorCSV(t, t.TempDir(), "Vendor-881.csv", 8)

	var captured struct {
		mu             sync.Mutex
		prefix, endRow string
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"automation":{"auto_scrape":true},"scraping":{"variation_mode":"None","save_interval":5,"end_row":1000}}`)
	})
	mux.HandleFunc("/api/scrape/file", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		captured.mu.Lock()
		captured.prefix = r.FormValue("prefix")
		captured.endRow = r.FormValue("end_row")
		captured.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"started"}`)
	})
	mux.HandleFunc("/api/logs/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, `{"type":"complete","status":"completed"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	app := newTestApp(server.URL)
	app.onWatchedFile(csvPath)

	waitForPhase(t, app, domain.JobPhaseCompleted)

	captured.mu.Lock()
	defer captured.mu.Unlock()
	if captured.prefix != "881" {
		t.Fatalf("submitted prefix = %q, want 881", captured.prefix)
	}
	if captured.endRow != "8" {
		t.Fatalf("submitted end_row = %q, want 8", captured.endRow)
	}
	assertFeedContains(t, app.LogSince(0), "Vendor-881.csv")
}

// TestWatchedFileOnlyAnnouncesWhenAutoScrapeOff verifies a dropped
// file is logged but no job starts with automation off.
func TestWatchedFileOnlyAnnouncesWhenAutoScrapeOff(t *testing.T) {
	csvPath := writeVendorCSV(t, t.TempDir(), "Vendor-882.csv", 3)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"automation":{"auto_scrape":false}}`)
	})
	mux.HandleFunc("/api/scrape/file", func(w http.ResponseWriter, r *http.Request) {
		t.Error("scrape submitted with auto-scrape off")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	app := newTestApp(server.URL)
	app.onWatchedFile(csvPath)

	if phase := app.CurrentStatus().Phase; phase != domain.JobPhaseIdle {
		t.Fatalf("phase = %s, want idle", phase)
	}
	assertFeedContains(t, app.LogSince(0), "Detected Vendor-882.csv")
}

// TestFixDiagnosticCreatesWatchFolder checks the watch folder fix and
// that unfixable items are rejected.
func TestFixDiagnosticCreatesWatchFolder(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "drop")
	store := &fakeStore{settings: domain.Settings{
		BaseURL:               "http://localhost:8000",
		WatchFolder:           folder,
		WatchEnabled:          true,
		RequestTimeoutSeconds: 5,
	}}

	app := &App{
		Store: store,
		Jobs:  jobs.NewManager(),
		Logs:  jobs.NewLogBuffer(jobs.DefaultLogCap),
		checker: diagnostics.NewChecker(func(ctx context.Context, baseURL string) (string, error) {
			return "VendorFlow API 1.0.0", nil
		}),
		backend: vendorflow.New("http://localhost:8000", time.Second),
	}
	defer app.Shutdown(context.Background())

	report, err := app.FixDiagnostic("watch_folder")
	if err != nil {
		t.Fatalf("fix watch folder: %v", err)
	}
	if _, err := os.Stat(folder); err != nil {
		t.Fatalf("stat watch folder: %v", err)
	}
	assertItemStatus(t, report, "watch_folder", domain.DiagnosticStatusPass)

	if _, err := app.FixDiagnostic("backend"); err == nil {
		t.Fatal("expected backend item to have no automatic fix")
	}
}

// TestFixDiagnosticResetsBaseURL checks the address fix saves and
// applies the default backend address.
func TestFixDiagnosticResetsBaseURL(t *testing.T) {
	store := &fakeStore{settings: domain.Settings{
		BaseURL:               "http://wrong-host:1",
		RequestTimeoutSeconds: 5,
	}}

	app := &App{
		Store: store,
		Jobs:  jobs.NewManager(),
		Logs:  jobs.NewLogBuffer(jobs.DefaultLogCap),
		checker: diagnostics.NewChecker(func(ctx context.Context, baseURL string) (string, error) {
			return "VendorFlow API 1.0.0", nil
		}),
		backend: vendorflow.New("http://wrong-host:1", time.Second),
	}

	if _, err := app.FixDiagnostic("base_url"); err != nil {
		t.Fatalf("fix base url: %v", err)
	}

	def := config.DefaultSettings().BaseURL
	saved, err := store.Load()
	if err != nil {
		t.Fatalf("load saved settings: %v", err)
	}
	if saved.BaseURL != def {
		t.Fatalf("saved base URL = %q, want %q", saved.BaseURL, def)
	}
	if app.backendClient().BaseURL() != def {
		t.Fatalf("client base URL = %q, want %q", app.backendClient().BaseURL(), def)
	}
}
