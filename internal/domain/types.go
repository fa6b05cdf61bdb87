package domain

// JobPhase tracks the lifecycle of the single foreground job.
type JobPhase string

const (
	JobPhaseIdle       JobPhase = "idle"
	JobPhaseProcessing JobPhase = "processing"
	JobPhaseCompleted  JobPhase = "completed"
	JobPhaseError      JobPhase = "error"
)

// JobKind names one of the backend pipelines a job can run.
type JobKind string

const (
	JobKindScrape  JobKind = "scrape"
	JobKindTags    JobKind = "tags"
	JobKindWeights JobKind = "weights"
	JobKindFreight JobKind = "freight"
)

// LogLevel classifies a log entry for display.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelError   LogLevel = "error"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
)

// ParseLogLevel maps a wire-level severity string onto a LogLevel,
// falling back to info for anything unrecognized.
func ParseLogLevel(s string) LogLevel {
	switch LogLevel(s) {
	case LogLevelError, LogLevelSuccess, LogLevelWarning:
		return LogLevel(s)
	default:
		return LogLevelInfo
	}
}

// LogEntry is one line in the activity feed. Seq is assigned by the
// buffer and grows monotonically for the life of the application.
type LogEntry struct {
	Seq       int64    `json:"seq"`
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Message   string   `json:"message"`
	Level     LogLevel `json:"level"`
}

// JobSnapshot is the point-in-time view of the foreground job handed
// to the frontend.
type JobSnapshot struct {
	Phase       JobPhase `json:"phase"`
	Kind        JobKind  `json:"kind,omitempty"`
	Session     string   `json:"session,omitempty"`
	Progress    int      `json:"progress"`
	CurrentTask string   `json:"currentTask,omitempty"`
}

// TabularPreview is the header/row-count summary of an inspected
// spreadsheet.
type TabularPreview struct {
	Columns  []string `json:"columns"`
	RowCount int      `json:"rowCount"`
}

// Settings contains user-selectable runtime configuration for the
// console itself. Backend-side options live in RemoteConfig.
type Settings struct {
	BaseURL               string `json:"baseUrl"`
	WatchFolder           string `json:"watchFolder"`
	WatchEnabled          bool   `json:"watchEnabled"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds"`
}
