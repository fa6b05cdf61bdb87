package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MKPie/Fatality/internal/domain"
)

// DefaultLogCap bounds the activity feed to the most recent entries.
const DefaultLogCap = 100

// LogBuffer stores recent log entries in arrival order and provides
// incremental reads by sequence number. When full, the oldest entry
// is evicted first. Sequence numbers keep growing across evictions
// and resets so subscribers never see a seq twice.
type LogBuffer struct {
	mu         sync.RWMutex
	nextSeq    int64
	maxEntries int
	entries    []domain.LogEntry
}

// NewLogBuffer creates a bounded in-memory log buffer.
func NewLogBuffer(maxEntries int) *LogBuffer {
	if maxEntries <= 0 {
		maxEntries = DefaultLogCap
	}

	return &LogBuffer{
		maxEntries: maxEntries,
		entries:    make([]domain.LogEntry, 0, maxEntries),
	}
}

// Append adds one entry, assigning its sequence, identifier, and
// display timestamp.
func (b *LogBuffer) Append(level domain.LogLevel, message string) domain.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	entry := domain.LogEntry{
		Seq:       b.nextSeq,
		ID:        uuid.NewString(),
		Timestamp: time.Now().Format("15:04:05"),
		Message:   message,
		Level:     level,
	}

	b.entries = append(b.entries, entry)
	if len(b.entries) > b.maxEntries {
		trim := len(b.entries) - b.maxEntries
		b.entries = append([]domain.LogEntry(nil), b.entries[trim:]...)
	}

	return entry
}

// Since returns entries with sequence strictly greater than seq.
func (b *LogBuffer) Since(seq int64) []domain.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.entries) == 0 {
		return nil
	}

	out := make([]domain.LogEntry, 0, len(b.entries))
	for _, entry := range b.entries {
		if entry.Seq > seq {
			out = append(out, entry)
		}
	}
	return out
}

// Entries returns a copy of the retained feed in arrival order.
func (b *LogBuffer) Entries() []domain.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.LogEntry(nil), b.entries...)
}

// Len reports how many entries are currently retained.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Reset drops all retained entries. Sequence numbering continues
// from where it left off.
func (b *LogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = b.entries[:0]
}
