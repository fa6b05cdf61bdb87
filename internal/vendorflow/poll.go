package vendorflow

import (
	"context"
	"math"
	"time"
)

// DefaultPollInterval is how often the fallback poller samples the
// status endpoint.
const DefaultPollInterval = 2 * time.Second

// Percent derives a 0..100 display value from the backend's raw
// progress counters.
func (s BackendStatus) Percent() int {
	if s.Total > 0 {
		return int(math.Round(float64(s.Progress) / float64(s.Total) * 100))
	}
	return s.Progress
}

// StatusPoller tracks an accepted job through the status endpoint
// when no live stream is available.
type StatusPoller struct {
	client   *Client
	interval time.Duration
}

// NewStatusPoller creates a poller over client.
func NewStatusPoller(client *Client, interval time.Duration) *StatusPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &StatusPoller{client: client, interval: interval}
}

// Run samples the status endpoint until the tracked job finishes or
// ctx is cancelled. onStatus receives each snapshot observed while
// the backend reports processing; onDone runs once when it stops.
//
// The poller is started for a job the backend has already accepted,
// so the first poll reporting not-processing counts as the finishing
// transition. A failed poll is skipped without surfacing anything; a
// single dropped request must not flip the job into an error state.
func (p *StatusPoller) Run(ctx context.Context, onStatus func(BackendStatus), onDone func()) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := p.client.Status(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if status.IsProcessing {
			if onStatus != nil {
				onStatus(status)
			}
			continue
		}

		if onDone != nil {
			onDone()
		}
		return
	}
}
