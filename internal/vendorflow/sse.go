package vendorflow

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Event type discriminators on the live log/progress stream.
const (
	EventProgress = "progress"
	EventLog      = "log"
	EventComplete = "complete"
	EventError    = "error"
)

// StreamEvent is one decoded event from the live stream. Fields are
// populated according to Type.
type StreamEvent struct {
	Type        string   `json:"type"`
	Percentage  *float64 `json:"percentage,omitempty"`
	CurrentItem string   `json:"current_item,omitempty"`
	Processed   int      `json:"processed,omitempty"`
	Total       int      `json:"total,omitempty"`
	Message     string   `json:"message,omitempty"`
	Level       string   `json:"level,omitempty"`
	Status      string   `json:"status,omitempty"`

	// Raw marks a payload that was not valid JSON; Message carries
	// the verbatim text and the event is presented as an info log.
	Raw bool `json:"-"`
}

// Failed reports whether a complete event carries a failure status.
func (e StreamEvent) Failed() bool {
	return e.Type == EventError || (e.Type == EventComplete && e.Status == "error")
}

// EventStream reads server-sent events from the backend's log stream.
// One live stream exists per active job.
type EventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	data    []string
}

// OpenLogStream connects to the live log/progress stream. A non-empty
// session scopes the stream to one job on backends that key them; the
// shipped backend exposes a single global stream and ignores it. The
// stream stays open until ctx is cancelled, Close is called, or the
// server ends it.
func (c *Client) OpenLogStream(ctx context.Context, session string) (*EventStream, error) {
	path := "/api/logs/stream"
	if session != "" {
		path += "?session=" + url.QueryEscape(session)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return newEventStream(resp.Body), nil
}

func newEventStream(body io.ReadCloser) *EventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	return &EventStream{body: body, scanner: scanner}
}

// Next returns the next event, io.EOF when the server closes the
// stream, or the transport error that broke it. Comment lines and
// non-data fields are skipped; an event is dispatched at its blank
// separator line.
func (s *EventStream) Next() (StreamEvent, error) {
	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")

		if line == "" {
			if len(s.data) == 0 {
				continue
			}
			payload := strings.Join(s.data, "\n")
			s.data = nil
			return decodeStreamEvent(payload), nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		if field == "data" {
			s.data = append(s.data, strings.TrimPrefix(value, " "))
		}
	}

	if err := s.scanner.Err(); err != nil {
		return StreamEvent{}, err
	}
	return StreamEvent{}, io.EOF
}

// Close releases the underlying connection.
func (s *EventStream) Close() error {
	return s.body.Close()
}

// decodeStreamEvent parses one event payload. Untyped payloads with a
// message are treated as plain log entries; undecodable payloads keep
// their raw text and degrade to an info log line.
func decodeStreamEvent(payload string) StreamEvent {
	var ev StreamEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return StreamEvent{Type: EventLog, Level: "info", Message: payload, Raw: true}
	}
	if ev.Type == "" && ev.Message != "" {
		ev.Type = EventLog
	}
	return ev
}
