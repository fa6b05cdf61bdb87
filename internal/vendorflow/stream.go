package vendorflow

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// maxLine bounds a single fragment or event line.
const maxLine = 1 << 20

// Fragment is one status line from a streamed submission response.
// All fields are optional; a line usually carries either a log
// message, a progress update, or a terminal status.
type Fragment struct {
	Log      string   `json:"log,omitempty"`
	Type     string   `json:"type,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
	Status   string   `json:"status,omitempty"`
	Message  string   `json:"message,omitempty"`

	// Raw marks a line that was not valid JSON; Log carries the
	// verbatim text.
	Raw bool `json:"-"`
}

// Terminal reports whether the fragment ends the job.
func (f Fragment) Terminal() bool {
	return f.Status == "complete" || f.Status == "completed" || f.Status == "error"
}

// Succeeded reports the termination outcome.
func (f Fragment) Succeeded() bool {
	return f.Terminal() && f.Status != "error"
}

// FragmentReader consumes a newline-delimited JSON response body one
// fragment at a time. Partial trailing data is buffered until its
// newline arrives. A line that fails to parse is handed back as a raw
// fragment instead of an error, so malformed input degrades to
// best-effort display without killing the stream.
type FragmentReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// NewFragmentReader wraps a streaming response body. The reader owns
// body and releases it on Close.
func NewFragmentReader(body io.ReadCloser) *FragmentReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	return &FragmentReader{body: body, scanner: scanner}
}

// Next returns the next fragment, io.EOF at end of stream, or the
// transport error that broke the connection.
func (r *FragmentReader) Next() (Fragment, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		var frag Fragment
		if err := json.Unmarshal([]byte(line), &frag); err != nil {
			return Fragment{Log: line, Type: "info", Raw: true}, nil
		}
		return frag, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Fragment{}, err
	}
	return Fragment{}, io.EOF
}

// Close releases the underlying connection.
func (r *FragmentReader) Close() error {
	return r.body.Close()
}
