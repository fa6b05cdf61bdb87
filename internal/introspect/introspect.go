// Package introspect derives scrape defaults from a vendor
// spreadsheet before submission: a header/row-count preview, the key
// column holding model numbers, and the SKU prefix embedded in the
// filename.
package introspect

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/MKPie/Fatality/internal/domain"
)

// prefixPattern matches a run of exactly three digits at the end of
// an extension-stripped filename. A longer digit run does not count.
var prefixPattern = regexp.MustCompile(`(?:^|[^0-9])([0-9]{3})$`)

// Report carries everything Inspect derives from one file.
type Report struct {
	Preview     domain.TabularPreview `json:"preview"`
	KeyColumn   string                `json:"keyColumn"`
	Prefix      string                `json:"prefix"`
	PrefixFound bool                  `json:"prefixFound"`
}

// Inspect parses raw spreadsheet content and derives defaults.
//
// Lines are split on line feeds and fields on bare commas with one
// surrounding quote pair stripped. Embedded commas and escaped quotes
// are not handled; vendor exports in the wild are plain enough that
// matching the backend's reading of the same files matters more than
// RFC 4180 fidelity.
func Inspect(filename string, content []byte) (Report, error) {
	if bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content) {
		return Report{}, fmt.Errorf("%s: content is not readable text", filename)
	}

	var nonEmpty []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}

	report := Report{KeyColumn: domain.DefaultModelColumn}
	if len(nonEmpty) > 0 {
		columns := splitHeader(nonEmpty[0])
		report.Preview = domain.TabularPreview{
			Columns:  columns,
			RowCount: len(nonEmpty) - 1,
		}
		report.KeyColumn = detectKeyColumn(columns)
	}

	if prefix, ok := detectPrefix(filename); ok {
		report.Prefix = prefix
		report.PrefixFound = true
	}
	return report, nil
}

// InspectFile reads path from disk and inspects it under its base
// name.
func InspectFile(path string) (Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read spreadsheet: %w", err)
	}
	return Inspect(filepath.Base(path), content)
}

func splitHeader(line string) []string {
	fields := strings.Split(line, ",")
	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		f = strings.TrimPrefix(f, `"`)
		f = strings.TrimSuffix(f, `"`)
		columns = append(columns, f)
	}
	return columns
}

// detectKeyColumn prefers a header naming both the manufacturer and
// the model, then any model column, then the first column.
func detectKeyColumn(columns []string) string {
	for _, c := range columns {
		lower := strings.ToLower(c)
		if strings.Contains(lower, "model") && strings.Contains(lower, "mfr") {
			return c
		}
	}
	for _, c := range columns {
		if strings.Contains(strings.ToLower(c), "model") {
			return c
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return domain.DefaultModelColumn
}

func detectPrefix(filename string) (string, bool) {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	m := prefixPattern.FindStringSubmatch(base)
	if m == nil {
		return "", false
	}
	return m[1], true
}
