// Package formatter renders comparison reports for export and the terminal.
package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

// Formatter turns a report into bytes.
type Formatter interface {
	Format(report *domain.ComparisonReport) ([]byte, error)
}

// New returns the formatter for a format name ("json" or "text").
func New(format string, width int) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSON(), nil
	case "text", "":
		return NewTerminal(width), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// FileName returns the export file name for a report timestamp.
func FileName(ts time.Time) string {
	return "model_comparison_" + ts.UTC().Format("20060102_150405") + ".json"
}
