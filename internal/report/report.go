package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// SampleSize bounds every per-record list written into a report.
const SampleSize = 100

// Sample returns at most n leading items, never nil so reports serialize "[]".
func Sample[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// Truncate shortens s to max runes followed by "..." for display in reports.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir report dir")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode report")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write report %s", path)
	}
	return nil
}

// DefaultPath places the report next to the target file: products.json ->
// products-<kind>-report.json.
func DefaultPath(target, kind string) string {
	ext := filepath.Ext(target)
	stem := target[:len(target)-len(ext)]
	return stem + "-" + kind + "-report.json"
}
