package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LineStats counts the non-blank lines of a JSON Lines file and the ones that
// failed to decode or validate.
type LineStats struct {
	SourceRows  int
	InvalidRows int
}

// LoadLines reads one product per line. Lines that fail to decode or validate are
// counted and skipped. limit > 0 stops after that many source rows.
func LoadLines(path string, limit int) ([]Product, LineStats, error) {
	var st LineStats
	f, err := os.Open(path)
	if err != nil {
		return nil, st, errors.Wrapf(err, "read %s", path)
	}
	defer f.Close()

	v := recordValidator()
	var products []Product
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 20*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(bytes.TrimPrefix(sc.Bytes(), utf8BOM))
		if len(line) == 0 {
			continue
		}
		st.SourceRows++
		var p Product
		if err := json.Unmarshal(line, &p); err != nil || v.Struct(&p) != nil {
			st.InvalidRows++
		} else {
			products = append(products, p)
		}
		if limit > 0 && st.SourceRows >= limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, st, errors.Wrapf(err, "scan %s", path)
	}
	return products, st, nil
}

// IsLinesFile reports whether path names a JSON Lines file by extension.
func IsLinesFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jl", ".jsonl", ".ndjson":
		return true
	}
	return false
}
