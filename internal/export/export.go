// Package export writes a product collection as reference CSV, a SQLite table, an
// XLSX sheet and a markdown profile.
package export

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"catalogrecon/internal/catalog"
)

// Columns is the export column order, by product field name.
var Columns = catalog.Fields()

type Row map[string]string

func BuildRows(products []catalog.Product, cols []string) []Row {
	out := make([]Row, 0, len(products))
	for i := range products {
		row := make(Row, len(cols))
		for _, c := range cols {
			row[c] = products[i].Get(c)
		}
		out = append(out, row)
	}
	return out
}

func WriteCSV(path string, cols []string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	if err := writeCSVRecord(f, cols); err != nil {
		return err
	}
	for _, r := range rows {
		rec := make([]string, len(cols))
		for i, c := range cols {
			rec[i] = r[c]
		}
		if err := writeCSVRecord(f, rec); err != nil {
			return err
		}
	}
	return f.Close()
}

// writeCSVRecord quotes only fields that need it and ends rows with "\n".
func writeCSVRecord(w io.Writer, rec []string) error {
	var b strings.Builder
	for i, field := range rec {
		if i > 0 {
			b.WriteByte(',')
		}
		if needsCSVQuote(field) {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		} else {
			b.WriteString(field)
		}
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func needsCSVQuote(s string) bool {
	return strings.ContainsAny(s, ",\"\n\r")
}

// Dedupe orders products by id and keeps the last record of every non-empty id.
// Records without an id are all kept. It returns the number of records dropped.
func Dedupe(products []catalog.Product) ([]catalog.Product, int) {
	rs := append([]catalog.Product(nil), products...)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
	lastByID := make(map[string]int, len(rs))
	for i := range rs {
		if !catalog.IsEmpty(rs[i].ID) {
			lastByID[rs[i].ID] = i
		}
	}
	out := make([]catalog.Product, 0, len(rs))
	for i := range rs {
		if last, ok := lastByID[rs[i].ID]; ok && last != i {
			continue
		}
		out = append(out, rs[i])
	}
	return out, len(rs) - len(out)
}
