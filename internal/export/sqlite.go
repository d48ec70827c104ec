package export

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/sqlgen"

	_ "modernc.org/sqlite"
)

var sqliteTypes = map[string]string{
	"price":         "REAL",
	"price_sale":    "REAL",
	"stockQuantity": "INTEGER",
	"stock":         "INTEGER",
}

var indexed = []string{"id", "referenceId", "brand_name", "category"}

// WriteSQLite replaces path with a fresh database holding one table of rows.
func WriteSQLite(path, table string, cols []string, rows []Row) error {
	_ = os.Remove(path)
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	var defs []string
	for _, c := range cols {
		t := sqliteTypes[c]
		if t == "" {
			t = "TEXT"
		}
		defs = append(defs, fmt.Sprintf("%q %s", c, t))
	}
	if _, err := db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)); err != nil {
		return err
	}
	if _, err := db.Exec(fmt.Sprintf(`CREATE TABLE %q (%s)`, table, strings.Join(defs, ","))); err != nil {
		return errors.Wrap(err, "create table")
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	qCols := make([]string, len(cols))
	for i, c := range cols {
		qCols[i] = fmt.Sprintf("%q", c)
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.Preparex(fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, table, strings.Join(qCols, ","), ph))
	if err != nil {
		tx.Rollback()
		return err
	}
	for i, r := range rows {
		args := make([]any, 0, len(cols))
		for _, c := range cols {
			args = append(args, sqliteValue(c, r[c]))
		}
		if _, err := stmt.Exec(args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return errors.Wrapf(err, "insert row %d", i+1)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, c := range indexed {
		if !contains(cols, c) {
			continue
		}
		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "idx_%s_%s" ON %q(%q)`, table, c, table, c)
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}

func sqliteValue(col, v string) any {
	if catalog.IsEmpty(v) {
		switch sqliteTypes[col] {
		case "REAL", "INTEGER":
			return nil
		}
		return v
	}
	switch sqliteTypes[col] {
	case "REAL":
		if d, ok := sqlgen.NormalizeDecimal(v); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	case "INTEGER":
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
		return nil
	}
	return v
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
