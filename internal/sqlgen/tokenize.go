package sqlgen

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Value is one field of a parsed VALUES row.
type Value struct {
	Text   string
	Quoted bool
	Null   bool
}

type Insert struct {
	Table   string
	Columns []string
	Rows    [][]Value
}

// SplitStatements cuts a script on semicolons that sit outside string literals.
// Line comments are dropped and empty statements skipped.
func SplitStatements(script string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	rs := []rune(script)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if quote != 0 {
			cur.WriteRune(r)
			if r == quote {
				if i+1 < len(rs) && rs[i+1] == quote {
					cur.WriteRune(rs[i+1])
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch {
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
			cur.WriteRune('\n')
		case r == ';':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// IsInsert reports whether stmt is an INSERT statement.
func IsInsert(stmt string) bool {
	return hasPrefixFold(strings.TrimSpace(stmt), "INSERT")
}

// ParseInsert reads INSERT INTO t (cols) VALUES (...), (...) and ignores whatever
// follows the last row, such as an ON CONFLICT clause.
func ParseInsert(stmt string) (Insert, error) {
	s := strings.TrimSpace(stmt)
	if !hasPrefixFold(s, "INSERT") {
		return Insert{}, errors.New("not an INSERT statement")
	}
	s = strings.TrimSpace(s[len("INSERT"):])
	if !hasPrefixFold(s, "INTO") {
		return Insert{}, errors.New("expected INTO after INSERT")
	}
	s = strings.TrimSpace(s[len("INTO"):])

	end := strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
	if end <= 0 {
		return Insert{}, errors.New("missing table name")
	}
	ins := Insert{Table: unquoteIdent(s[:end])}
	s = strings.TrimSpace(s[end:])

	if strings.HasPrefix(s, "(") {
		rows, rest, err := scanTuples(s, 1)
		if err != nil {
			return Insert{}, errors.Wrap(err, "column list")
		}
		for _, v := range rows[0] {
			ins.Columns = append(ins.Columns, unquoteIdent(v.Text))
		}
		s = strings.TrimSpace(rest)
	}
	if !hasPrefixFold(s, "VALUES") {
		return Insert{}, errors.Errorf("expected VALUES in insert into %s", ins.Table)
	}
	rows, _, err := scanTuples(strings.TrimSpace(s[len("VALUES"):]), -1)
	if err != nil {
		return Insert{}, errors.Wrapf(err, "insert into %s", ins.Table)
	}
	for i, row := range rows {
		if len(ins.Columns) > 0 && len(row) != len(ins.Columns) {
			return Insert{}, errors.Errorf("insert into %s: row %d has %d values for %d columns", ins.Table, i+1, len(row), len(ins.Columns))
		}
	}
	ins.Rows = rows
	return ins, nil
}

// scanTuples reads up to max comma-separated parenthesized tuples (max < 0 means
// no limit) from the start of s and returns the unconsumed remainder.
//
// The scanner is outside or inside a string. A quote of either style opens a
// string which only the same quote closes; a doubled quote is an escaped quote.
// Depth moves on ( [ and ) ] only outside strings, and field and row boundaries
// are recognized only outside strings.
func scanTuples(s string, max int) ([][]Value, string, error) {
	var (
		rows   [][]Value
		row    []Value
		field  strings.Builder
		quoted bool
		quote  rune
		depth  int
	)
	endField := func() {
		raw := field.String()
		field.Reset()
		if quoted {
			row = append(row, Value{Text: raw, Quoted: true})
		} else {
			t := strings.TrimSpace(raw)
			row = append(row, Value{Text: t, Null: strings.EqualFold(t, "NULL")})
		}
		quoted = false
	}

	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if quote != 0 {
			if r == quote {
				inLiteral := depth == 1 && quoted
				if i+1 < len(rs) && rs[i+1] == quote {
					if inLiteral {
						field.WriteRune(r)
					} else {
						field.WriteString(string([]rune{r, r}))
					}
					i++
					continue
				}
				quote = 0
				if !inLiteral {
					field.WriteRune(r)
				}
				continue
			}
			field.WriteRune(r)
			continue
		}

		switch r {
		case '\'', '"':
			quote = r
			if depth == 1 && strings.TrimSpace(field.String()) == "" {
				field.Reset()
				quoted = true
			} else {
				field.WriteRune(r)
			}
		case '(', '[':
			depth++
			if depth > 1 {
				field.WriteRune(r)
			}
		case ')', ']':
			depth--
			switch {
			case depth < 0:
				return nil, "", errors.Errorf("unbalanced %q at offset %d", r, i)
			case depth == 0:
				endField()
				rows = append(rows, row)
				row = nil
				if max > 0 && len(rows) == max {
					return rows, string(rs[i+1:]), nil
				}
			default:
				field.WriteRune(r)
			}
		case ',':
			if depth == 1 {
				endField()
			} else if depth > 1 {
				field.WriteRune(r)
			}
		default:
			switch {
			case depth > 0:
				if !(quoted && unicode.IsSpace(r)) {
					field.WriteRune(r)
				}
			case unicode.IsSpace(r):
			default:
				if len(rows) == 0 {
					return nil, "", errors.Errorf("unexpected %q before first row", r)
				}
				return rows, string(rs[i:]), nil
			}
		}
	}
	if quote != 0 {
		return nil, "", errors.New("unterminated string literal")
	}
	if depth != 0 {
		return nil, "", errors.New("unterminated row")
	}
	if len(rows) == 0 {
		return nil, "", errors.New("no rows")
	}
	return rows, "", nil
}

func unquoteIdent(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '`') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
