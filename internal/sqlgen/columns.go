// Package sqlgen renders product collections as batched INSERT statements and
// parses such statements back into rows.
package sqlgen

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"catalogrecon/internal/catalog"
)

type Kind int

const (
	Text Kind = iota
	Numeric
	Integer
)

// Column binds a SQL column to a product field.
type Column struct {
	Name  string
	Field string
	Kind  Kind
	Def   []string
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

func (c Column) hasDef(words string) bool {
	return strings.Contains(strings.ToUpper(strings.Join(c.Def, " ")), words)
}

func (c Column) primary() bool { return c.hasDef("PRIMARY KEY") }

// unique reports whether the column definition already enforces uniqueness.
func (c Column) unique() bool { return c.primary() || c.hasDef("UNIQUE") }

var DefaultColumns = []Column{
	{Name: "id", Field: "id", Kind: Text, Def: []string{"TEXT", "PRIMARY KEY"}},
	{Name: "reference_id", Field: "referenceId", Kind: Text, Def: []string{"TEXT"}},
	{Name: "name", Field: "name", Kind: Text, Def: []string{"TEXT", "NOT NULL"}},
	{Name: "category", Field: "category", Kind: Text, Def: []string{"TEXT"}},
	{Name: "brand_name", Field: "brand_name", Kind: Text, Def: []string{"TEXT"}},
	{Name: "tags", Field: "tags", Kind: Text, Def: []string{"TEXT"}},
	{Name: "description", Field: "description", Kind: Text, Def: []string{"TEXT"}},
	{Name: "specifications", Field: "specifications", Kind: Text, Def: []string{"TEXT"}},
	{Name: "details", Field: "details", Kind: Text, Def: []string{"TEXT"}},
	{Name: "price", Field: "price", Kind: Numeric, Def: []string{"NUMERIC(12,2)"}},
	{Name: "price_sale", Field: "price_sale", Kind: Numeric, Def: []string{"NUMERIC(12,2)"}},
	{Name: "stock_status", Field: "stockStatus", Kind: Text, Def: []string{"TEXT"}},
	{Name: "stock_quantity", Field: "stockQuantity", Kind: Integer, Def: []string{"INTEGER"}},
	{Name: "stock", Field: "stock", Kind: Integer, Def: []string{"INTEGER"}},
	{Name: "images", Field: "images", Kind: Text, Def: []string{"TEXT"}},
}

// SelectColumns picks columns from DefaultColumns by SQL name, keeping the given
// order. An empty list returns every default column.
func SelectColumns(names []string) ([]Column, error) {
	if len(names) == 0 {
		return append([]Column(nil), DefaultColumns...), nil
	}
	out := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := columnByName(DefaultColumns, strings.TrimSpace(n))
		if !ok {
			return nil, errors.Errorf("unknown column %q", n)
		}
		out = append(out, c)
	}
	return out, nil
}

func columnByName(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Quote renders s as a single-quoted SQL string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// NormalizeDecimal parses a price as written in product files. Decimal commas are
// accepted when the value has no dot.
func NormalizeDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// literal renders the value of c for p.
func literal(c Column, p *catalog.Product) string {
	v := p.Get(c.Field)
	switch c.Kind {
	case Numeric:
		d, ok := NormalizeDecimal(v)
		if !ok {
			return "NULL"
		}
		return d.StringFixed(2)
	case Integer:
		if catalog.IsEmpty(v) {
			return "NULL"
		}
		if _, err := strconv.Atoi(strings.TrimSpace(v)); err != nil {
			return "NULL"
		}
		return strings.TrimSpace(v)
	default:
		return Quote(v)
	}
}
