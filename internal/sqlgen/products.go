package sqlgen

import (
	"github.com/pkg/errors"

	"catalogrecon/internal/catalog"
)

// ParseScript parses every INSERT statement of a SQL script. Other statements are
// skipped; tables other than table are skipped when table is set.
func ParseScript(script, table string) ([]Insert, error) {
	var out []Insert
	for i, stmt := range SplitStatements(script) {
		if !IsInsert(stmt) {
			continue
		}
		ins, err := ParseInsert(stmt)
		if err != nil {
			return nil, errors.Wrapf(err, "statement %d", i+1)
		}
		if table != "" && ins.Table != table {
			continue
		}
		out = append(out, ins)
	}
	return out, nil
}

// ToProducts maps parsed rows onto products. Column names resolve through cols;
// names not found there are used as the product field name directly. NULL leaves
// the field unset.
func ToProducts(inserts []Insert, cols []Column) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, ins := range inserts {
		if len(ins.Columns) == 0 {
			return nil, errors.Errorf("insert into %s has no column list", ins.Table)
		}
		fields := make([]string, len(ins.Columns))
		for i, name := range ins.Columns {
			if c, ok := columnByName(cols, name); ok {
				fields[i] = c.Field
			} else {
				fields[i] = name
			}
		}
		for r, row := range ins.Rows {
			var p catalog.Product
			for i, v := range row {
				if v.Null {
					continue
				}
				if err := p.Set(fields[i], v.Text); err != nil {
					return nil, errors.Wrapf(err, "%s row %d", ins.Table, r+1)
				}
			}
			out = append(out, p)
		}
	}
	return out, nil
}
