package sqlgen

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"catalogrecon/internal/catalog"
)

const DefaultBatchSize = 100

type Conflict string

const (
	ConflictUpdate  Conflict = "update"
	ConflictNothing Conflict = "nothing"
)

type Mode string

const (
	ModeCreate   Mode = "create"
	ModeRecreate Mode = "recreate"
)

type Generator struct {
	Table     string
	Columns   []Column
	Key       string
	BatchSize int
	Conflict  Conflict
	Mode      Mode

	// NewID supplies keys for records that have none.
	NewID func() string
	Now   func() time.Time
}

type Stats struct {
	Rows         int
	Batches      int
	GeneratedIDs int
	Duplicates   int
}

func New(table string) *Generator {
	return &Generator{
		Table:     table,
		Columns:   append([]Column(nil), DefaultColumns...),
		Key:       "id",
		BatchSize: DefaultBatchSize,
		Conflict:  ConflictUpdate,
		Mode:      ModeCreate,
	}
}

func (g *Generator) validate() (Column, error) {
	if strings.TrimSpace(g.Table) == "" {
		return Column{}, errors.New("table name is required")
	}
	if len(g.Columns) == 0 {
		return Column{}, errors.New("at least one column is required")
	}
	if g.BatchSize <= 0 {
		return Column{}, errors.Errorf("batch size must be positive, got %d", g.BatchSize)
	}
	switch g.Conflict {
	case ConflictUpdate, ConflictNothing:
	default:
		return Column{}, errors.Errorf("unknown conflict action %q", g.Conflict)
	}
	switch g.Mode {
	case ModeCreate, ModeRecreate:
	default:
		return Column{}, errors.Errorf("unknown mode %q", g.Mode)
	}
	key, ok := columnByName(g.Columns, g.Key)
	if !ok {
		return Column{}, errors.Errorf("key column %q is not among the selected columns", g.Key)
	}
	return key, nil
}

// DDL returns the table statements that precede the inserts.
func (g *Generator) DDL() string {
	ctb := sqlbuilder.PostgreSQL.NewCreateTableBuilder().CreateTable(g.Table)
	if g.Mode == ModeCreate {
		ctb.IfNotExists()
	}
	for _, c := range g.Columns {
		ctb.Define(append([]string{c.Name}, c.Def...)...)
	}
	var b strings.Builder
	if g.Mode == ModeRecreate {
		fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s;\n", g.Table)
	}
	b.WriteString(ctb.String())
	b.WriteString(";\n")
	if key, ok := columnByName(g.Columns, g.Key); ok && !key.unique() {
		fmt.Fprintf(&b, "CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s);\n", g.keyIndexName(), g.Table, key.Name)
	}
	return b.String()
}

// keyIndexName names the unique index backing ON CONFLICT for a non-primary key.
func (g *Generator) keyIndexName() string {
	name := nonIdent.ReplaceAllString(strings.ToLower(g.Table+"_"+g.Key), "_")
	return name + "_key"
}

func (g *Generator) conflictClause() string {
	if g.Conflict == ConflictNothing {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", g.Key)
	}
	sets := make([]string, 0, len(g.Columns))
	for _, c := range g.Columns {
		if strings.EqualFold(c.Name, g.Key) {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c.Name, c.Name))
	}
	if len(sets) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", g.Key)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", g.Key, strings.Join(sets, ", "))
}

// Insert renders one INSERT statement for rows.
func (g *Generator) Insert(rows []catalog.Product) string {
	names := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		names[i] = c.Name
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(g.Table).Cols(names...)
	for i := range rows {
		vals := make([]interface{}, len(g.Columns))
		for j, c := range g.Columns {
			vals[j] = sqlbuilder.Raw(literal(c, &rows[i]))
		}
		ib.Values(vals...)
	}
	ib.SQL(g.conflictClause())
	sql, _ := ib.Build()
	return sql
}

// prepare fills missing conflict and primary keys and drops later records whose key was already seen,
// since one statement may not touch the same conflict target twice.
func (g *Generator) prepare(products []catalog.Product, key Column, st *Stats) []catalog.Product {
	newID := g.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	out := make([]catalog.Product, 0, len(products))
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		p = p.Clone()
		for _, c := range g.Columns {
			if c.Name != key.Name && !c.primary() {
				continue
			}
			if catalog.IsEmpty(p.Get(c.Field)) {
				if err := p.Set(c.Field, newID()); err == nil {
					st.GeneratedIDs++
				}
			}
		}
		k := p.Get(key.Field)
		if _, dup := seen[k]; dup {
			st.Duplicates++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Write emits the DDL followed by ceil(n/BatchSize) INSERT statements, each
// preceded by a batch banner.
func (g *Generator) Write(w io.Writer, products []catalog.Product) (Stats, error) {
	key, err := g.validate()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	rows := g.prepare(products, key, &st)
	st.Rows = len(rows)
	st.Batches = (len(rows) + g.BatchSize - 1) / g.BatchSize

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "-- Table %s: %d rows in %d batches of up to %d\n", g.Table, st.Rows, st.Batches, g.BatchSize)
	fmt.Fprintf(bw, "-- Generated %s\n\n", now().UTC().Format(time.RFC3339))
	bw.WriteString(g.DDL())

	for i := 0; i < st.Batches; i++ {
		start := i * g.BatchSize
		end := start + g.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		fmt.Fprintf(bw, "\n-- Batch %d/%d (rows %d-%d)\n", i+1, st.Batches, start+1, end)
		bw.WriteString(g.Insert(rows[start:end]))
		bw.WriteString(";\n")
	}
	if err := bw.Flush(); err != nil {
		return st, errors.Wrap(err, "write sql")
	}
	return st, nil
}
