// Package enrich fills empty fields of target products from matched reference
// products. Populated values are never overwritten, which makes repeated runs safe.
package enrich

import (
	"catalogrecon/internal/catalog"
	"catalogrecon/internal/report"
)

// DefaultFields is the enrichment field list used when a run does not name its own.
var DefaultFields = []string{
	"category",
	"brand_name",
	"tags",
	"description",
	"specifications",
	"details",
	"images",
}

// diffValueLimit caps reference values shown in change entries; stored values are
// copied whole.
const diffValueLimit = 100

type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

type Enricher struct {
	fields []string
	counts map[string]int
}

func New(fields []string) *Enricher {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	counts := make(map[string]int, len(fields))
	for _, f := range fields {
		counts[f] = 0
	}
	return &Enricher{fields: append([]string(nil), fields...), counts: counts}
}

func (e *Enricher) Fields() []string { return append([]string(nil), e.fields...) }

// Enrich copies every non-empty reference value into an empty target field and
// returns the resulting changes. A nil ref yields no changes.
func (e *Enricher) Enrich(target, ref *catalog.Product) []Change {
	if target == nil || ref == nil {
		return nil
	}
	var changes []Change
	for _, f := range e.fields {
		old := target.Get(f)
		if !catalog.IsEmpty(old) {
			continue
		}
		val := ref.Get(f)
		if catalog.IsEmpty(val) {
			continue
		}
		if err := target.Set(f, val); err != nil {
			continue
		}
		e.counts[f]++
		changes = append(changes, Change{Field: f, Old: old, New: report.Truncate(val, diffValueLimit)})
	}
	return changes
}

// FieldCounts returns how many records had each field filled so far.
func (e *Enricher) FieldCounts() map[string]int {
	out := make(map[string]int, len(e.counts))
	for k, v := range e.counts {
		out[k] = v
	}
	return out
}
