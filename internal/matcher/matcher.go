package matcher

import (
	"strings"

	"github.com/pkg/errors"

	"catalogrecon/internal/catalog"
)

// Selector derives the join key of a record. An empty key never matches.
type Selector struct {
	Name string
	Key  func(p *catalog.Product) string
}

var (
	ByReferenceID = Selector{Name: "referenceId", Key: func(p *catalog.Product) string {
		if catalog.IsEmpty(p.ReferenceID) {
			return ""
		}
		return p.ReferenceID
	}}
	ByName = Selector{Name: "name", Key: func(p *catalog.Product) string {
		return strings.ToLower(strings.TrimSpace(p.Name))
	}}
)

func ParseSelector(name string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "referenceid", "reference_id", "ref":
		return ByReferenceID, nil
	case "name":
		return ByName, nil
	}
	return Selector{}, errors.Errorf("unknown match key %q (want referenceId or name)", name)
}

// Index maps normalized keys to the first reference record carrying them.
type Index struct {
	selector   Selector
	byKey      map[string]*catalog.Product
	duplicates int
	keyless    int
}

func NewIndex(refs []catalog.Product, sel Selector) *Index {
	idx := &Index{selector: sel, byKey: make(map[string]*catalog.Product, len(refs))}
	for i := range refs {
		k := sel.Key(&refs[i])
		if k == "" {
			idx.keyless++
			continue
		}
		if _, exists := idx.byKey[k]; exists {
			idx.duplicates++
			continue
		}
		idx.byKey[k] = &refs[i]
	}
	return idx
}

func (idx *Index) Lookup(p *catalog.Product) (*catalog.Product, bool) {
	k := idx.selector.Key(p)
	if k == "" {
		return nil, false
	}
	ref, ok := idx.byKey[k]
	return ref, ok
}

func (idx *Index) Selector() Selector { return idx.selector }

func (idx *Index) Len() int { return len(idx.byKey) }

// Duplicates counts reference records ignored because an earlier one had the same key.
func (idx *Index) Duplicates() int { return idx.duplicates }

func (idx *Index) Keyless() int { return idx.keyless }
