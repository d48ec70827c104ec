// Package refid repairs duplicate referenceId values so the field can serve as a
// join key again.
package refid

import (
	"strconv"

	"catalogrecon/internal/catalog"
)

// DefaultBase is the first id handed out to reassigned records.
const DefaultBase = 900000

type Options struct {
	Base      int
	FillEmpty bool
}

type Reassignment struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Old   string `json:"oldReferenceId"`
	New   string `json:"newReferenceId"`
}

type Result struct {
	DuplicateGroups map[string]int `json:"duplicateGroups"`
	Reassigned      []Reassignment `json:"reassigned"`
	Filled          int            `json:"filled"`
}

// Repair keeps the first record of every referenceId and moves later duplicates to
// fresh sequential ids starting at opts.Base. Ids already present anywhere in the
// dataset are never handed out.
func Repair(products []catalog.Product, opts Options) Result {
	if opts.Base == 0 {
		opts.Base = DefaultBase
	}
	used := make(map[string]struct{}, len(products))
	counts := make(map[string]int, len(products))
	for i := range products {
		if id := products[i].ReferenceID; !catalog.IsEmpty(id) {
			used[id] = struct{}{}
			counts[id]++
		}
	}

	res := Result{DuplicateGroups: map[string]int{}, Reassigned: []Reassignment{}}
	for id, n := range counts {
		if n > 1 {
			res.DuplicateGroups[id] = n
		}
	}

	next := opts.Base
	allocate := func() string {
		for {
			candidate := strconv.Itoa(next)
			next++
			if _, taken := used[candidate]; !taken {
				used[candidate] = struct{}{}
				return candidate
			}
		}
	}

	seen := make(map[string]struct{}, len(products))
	for i := range products {
		p := &products[i]
		old := p.ReferenceID
		if catalog.IsEmpty(old) {
			if !opts.FillEmpty {
				continue
			}
			p.ReferenceID = allocate()
			res.Filled++
			res.Reassigned = append(res.Reassigned, Reassignment{Index: i, ID: p.ID, Name: p.Name, Old: old, New: p.ReferenceID})
			continue
		}
		if _, dup := seen[old]; !dup {
			seen[old] = struct{}{}
			continue
		}
		p.ReferenceID = allocate()
		res.Reassigned = append(res.Reassigned, Reassignment{Index: i, ID: p.ID, Name: p.Name, Old: old, New: p.ReferenceID})
	}
	return res
}
