package matcher

import (
	"catalogrecon/internal/catalog"
)

// Coverage summarizes how much of a target dataset an index can resolve.
type Coverage struct {
	MatchKey               string   `json:"match_key"`
	TargetRows             int      `json:"target_rows"`
	ReferenceRows          int      `json:"reference_rows"`
	ReferenceKeys          int      `json:"reference_keys"`
	DuplicateReferenceKeys int      `json:"duplicate_reference_keys"`
	KeylessReferenceRows   int      `json:"keyless_reference_rows"`
	MatchedRows            int      `json:"matched_rows"`
	UnmatchedRows          int      `json:"unmatched_rows"`
	DistinctReferencesUsed int      `json:"distinct_references_used"`
	CoverageTarget         float64  `json:"coverage_target"`
	CoverageReference      float64  `json:"coverage_reference"`
	Unmatched              []string `json:"unmatched_sample"`
}

func MeasureCoverage(targets []catalog.Product, refs []catalog.Product, sel Selector, sampleSize int) Coverage {
	idx := NewIndex(refs, sel)
	used := make(map[*catalog.Product]struct{})
	cov := Coverage{
		MatchKey:               sel.Name,
		TargetRows:             len(targets),
		ReferenceRows:          len(refs),
		ReferenceKeys:          idx.Len(),
		DuplicateReferenceKeys: idx.Duplicates(),
		KeylessReferenceRows:   idx.Keyless(),
		Unmatched:              []string{},
	}
	for i := range targets {
		ref, ok := idx.Lookup(&targets[i])
		if !ok {
			cov.UnmatchedRows++
			if len(cov.Unmatched) < sampleSize {
				cov.Unmatched = append(cov.Unmatched, targets[i].Label())
			}
			continue
		}
		cov.MatchedRows++
		used[ref] = struct{}{}
	}
	cov.DistinctReferencesUsed = len(used)
	cov.CoverageTarget = safeDiv(float64(cov.MatchedRows), float64(len(targets)))
	cov.CoverageReference = safeDiv(float64(len(used)), float64(idx.Len()))
	return cov
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
