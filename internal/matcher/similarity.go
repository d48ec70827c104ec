package matcher

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"catalogrecon/internal/catalog"
)

// FieldAgreement is the mean similarity of one field across matched pairs where
// both sides carry a value. Low agreement on name or category hints at a wrong
// join key.
type FieldAgreement struct {
	Field      string  `json:"field"`
	Compared   int     `json:"compared"`
	Identical  int     `json:"identical"`
	Similarity float64 `json:"similarity"`
}

// MeasureAgreement compares fields of every target with the reference idx resolves.
func MeasureAgreement(targets []catalog.Product, idx *Index, fields []string) []FieldAgreement {
	sums := make(map[string]float64, len(fields))
	out := make([]FieldAgreement, len(fields))
	for i, f := range fields {
		out[i].Field = f
	}
	for i := range targets {
		ref, ok := idx.Lookup(&targets[i])
		if !ok {
			continue
		}
		for j, f := range fields {
			a, b := targets[i].Get(f), ref.Get(f)
			if catalog.IsEmpty(a) || catalog.IsEmpty(b) {
				continue
			}
			s := ValueSimilarity(a, b)
			out[j].Compared++
			if s == 1 {
				out[j].Identical++
			}
			sums[f] += s
		}
	}
	for i := range out {
		out[i].Similarity = round6(safeDiv(sums[out[i].Field], float64(out[i].Compared)))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity < out[j].Similarity })
	return out
}

// ValueSimilarity scores two field values in [0,1]. Numbers compare by relative
// difference, text by case-insensitive normalized Levenshtein distance.
func ValueSimilarity(a, b string) float64 {
	if catalog.IsEmpty(a) && catalog.IsEmpty(b) {
		return 1
	}
	if catalog.IsEmpty(a) || catalog.IsEmpty(b) {
		return 0
	}
	an := strings.ToLower(strings.Join(strings.Fields(a), " "))
	bn := strings.ToLower(strings.Join(strings.Fields(b), " "))
	if an == bn {
		return 1
	}
	if ad, err := decimal.NewFromString(an); err == nil {
		if bd, err := decimal.NewFromString(bn); err == nil {
			if ad.Equal(bd) {
				return 1
			}
			denom := decimal.Max(ad.Abs(), bd.Abs(), decimal.NewFromInt(1))
			diff, _ := ad.Sub(bd).Abs().Div(denom).Float64()
			return math.Max(0, 1-diff)
		}
	}
	return normalizedLevenshteinSimilarity(an, bn)
}

func normalizedLevenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	dist := levenshteinDistance(a, b)
	denom := max(len([]rune(a)), len([]rune(b)))
	return math.Max(0, 1-(float64(dist)/float64(denom)))
}

func levenshteinDistance(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) < len(br) {
		ar, br = br, ar
	}
	if len(br) == 0 {
		return len(ar)
	}
	prev := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ar {
		curr := make([]int, len(br)+1)
		curr[0] = i + 1
		for j, cb := range br {
			sub := prev[j]
			if ca != cb {
				sub++
			}
			curr[j+1] = min(curr[j]+1, prev[j+1]+1, sub)
		}
		prev = curr
	}
	return prev[len(prev)-1]
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
