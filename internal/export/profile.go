package export

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/sqlgen"
)

// BuildProfile renders a markdown summary of a product file: shape, key
// uniqueness, missingness, value counts and price summaries.
func BuildProfile(source string, products []catalog.Product) string {
	rows := BuildRows(products, Columns)
	lines := []string{
		fmt.Sprintf("# %s profile", source),
		"",
		"## Dataset shape",
		fmt.Sprintf("- Records: %s", fmtInt(len(rows))),
		fmt.Sprintf("- Columns: %s", fmtInt(len(Columns))),
		fmt.Sprintf("- Records with extra fields: %s", fmtInt(countExtra(products))),
	}
	images, withoutImages := imageStats(products)
	lines = append(lines,
		fmt.Sprintf("- Images: %s total, %s records without images", fmtInt(images), fmtInt(withoutImages)),
		"",
		"## Uniqueness / duplicates",
	)
	for _, col := range []string{"id", "referenceId", "name"} {
		uniq, dup := uniquenessStats(rows, col)
		lines = append(lines, fmt.Sprintf("- `%s` unique=%s, duplicate_rows=%s", col, fmtInt(uniq), fmtInt(dup)))
	}
	lines = append(lines, "")

	lines = append(lines, "## Missingness")
	type miss struct {
		col string
		pct float64
	}
	var misses []miss
	for _, col := range Columns {
		nulls := 0
		for _, r := range rows {
			if catalog.IsEmpty(r[col]) {
				nulls++
			}
		}
		misses = append(misses, miss{col, safeDiv(float64(nulls)*100, float64(len(rows)))})
	}
	sort.SliceStable(misses, func(i, j int) bool {
		if misses[i].pct != misses[j].pct {
			return misses[i].pct > misses[j].pct
		}
		return misses[i].col < misses[j].col
	})
	for _, m := range misses {
		lines = append(lines, fmt.Sprintf("- `%s`: %.1f%% empty", m.col, m.pct))
	}
	lines = append(lines, "")

	lines = append(lines, "## Numeric summaries")
	for _, col := range []string{"price", "price_sale"} {
		nums := gatherDecimals(rows, col)
		if len(nums) == 0 {
			lines = append(lines, fmt.Sprintf("- `%s`: no parsable values", col))
			continue
		}
		sort.Slice(nums, func(i, j int) bool { return nums[i].LessThan(nums[j]) })
		lines = append(lines, fmt.Sprintf("- `%s`: count=%s, min=%s, median=%s, mean=%s, max=%s",
			col, fmtInt(len(nums)), nums[0].StringFixed(2), median(nums).StringFixed(2),
			mean(nums).StringFixed(2), nums[len(nums)-1].StringFixed(2),
		))
	}
	lines = append(lines, "")

	lines = append(lines, "## Value counts (top 20)")
	for _, col := range []string{"brand_name", "category", "stockStatus"} {
		counts := map[string]int{}
		for _, r := range rows {
			k := "<empty>"
			if !catalog.IsEmpty(r[col]) {
				k = strings.TrimSpace(r[col])
			}
			counts[k]++
		}
		type kv struct {
			k string
			v int
		}
		var items []kv
		for k, v := range counts {
			items = append(items, kv{k, v})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].v == items[j].v {
				return items[i].k < items[j].k
			}
			return items[i].v > items[j].v
		})
		if len(items) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("### `%s`", col))
		for i := 0; i < len(items) && i < 20; i++ {
			lines = append(lines, fmt.Sprintf("- %s: %s", items[i].k, fmtInt(items[i].v)))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func countExtra(products []catalog.Product) int {
	n := 0
	for i := range products {
		if len(products[i].Extra) > 0 {
			n++
		}
	}
	return n
}

func imageStats(products []catalog.Product) (total, without int) {
	for i := range products {
		n := len(products[i].ImageList())
		total += n
		if n == 0 {
			without++
		}
	}
	return
}

func uniquenessStats(rows []Row, col string) (uniqueNonEmpty int, duplicateRows int) {
	counts := map[string]int{}
	for _, r := range rows {
		if catalog.IsEmpty(r[col]) {
			continue
		}
		counts[strings.TrimSpace(r[col])]++
	}
	for _, c := range counts {
		uniqueNonEmpty++
		if c > 1 {
			duplicateRows += c
		}
	}
	return
}

func gatherDecimals(rows []Row, col string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, r := range rows {
		if d, ok := sqlgen.NormalizeDecimal(r[col]); ok {
			out = append(out, d)
		}
	}
	return out
}

func mean(xs []decimal.Decimal) decimal.Decimal {
	if len(xs) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(xs[0], xs[1:]...).Div(decimal.NewFromInt(int64(len(xs))))
}

func median(xs []decimal.Decimal) decimal.Decimal {
	if len(xs) == 0 {
		return decimal.Zero
	}
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return xs[n/2-1].Add(xs[n/2]).Div(decimal.NewFromInt(2))
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func fmtInt(v int) string {
	s := strconv.Itoa(v)
	n := len(s)
	if n <= 3 {
		return s
	}
	var parts []string
	for n > 3 {
		parts = append([]string{s[n-3:]}, parts...)
		s = s[:n-3]
		n = len(s)
	}
	if s != "" {
		parts = append([]string{s}, parts...)
	}
	return strings.Join(parts, ",")
}
