package matcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogrecon/internal/catalog"
)

func load(t *testing.T, name string) []catalog.Product {
	t.Helper()
	products, err := catalog.LoadFile(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	return products
}

func TestIndex_ReferenceIDFirstWriteWins(t *testing.T) {
	refs := load(t, "lista_sample.json")
	idx := NewIndex(refs, ByReferenceID)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 1, idx.Duplicates())

	ref, ok := idx.Lookup(&catalog.Product{ReferenceID: "1002"})
	require.True(t, ok)
	assert.Equal(t, "r-2", ref.ID)

	_, ok = idx.Lookup(&catalog.Product{ReferenceID: "  "})
	assert.False(t, ok)
	_, ok = idx.Lookup(&catalog.Product{ReferenceID: "4242"})
	assert.False(t, ok)
}

func TestIndex_NameIsCaseAndSpaceInsensitive(t *testing.T) {
	refs := load(t, "lista_sample.json")
	idx := NewIndex(refs, ByName)

	ref, ok := idx.Lookup(&catalog.Product{Name: "KIT LATTAFA ASAD EDP 100ML + DEO"})
	require.True(t, ok)
	assert.Equal(t, "r-9", ref.ID)

	ref, ok = idx.Lookup(&catalog.Product{Name: "perfume carolina herrera 212 vip  "})
	require.True(t, ok)
	assert.Equal(t, "r-1", ref.ID)
}

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector("referenceId")
	require.NoError(t, err)
	assert.Equal(t, "referenceId", sel.Name)

	sel, err = ParseSelector("NAME")
	require.NoError(t, err)
	assert.Equal(t, "name", sel.Name)

	_, err = ParseSelector("sku")
	assert.Error(t, err)
}

func TestMeasureCoverage(t *testing.T) {
	targets := load(t, "products_sample.json")
	refs := load(t, "lista_sample.json")

	cov := MeasureCoverage(targets, refs, ByReferenceID, 10)
	assert.Equal(t, 4, cov.TargetRows)
	assert.Equal(t, 2, cov.MatchedRows)
	assert.Equal(t, 2, cov.UnmatchedRows)
	assert.Equal(t, []string{"p-003", "p-004"}, cov.Unmatched)
	assert.InDelta(t, 0.5, cov.CoverageTarget, 1e-12)
	assert.InDelta(t, 2.0/3.0, cov.CoverageReference, 1e-12)

	byName := MeasureCoverage(targets, refs, ByName, 10)
	assert.Equal(t, 3, byName.MatchedRows)
}
