package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"catalogrecon/internal/catalog"
)

func sampleRows(t *testing.T) ([]catalog.Product, []Row) {
	t.Helper()
	ps, err := catalog.LoadFile(filepath.Join("..", "..", "testdata", "products_sample.json"))
	require.NoError(t, err)
	return ps, BuildRows(ps, Columns)
}

func TestWriteCSV_BOMAndQuoting(t *testing.T) {
	_, rows := sampleRows(t)
	path := filepath.Join(t.TempDir(), "out", "products.csv")

	require.NoError(t, WriteCSV(path, Columns, rows))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "\xEF\xBB\xBF"))
	lines := strings.Split(strings.TrimSuffix(string(b[3:]), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])
	assert.Contains(t, lines[3], `"Fragrance mist, 250ml (Women's)"`)
	assert.Contains(t, lines[3], `"bare-vanilla-1.jpg,bare-vanilla-2.jpg"`)
	assert.True(t, strings.HasPrefix(lines[1], "p-001,1001,PERFUME CAROLINA HERRERA 212 VIP,"))
}

func TestWriteSQLite(t *testing.T) {
	_, rows := sampleRows(t)
	path := filepath.Join(t.TempDir(), "products.sqlite")

	require.NoError(t, WriteSQLite(path, "products", Columns, rows))
	require.NoError(t, WriteSQLite(path, "products", Columns, rows), "rewriting replaces the file")

	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM products`))
	assert.Equal(t, 4, count)

	var price float64
	require.NoError(t, db.Get(&price, `SELECT price FROM products WHERE id = ?`, "p-002"))
	assert.InDelta(t, 199.5, price, 1e-9)

	var nullPrices int
	require.NoError(t, db.Get(&nullPrices, `SELECT COUNT(*) FROM products WHERE price IS NULL`))
	assert.Equal(t, 1, nullPrices)

	var indexes []string
	require.NoError(t, db.Select(&indexes, `SELECT name FROM sqlite_master WHERE type = 'index' ORDER BY name`))
	assert.Equal(t, []string{"idx_products_brand_name", "idx_products_category", "idx_products_id", "idx_products_referenceId"}, indexes)
}

func TestWriteXLSX(t *testing.T) {
	_, rows := sampleRows(t)
	path := filepath.Join(t.TempDir(), "products.xlsx")

	require.NoError(t, WriteXLSX(path, Columns, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, Columns, got[0])
	assert.Equal(t, "Fragrance mist, 250ml (Women's)", got[3][6])

	v, err := f.GetCellValue(sheetName, "J2")
	require.NoError(t, err)
	assert.Equal(t, "459.9", v)
}

func TestBuildProfile(t *testing.T) {
	ps, _ := sampleRows(t)

	md := BuildProfile("products.json", ps)

	assert.Contains(t, md, "# products.json profile")
	assert.Contains(t, md, "- Records: 4")
	assert.Contains(t, md, "- Records with extra fields: 1")
	assert.Contains(t, md, "- Images: 3 total, 2 records without images")
	assert.Contains(t, md, "- `id` unique=4, duplicate_rows=0")
	assert.Contains(t, md, "- `referenceId` unique=3, duplicate_rows=0")
	assert.Contains(t, md, "- `price`: count=3, min=129.00, median=199.50, mean=262.80, max=459.90")
	assert.Contains(t, md, "- `price_sale`: no parsable values")
	assert.Contains(t, md, "- `details`: 100.0% empty")
	assert.Contains(t, md, "### `category`\n- <empty>: 2")
}

func TestFmtInt(t *testing.T) {
	assert.Equal(t, "999", fmtInt(999))
	assert.Equal(t, "1,000", fmtInt(1000))
	assert.Equal(t, "12,345,678", fmtInt(12345678))
}

func TestDedupe_KeepsLastPerID(t *testing.T) {
	ps := []catalog.Product{
		{ID: "b", Name: "first b"},
		{ID: "a", Name: "a"},
		{ID: "", Name: "no id 1"},
		{ID: "b", Name: "second b"},
		{ID: "", Name: "no id 2"},
	}

	out, dropped := Dedupe(ps)

	assert.Equal(t, 1, dropped)
	names := make([]string, len(out))
	for i := range out {
		names[i] = out[i].Name
	}
	assert.Equal(t, []string{"no id 1", "no id 2", "a", "second b"}, names)
	assert.Equal(t, "first b", ps[0].Name, "input is not reordered")
}
