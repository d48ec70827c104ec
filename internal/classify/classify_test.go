package classify

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogrecon/internal/catalog"
)

func TestDerive_MultiWordBrand(t *testing.T) {
	c := New(DefaultConfig())

	rule, brand, ok := c.Derive("PERFUME CAROLINA HERRERA 212 VIP")
	require.True(t, ok)
	assert.Equal(t, "CAROLINA HERRERA", brand)
	assert.Equal(t, "PERFUME", rule.Category)

	_, brand, ok = c.Derive("PERFUME JEAN PAUL GAULTIER LE MALE")
	require.True(t, ok)
	assert.Equal(t, "JEAN PAUL GAULTIER", brand)

	_, brand, ok = c.Derive("PERFUME JEAN LOUIS SCHERRER")
	require.True(t, ok)
	assert.Equal(t, "JEAN", brand)

	_, brand, ok = c.Derive("PERFUME DOLCE & GABBANA LIGHT BLUE")
	require.True(t, ok)
	assert.Equal(t, "DOLCE & GABBANA", brand)
}

func TestDerive_SingleTokenBrand(t *testing.T) {
	c := New(DefaultConfig())

	rule, brand, ok := c.Derive("RELOGIO XIAOMI SMART BAND 8")
	require.True(t, ok)
	assert.Equal(t, "XIAOMI", brand)
	assert.Equal(t, "RELOGIO", rule.Category)
}

func TestDerive_RequiresKeywordFollowedByToken(t *testing.T) {
	c := New(DefaultConfig())

	for _, name := range []string{"PERFUME", "PERFUMES CAROLINA HERRERA", "BODY SPLASH VICTORIA'S SECRET", ""} {
		_, _, ok := c.Derive(name)
		assert.False(t, ok, name)
	}

	_, brand, ok := c.Derive("perfume paco rabanne 1 million")
	require.True(t, ok)
	assert.Equal(t, "paco rabanne", brand)
}

func TestApply_PolicyAsymmetry(t *testing.T) {
	c := New(DefaultConfig())

	perfume := catalog.Product{Name: "PERFUME CAROLINA HERRERA 212 VIP", Category: "FRAGRANCIAS", BrandName: "CH"}
	res := c.Apply(&perfume)
	assert.True(t, res.Matched)
	assert.Equal(t, "PERFUME", perfume.Category)
	assert.Equal(t, "CAROLINA HERRERA", perfume.BrandName)
	assert.True(t, res.CategoryChanged)
	assert.True(t, res.BrandChanged)

	watch := catalog.Product{Name: "RELOGIO XIAOMI SMART BAND 8", Category: "ELETRONICOS", BrandName: "MI"}
	res = c.Apply(&watch)
	assert.Equal(t, "ELETRONICOS", watch.Category)
	assert.Equal(t, "XIAOMI", watch.BrandName)
	assert.False(t, res.CategoryChanged)
	assert.True(t, res.BrandChanged)

	empty := catalog.Product{Name: "RELOGIO XIAOMI SMART BAND 8"}
	c.Apply(&empty)
	assert.Equal(t, "RELOGIO", empty.Category)

	other := catalog.Product{Name: "Body Splash Victoria's Secret", Category: "BODY SPLASH"}
	assert.False(t, c.Apply(&other).Matched)
	assert.Equal(t, "BODY SPLASH", other.Category)
}

func TestParseConfig_Validation(t *testing.T) {
	_, err := ParseConfig([]byte("rules: []"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("rules:\n  - keyword: PERFUME\n    category_policy: sometimes\n    brand_policy: always\n"))
	assert.ErrorContains(t, err, "unknown policy")

	cfg, err := ParseConfig([]byte(`
rules:
  - keyword: body splash
    category: BODY SPLASH
    category_policy: if_empty
    brand_policy: if_empty
brands:
  victoria's: [[secret]]
`))
	require.NoError(t, err)
	c := New(cfg)
	p := catalog.Product{Name: "Body Splash Victoria's Secret Bare Vanilla", BrandName: "VS"}
	res := c.Apply(&p)
	assert.True(t, res.Matched)
	assert.Equal(t, "BODY SPLASH", p.Category)
	assert.Equal(t, "VS", p.BrandName)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - keyword: KIT\n    category_policy: always\n    brand_policy: always\n"), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Rules, 1)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Len(t, cfg.Rules, 4)
}

func TestRun_Report(t *testing.T) {
	products, err := catalog.LoadFile(filepath.Join("..", "..", "testdata", "products_sample.json"))
	require.NoError(t, err)
	log := logrus.New()
	log.SetOutput(io.Discard)

	rep := New(DefaultConfig()).Run(products, log, time.Now())

	assert.Equal(t, 4, rep.TotalProducts)
	assert.Equal(t, 3, rep.TotalClassified)
	assert.Equal(t, map[string]int{"PERFUME": 1, "RELOGIO": 1, "KIT": 1}, rep.ByKeyword)
	assert.Equal(t, 1, rep.BrandCounts["LATTAFA"])
	assert.Equal(t, 2, rep.CategoryChanged)
	assert.Equal(t, 3, rep.BrandChanged)
	assert.Len(t, rep.Changes, 3)
	assert.Equal(t, "ELETRONICOS", products[1].Category)
	assert.Equal(t, "KIT", products[3].Category)
}
