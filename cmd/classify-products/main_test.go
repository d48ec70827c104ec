package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/cli"
)

func fixture(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "..", "testdata", "products_sample.json"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestClassifyProducts(t *testing.T) {
	target := fixture(t)
	var stdout, stderr bytes.Buffer
	app := &cli.App{Stdout: &stdout, Stderr: &stderr}

	require.Equal(t, 0, app.Run(newCommand(app), []string{"--target", target}), stderr.String())
	assert.Contains(t, stdout.String(), "Classified: 3")
	assert.Contains(t, stdout.String(), "  KIT: 1")

	products, err := catalog.LoadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "PERFUME", products[0].Category)
	assert.Equal(t, "CAROLINA HERRERA", products[0].BrandName)
	assert.Equal(t, "ELETRONICOS", products[1].Category, "RELOGIO only fills an empty category")
	assert.Equal(t, "XIAOMI", products[1].BrandName)
	assert.Equal(t, "KIT", products[3].Category)
	assert.Equal(t, "LATTAFA", products[3].BrandName)
}

func TestClassifyProducts_BadRules(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules: []\n"), 0o644))
	var stderr bytes.Buffer
	app := &cli.App{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	assert.Equal(t, 1, app.Run(newCommand(app), []string{"--target", fixture(t), "--rules", rules}))
	assert.Contains(t, stderr.String(), "at least one keyword rule")
}
