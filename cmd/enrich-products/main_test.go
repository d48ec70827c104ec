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

func testdataPath(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(testdataPath(name))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := &cli.App{Stdout: &stdout, Stderr: &stderr}
	code := app.Run(newCommand(app), args)
	return code, stdout.String(), stderr.String()
}

func TestEnrichProducts_UpdatesFileAndWritesBackup(t *testing.T) {
	target := fixture(t, "products_sample.json")

	code, stdout, stderr := runCommand(t, "--target", target, "--reference", testdataPath("lista_sample.json"))
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "Matched (referenceId): 2")
	assert.Contains(t, stdout, "Backup: ")
	assert.Contains(t, stdout, "Report: ")

	products, err := catalog.LoadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "PERFUME", products[0].Category)
	assert.Equal(t, "CAROLINA HERRERA", products[0].BrandName)
	assert.Equal(t, "XIAOMI", products[1].BrandName)
	assert.Equal(t, "ELETRONICOS", products[1].Category)

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 3, "target, backup and report")
}

func TestEnrichProducts_DryRunLeavesTargetUntouched(t *testing.T) {
	target := fixture(t, "products_sample.json")
	before, err := os.ReadFile(target)
	require.NoError(t, err)

	code, stdout, stderr := runCommand(t, "--target", target, "--reference", testdataPath("lista_sample.json"), "--dry-run")
	require.Equal(t, 0, code, stderr)
	assert.NotContains(t, stdout, "Backup: ")

	after, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEnrichProducts_Fatal(t *testing.T) {
	target := fixture(t, "products_sample.json")

	code, _, stderr := runCommand(t, "--target", target, "--reference", testdataPath("lista_sample.json"), "--fields", "colour")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, cli.FatalMarker)
	assert.Contains(t, stderr, `unknown field \"colour\"`)

	code, _, _ = runCommand(t, "--target", target, "--reference", testdataPath("missing.json"))
	assert.Equal(t, 1, code)
}
