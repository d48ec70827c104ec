package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/cli"
)

func TestFixReferenceIDs(t *testing.T) {
	target := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, catalog.WriteFile(target, []catalog.Product{
		{ID: "a", ReferenceID: "5", Name: "A"},
		{ID: "b", ReferenceID: "5", Name: "B"},
		{ID: "c", ReferenceID: "", Name: "C"},
		{ID: "d", ReferenceID: "10", Name: "D"},
	}))
	var stdout, stderr bytes.Buffer
	app := &cli.App{Stdout: &stdout, Stderr: &stderr}

	code := app.Run(newCommand(app), []string{"--target", target, "--base", "10", "--fill-empty"})
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Duplicate groups: 1")
	assert.Contains(t, stdout.String(), "Reassigned: 2")
	assert.Contains(t, stdout.String(), "Filled empty: 1")

	products, err := catalog.LoadFile(target)
	require.NoError(t, err)
	got := []string{products[0].ReferenceID, products[1].ReferenceID, products[2].ReferenceID, products[3].ReferenceID}
	assert.Equal(t, []string{"5", "11", "12", "10"}, got)
}

func TestFixReferenceIDs_RejectsBadBase(t *testing.T) {
	var stderr bytes.Buffer
	app := &cli.App{Stdout: &bytes.Buffer{}, Stderr: &stderr}
	assert.Equal(t, 1, app.Run(newCommand(app), []string{"--base", "0"}))
	assert.Contains(t, stderr.String(), "--base must be positive")
}
