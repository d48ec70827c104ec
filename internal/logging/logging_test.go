package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "debug", "json")
	require.NoError(t, err)

	l.WithField("records", 3).Debug("loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, float64(3), entry["records"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", "text")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	l.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
