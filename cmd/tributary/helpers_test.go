package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateFlag(t *testing.T) {
	got, err := parseDateFlag("", "start date")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDateFlag("2024-03-01", "start date")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	_, err = parseDateFlag("03/01/2024", "start date")
	assert.ErrorContains(t, err, "expected format 2006-01-02")
}

func TestDetectFormat(t *testing.T) {
	viper.Set("import.format", "")
	t.Cleanup(func() { viper.Set("import.format", "") })

	assert.Equal(t, "csv", detectFormat("statement.csv"))
	assert.Equal(t, "ofx", detectFormat("statement.OFX"))
	assert.Equal(t, "ofx", detectFormat("statement.qfx"))
	assert.Equal(t, "", detectFormat("statement.xlsx"))

	viper.Set("import.format", "CSV")
	assert.Equal(t, "csv", detectFormat("statement.xlsx"))
}
