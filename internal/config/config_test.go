package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "park.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.ClassificationToleranceKg)
	assert.Equal(t, 5*time.Minute, cfg.MaxReadingAge())
	assert.Empty(t, cfg.Materials)
}

func TestLoadParsesFile(t *testing.T) {
	path := writeConfig(t, `
classificationToleranceKg: 10
weighingMaxReadingAgeSeconds: 120
materials:
  - code: "17.01"
    description: "Concrete, bricks, tiles"
  - code: "20.01"
    description: "Separately collected fractions"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.ClassificationToleranceKg)
	assert.Equal(t, 2*time.Minute, cfg.MaxReadingAge())
	assert.Equal(t, "Concrete, bricks, tiles", cfg.MaterialDescription("17.01"))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "classificationToleranceKg: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "weighingMaxReadingAgeSeconds: 0\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestKnownMaterial(t *testing.T) {
	open := Default()
	assert.True(t, open.KnownMaterial("anything"), "an empty catalogue accepts every code")

	restricted := &ParkConfig{Materials: []Material{{Code: "17.01"}}}
	assert.True(t, restricted.KnownMaterial("17.01"))
	assert.False(t, restricted.KnownMaterial("20.01"))
	assert.Empty(t, restricted.MaterialDescription("20.01"))
}
