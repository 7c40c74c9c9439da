package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithMissingConfig(t *testing.T) {
	old := *configPath
	*configPath = filepath.Join(t.TempDir(), "missing.yaml")
	defer func() { *configPath = old }()

	err := run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunWithIncompleteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
router:
  host: 192.168.1.1
mqtt:
  broker_url: tcp://localhost:1883
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	old := *configPath
	*configPath = path
	defer func() { *configPath = old }()

	err := run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
