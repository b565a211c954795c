package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionAndName(t *testing.T) {
	version, name, err := parseVersionAndName("002_create_directory.down.sql")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.Equal(t, "create_directory", name)

	_, _, err = parseVersionAndName("seed.sql")
	assert.Error(t, err)
	_, _, err = parseVersionAndName("v1_init.sql")
	assert.Error(t, err)
}

func TestLoadMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"002_create_directory.up.sql",
		"001_create_actions.down.sql",
		"001_create_actions.up.sql",
		"README.md",
		"notes.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}

	files, err := loadMigrationFiles(dir, logrus.New())
	require.NoError(t, err)

	require.Len(t, files, 3)
	assert.Equal(t, 1, files[0].version)
	assert.Equal(t, 2, files[2].version)
	assert.Equal(t, "up", files[2].kind)
}
