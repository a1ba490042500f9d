package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := rootCmd()

	for _, name := range []string{"serve", "migrate", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestMigrate_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polls.db")
	t.Setenv("DATABASE_URL", "sqlite://"+path)
	t.Setenv("ENVIRONMENT", "dev")

	cmd := rootCmd()
	cmd.SetArgs([]string{"migrate"})

	assert.NoError(t, cmd.Execute())
	assert.FileExists(t, path)
}

func TestMigrate_BadConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "mysql://localhost/polls")

	cmd := rootCmd()
	cmd.SetArgs([]string{"migrate"})

	assert.Error(t, cmd.Execute())
}
