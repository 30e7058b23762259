package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	t.Run("writes a matching up and down pair", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "Add Rollover Index", "speeds up weekly settle")
		require.NoError(t, err)

		assert.Len(t, mf.Version, 14, "sortable timestamp version")
		assert.Equal(t, filepath.Join(dir, mf.Version+"_add_rollover_index.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, mf.Version+"_add_rollover_index.down.sql"), mf.DownPath)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "speeds up weekly settle")

		_, err = os.Stat(mf.DownPath)
		assert.NoError(t, err)
	})

	t.Run("creates the directory when missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "migrations")

		_, err := CreateMigration(dir, "create buckets", "")
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Add Rollover Index", "add_rollover_index"},
		{"create-usage-buckets", "create_usage_buckets"},
		{"  weird -- spacing  ", "weird_spacing"},
		{"Sessions2", "sessions2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.input), tt.input)
	}
}

func TestListMigrations(t *testing.T) {
	t.Run("lists up migrations in apply order", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"20250619084200_create_sessions.up.sql",
			"20250619084200_create_sessions.down.sql",
			"20250612101500_create_metering_tables.up.sql",
			"20250612101500_create_metering_tables.down.sql",
			"notes.txt",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0644))
		}

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"20250612101500_create_metering_tables",
			"20250619084200_create_sessions",
		}, migrations)
	})

	t.Run("missing directory is empty, not an error", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})
}
