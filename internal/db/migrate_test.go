package db

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsFS(t *testing.T) {
	migFS, err := getMigrationsFS()
	require.NoError(t, err)

	entries, err := fs.ReadDir(migFS, ".")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_datasets.up.sql")
	assert.Contains(t, names, "000001_create_datasets.down.sql")
	assert.Zero(t, len(names)%2, "every up migration needs a down migration")
}

func TestMigrateUpDownVersion(t *testing.T) {
	d, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer d.Close()

	migFS, err := getMigrationsFS()
	require.NoError(t, err)

	version, dirty, err := d.MigrateVersion(migFS)
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, d.MigrateUp(migFS))
	version, dirty, err = d.MigrateVersion(migFS)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// A second up is a no-op.
	require.NoError(t, d.MigrateUp(migFS))

	require.NoError(t, d.MigrateDown(migFS))
	version, _, err = d.MigrateVersion(migFS)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	err = d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='dataset_reports'`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, d.MigrateTo(migFS, 2))
	require.NoError(t, d.MigrateForce(migFS, 2))
	version, dirty, err = d.MigrateVersion(migFS)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}
