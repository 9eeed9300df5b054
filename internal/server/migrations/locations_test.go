package migrations

import (
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_ContainsLocations(t *testing.T) {
	schema, err := fs.Glob(FS, LocationSchema+"/*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"migration/00001_create_accounts.sql"}, schema)

	seed, err := fs.Glob(FS, LocationTesting+"/*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"testing/00002_seed_accounts.sql"}, seed)
}

func TestLocations_FlattensDirectories(t *testing.T) {
	fsys, err := Locations(FS, LocationSchema, LocationTesting)
	require.NoError(t, err)

	names, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_create_accounts.sql", "00002_seed_accounts.sql"}, names)

	data, err := fs.ReadFile(fsys, "00002_seed_accounts.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "enorthcott8")

	info, err := fs.Stat(fsys, "00001_create_accounts.sql")
	require.NoError(t, err)
	assert.Equal(t, "00001_create_accounts.sql", info.Name())
	assert.False(t, info.IsDir())
}

func TestLocations_SchemaOnly(t *testing.T) {
	fsys, err := Locations(FS, LocationSchema)
	require.NoError(t, err)

	names, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_create_accounts.sql"}, names)

	_, err = fsys.Open("00002_seed_accounts.sql")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLocations_Errors(t *testing.T) {
	root := fstest.MapFS{
		"a/00001_init.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"b/00001_init.sql": {Data: []byte("-- +goose Up\nSELECT 2;\n")},
	}

	_, err := Locations(root, "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "00001_init.sql")

	_, err = Locations(root, "missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLocations_RootDirectoryHandle(t *testing.T) {
	fsys, err := Locations(FS, LocationSchema, LocationTesting)
	require.NoError(t, err)

	f, err := fsys.Open(".")
	require.NoError(t, err)
	defer f.Close()

	st, err := f.Stat()
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	dir, ok := f.(fs.ReadDirFile)
	require.True(t, ok)

	first, err := dir.ReadDir(1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "00001_create_accounts.sql", first[0].Name())

	second, err := dir.ReadDir(1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "00002_seed_accounts.sql", second[0].Name())

	_, err = dir.ReadDir(1)
	assert.ErrorIs(t, err, io.EOF)

	_, err = fsys.Open("../etc/passwd")
	assert.ErrorIs(t, err, fs.ErrInvalid)
}
