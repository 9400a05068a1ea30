package bitvid

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAsset() Asset {
	return Asset{
		Path:   "videos/badapple.biv",
		CRC:    "89ABCDEF",
		Width:  96,
		Height: 64,
		Depth:  1,
		Frames: 6572,
		Size:   123456,
	}
}

func TestAssetDB(t *testing.T) {
	db, err := OpenAssetDB(filepath.Join(t.TempDir(), "assets.db"))
	require.NoError(t, err)
	defer db.Close()

	a := testAsset()
	require.NoError(t, db.Record(a))

	got, err := db.FindByCRC(a.CRC)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a, *got)

	got, err = db.FindByCRC("00000000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAssetDBUpdate(t *testing.T) {
	db, err := OpenAssetDB(filepath.Join(t.TempDir(), "assets.db"))
	require.NoError(t, err)
	defer db.Close()

	a := testAsset()
	require.NoError(t, db.Record(a))

	// Re-encoding the same path replaces the entry instead of growing
	// the catalog.
	a.CRC = "01234567"
	a.Frames = 3286
	require.NoError(t, db.Record(a))

	assets, err := db.List()
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, a, assets[0])

	b := testAsset()
	b.Path = "videos/credits.biv"
	require.NoError(t, db.Record(b))

	assets, err = db.List()
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, a.Path, assets[0].Path)
	assert.Equal(t, b.Path, assets[1].Path)
}
