package db

import (
	"path/filepath"
	"testing"

	"github.com/blacktop/dexfuzz/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	a := Hash([]byte("dex\n035\x00"))
	assert.Len(t, a, 32)
	assert.Equal(t, a, Hash([]byte("dex\n035\x00")))
	assert.NotEqual(t, a, Hash([]byte("dex\n035\x01")))
}

func TestOpen(t *testing.T) {
	tests := []struct {
		url  string
		want Database
	}{
		{"unique_progs.db", &Sqlite{}},
		{"unique.gob", &Memory{}},
		{"postgres://fuzz@localhost/dexfuzz", &Postgres{}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			d, err := Open(tt.url, 16)
			require.NoError(t, err)
			assert.IsType(t, tt.want, d)
		})
	}
	_, err := Open("", 0)
	assert.Error(t, err)
}

func testSeen(t *testing.T, d Database) {
	t.Helper()
	first := &model.Program{Hash: Hash([]byte("one")), RunID: "run", Seed: 1}
	seen, err := d.Seen(first)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.Seen(&model.Program{Hash: first.Hash, Seed: 2})
	require.NoError(t, err)
	assert.True(t, seen, "same hash is a duplicate")

	seen, err = d.Seen(&model.Program{Hash: Hash([]byte("two"))})
	require.NoError(t, err)
	assert.False(t, seen)

	n, err := d.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := d.Get(first.Hash)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Seed)

	_, err = d.Get("missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSqlite(t *testing.T) {
	for _, cache := range []int{0, 8} {
		path := filepath.Join(t.TempDir(), "unique.db")
		d, err := NewSqlite(path, cache)
		require.NoError(t, err)
		require.NoError(t, d.Connect())
		testSeen(t, d)
		require.NoError(t, d.Close())

		// programs survive a reopen
		d, err = NewSqlite(path, cache)
		require.NoError(t, err)
		require.NoError(t, d.Connect())
		seen, err := d.Seen(&model.Program{Hash: Hash([]byte("one"))})
		require.NoError(t, err)
		assert.True(t, seen)
		require.NoError(t, d.Close())
	}
}

func TestMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unique.gob")
	d, err := NewInMemory(path)
	require.NoError(t, err)
	require.NoError(t, d.Connect(), "a missing file is an empty database")
	testSeen(t, d)
	require.NoError(t, d.Close())

	d, err = NewInMemory(path)
	require.NoError(t, err)
	require.NoError(t, d.Connect())
	n, err := d.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	p := &model.Program{Hash: Hash([]byte("three"))}
	seen, err := d.Seen(p)
	require.NoError(t, err)
	assert.False(t, seen)
	assert.EqualValues(t, 3, p.ID)
}
