package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchResult struct {
	IDs   []string `json:"ids"`
	Cloud float64  `json:"cloud"`
}

func TestFileCacheRoundTrip(t *testing.T) {
	fc := NewFileCache[searchResult](filepath.Join(t.TempDir(), "search"), 0)
	key := fc.GenerateKey("sentinel-2-l2a", 2020, "mine_USA_1")

	_, ok := fc.Get(key)
	assert.False(t, ok)

	want := searchResult{IDs: []string{"a", "b"}, Cloud: 12.5}
	require.NoError(t, fc.Set(key, want))

	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestGenerateKeyIsStable(t *testing.T) {
	fc := NewFileCache[int](t.TempDir(), 0)
	assert.Equal(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 1))
	assert.NotEqual(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 2))
	assert.Len(t, fc.GenerateKey("x"), 40)
}

func TestCorruptedEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCache[searchResult](dir, 0)
	require.NoError(t, fc.Set("k", searchResult{IDs: []string{"a"}}))

	path := filepath.Join(dir, "k.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := []byte(string(data[:len(data)-1]))
	require.NoError(t, os.WriteFile(path, tampered, 0644))
	_, ok := fc.Get("k")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte(`{"data":{"ids":["b"]},"checksum":"0"}`), 0644))
	_, ok = fc.Get("k")
	assert.False(t, ok)
}

func TestExpiredEntryIsMiss(t *testing.T) {
	fc := NewFileCache[int](t.TempDir(), time.Nanosecond)
	require.NoError(t, fc.Set("k", 3))
	time.Sleep(time.Millisecond)
	_, ok := fc.Get("k")
	assert.False(t, ok)
}
