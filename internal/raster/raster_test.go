package raster

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTiff(t *testing.T, path string, bands [][]float32, width, height int) {
	t.Helper()
	Register()
	ds, err := godal.Create(godal.GTiff, path, len(bands), godal.Float32, width, height)
	require.NoError(t, err)
	for i, data := range bands {
		require.NoError(t, ds.Bands()[i].Write(0, 0, data, width, height))
	}
	require.NoError(t, ds.Close())
}

func TestGDALCompressor(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "2020.tif")
	writeTiff(t, raw, [][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}}, 2, 2)

	out, err := GDALCompressor{}.Compress(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2020_comp.tif"), out)
	assert.NoFileExists(t, raw)

	n, err := BandCount(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	r, err := ReadFloat32(out)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Width)
	assert.Equal(t, 2, r.Height)
	assert.Equal(t, []float32{5, 6, 7, 8}, r.Bands[1])
}

func TestGDALCompressorKeepsRawOnFailure(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "2020.tif")
	require.NoError(t, os.WriteFile(raw, []byte("not a tiff"), 0644))

	_, err := GDALCompressor{}.Compress(context.Background(), raw)
	assert.Error(t, err)
	assert.FileExists(t, raw)
}

func TestCommandCompressorKeepsRawOnFailure(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "2020_label.tif")
	require.NoError(t, os.WriteFile(raw, []byte("raw"), 0644))

	_, err := CommandCompressor{Binary: "false"}.Compress(context.Background(), raw)
	assert.Error(t, err)
	assert.FileExists(t, raw)

	_, err = CommandCompressor{Binary: filepath.Join(dir, "missing-binary")}.Compress(context.Background(), raw)
	assert.Error(t, err)
	assert.FileExists(t, raw)
}

func TestCommandCompressorReturnsOutputWhenRawRemovalFails(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "translate.sh")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\necho compressed > \"$2\"\n"), 0755))

	// A non-empty directory cannot be removed with os.Remove.
	raw := filepath.Join(dir, "2020.tif")
	require.NoError(t, os.MkdirAll(raw, os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "keep"), []byte("x"), 0644))

	logger, hook := logtest.NewNullLogger()
	out, err := CommandCompressor{Binary: binary, Log: logger}.Compress(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2020_comp.tif"), out)
	assert.FileExists(t, out)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, raw, hook.LastEntry().Data["path"])
}

func TestReadInt32Band(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2019_2020.tif")
	writeTiff(t, path, [][]float32{{101, 202, 303, 707}}, 2, 2)

	band, err := ReadInt32Band(path, 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{101, 202, 303, 707}, band.Data)

	_, err = ReadInt32Band(path, 2)
	assert.Error(t, err)
}

func TestNewCompressor(t *testing.T) {
	c, err := NewCompressor("gdal", nil)
	require.NoError(t, err)
	assert.IsType(t, GDALCompressor{}, c)

	c, err = NewCompressor("gdal_translate", nil)
	require.NoError(t, err)
	assert.IsType(t, CommandCompressor{}, c)

	_, err = NewCompressor("zip", nil)
	assert.Error(t, err)
}
