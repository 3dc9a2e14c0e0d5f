package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery/imagerytest"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/metrics"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renameCompressor struct {
	err   error
	calls int
}

func (c *renameCompressor) Compress(ctx context.Context, path string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	out := CompressedPath(path)
	return out, os.Rename(path, out)
}

var region = orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}

func image(id string) *imagery.Image {
	return &imagery.Image{ID: id, Bands: []string{"B02", "B03"}}
}

func TestExportCompressesAndRemovesRaw(t *testing.T) {
	dir := t.TempDir()
	provider := imagerytest.New()
	compressor := &renameCompressor{}
	logger, _ := logtest.NewNullLogger()
	m := metrics.New()
	exporter := New(provider, compressor, 10, logger, WithMetrics(m))

	raw := filepath.Join(dir, "2020.tif")
	result := exporter.Export(context.Background(), imagery.KindImagery, image("s2_a"), region, raw)

	assert.Equal(t, OutcomeExported, result.Outcome)
	assert.Equal(t, filepath.Join(dir, "2020_comp.tif"), result.Path)
	assert.FileExists(t, result.Path)
	assert.NoFileExists(t, raw)

	require.Len(t, provider.Exports, 1)
	assert.Equal(t, 10.0, provider.Exports[0].Scale)
	assert.Equal(t, region, provider.Exports[0].Region)

	registry := m.Registry()
	count, err := testutil.GatherAndCount(registry, "lucd_exports_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExportSkipsImageWithoutBands(t *testing.T) {
	dir := t.TempDir()
	provider := imagerytest.New()
	compressor := &renameCompressor{}
	logger, hook := logtest.NewNullLogger()
	exporter := New(provider, compressor, 10, logger)

	path := filepath.Join(dir, "2020.tif")
	result := exporter.Export(context.Background(), imagery.KindImagery, &imagery.Image{ID: "empty"}, region, path)

	assert.Equal(t, OutcomeNoData, result.Outcome)
	assert.Empty(t, result.Path)
	assert.False(t, result.Outcome.Produced())
	assert.Zero(t, provider.ExportCount())
	assert.Zero(t, compressor.calls)
	assert.NoFileExists(t, path)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, "no usable bands")
	assert.Equal(t, path, entry.Data["path"])
}

func TestExportSkipsMissingImage(t *testing.T) {
	provider := imagerytest.New()
	logger, _ := logtest.NewNullLogger()
	exporter := New(provider, nil, 10, logger)

	result := exporter.Export(context.Background(), imagery.KindLabel, nil, region, filepath.Join(t.TempDir(), "x.tif"))
	assert.Equal(t, OutcomeNoData, result.Outcome)
	assert.Zero(t, provider.ExportCount())
}

func TestExportProviderErrorIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	provider := imagerytest.New()
	path := filepath.Join(dir, "2020_label.tif")
	provider.ExportErr = func(req imagery.ExportRequest) error {
		// leave a partial file behind like an interrupted download
		_ = os.WriteFile(req.Path, []byte("partial"), 0644)
		return errors.New("quota exceeded")
	}
	logger, hook := logtest.NewNullLogger()
	exporter := New(provider, &renameCompressor{}, 10, logger)

	result := exporter.Export(context.Background(), imagery.KindLabel, image("dw"), region, path)

	assert.Equal(t, OutcomeProviderError, result.Outcome)
	assert.NoFileExists(t, path)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "quota exceeded", entry.Data[logrus.ErrorKey].(error).Error())
}

func TestExportCompressionFailureKeepsRaw(t *testing.T) {
	dir := t.TempDir()
	provider := imagerytest.New()
	logger, hook := logtest.NewNullLogger()
	exporter := New(provider, &renameCompressor{err: errors.New("gdal_translate missing")}, 10, logger)

	path := filepath.Join(dir, "2019_2020.tif")
	result := exporter.Export(context.Background(), imagery.KindChange, image("change"), region, path)

	assert.Equal(t, OutcomeCompressionFailed, result.Outcome)
	assert.True(t, result.Outcome.Produced())
	assert.Equal(t, path, result.Path)
	assert.FileExists(t, path)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestExportTimeout(t *testing.T) {
	provider := imagerytest.New()
	provider.ExportErr = func(req imagery.ExportRequest) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}
	logger, _ := logtest.NewNullLogger()
	exporter := New(provider, nil, 10, logger, WithTimeout(time.Millisecond))

	result := exporter.Export(context.Background(), imagery.KindImagery, image("slow"), region, filepath.Join(t.TempDir(), "2020.tif"))
	assert.Equal(t, OutcomeProviderError, result.Outcome)
}

func TestCompressedPath(t *testing.T) {
	assert.Equal(t, "a/b/2020_comp.tif", CompressedPath("a/b/2020.tif"))
	assert.Equal(t, "2020_label_comp.tif", CompressedPath("2020_label.tif"))
	assert.Equal(t, "2019_2020", StripCompressed("2019_2020_comp"))
}
