package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveExport("sentinel", "exported")
	m.ObserveExport("sentinel", "exported")
	m.ObserveExport("labels", "no_data")
	m.SiteCompleted()
	m.SplitSize("train", 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.exports.WithLabelValues("sentinel", "exported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("labels", "no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sitesCompleted))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.splitSites.WithLabelValues("train")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveExport("sentinel", "exported")
	m.SiteCompleted()
	m.SitesPending(3)
	m.SplitSize("val", 1)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.SiteCompleted()
	path := filepath.Join(t.TempDir(), "lucd.prom")

	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lucd_sites_completed_total 1")
}
