package properties

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("missing.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2015, cfg.StartYear)
	assert.Equal(t, 2024, cfg.EndYear)
	assert.Equal(t, 5, cfg.MaxSites)
	assert.Equal(t, [3]float64{0.7, 0.15, 0.15}, cfg.SplitRatios)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, CompletionLenient, cfg.CompletionPolicy)
	assert.Len(t, cfg.Years(), 9)
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "lucd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
start_year: 2018
end_year: 2021
max_sites: 2
completion_policy: strict
provider_timeout: 90s
split_ratios: [0.8, 0.1, 0.1]
discovery:
  countries: [CHL]
`), 0644))
	t.Setenv("LUCD_MAX_SITES", "7")
	t.Setenv("LUCD_BANDS", "B02,B03")
	t.Setenv("LUCD_SEED", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{2018, 2019, 2020}, cfg.Years())
	assert.Equal(t, 7, cfg.MaxSites)
	assert.Equal(t, CompletionStrict, cfg.CompletionPolicy)
	assert.Equal(t, 90*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, [3]float64{0.8, 0.1, 0.1}, cfg.SplitRatios)
	assert.Equal(t, []string{"B02", "B03"}, cfg.Bands)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, []string{"CHL"}, cfg.Discovery.Countries)
	assert.Equal(t, "global_mining_polygons", cfg.Discovery.PolygonTable)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("LUCD_MAX_SITES", "many")
	_, err := Load("")
	assert.ErrorContains(t, err, "LUCD_MAX_SITES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty year range", func(c *Config) { c.EndYear = c.StartYear }, "end_year"},
		{"negative max sites", func(c *Config) { c.MaxSites = -1 }, "max_sites"},
		{"ratios over one", func(c *Config) { c.SplitRatios = [3]float64{0.8, 0.2, 0.1} }, "sum"},
		{"negative ratio", func(c *Config) { c.SplitRatios = [3]float64{1.1, -0.1, 0} }, "negative"},
		{"NaN ratio", func(c *Config) { c.SplitRatios = [3]float64{math.NaN(), 0.15, 0.15} }, "split ratios"},
		{"unknown policy", func(c *Config) { c.CompletionPolicy = "eager" }, "completion_policy"},
		{"unknown compressor", func(c *Config) { c.Compressor = "zip" }, "compressor"},
		{"zero scale", func(c *Config) { c.ExportScale = 0 }, "export_scale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
	assert.NoError(t, Default().Validate())
}
