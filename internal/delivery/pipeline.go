// Package delivery wires configuration, the imagery provider and the
// pipeline stages together for the CLI and the interactive menu.
package delivery

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/cache"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/convert"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/dataset"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/discovery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/export"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/ledger"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/metrics"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/properties"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/raster"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/sentinel"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/split"
	"github.com/sirupsen/logrus"
)

const (
	SourcePostGIS  = "postgis"
	SourceOverpass = "overpass"

	searchCacheMaxAge = 24 * time.Hour
)

// Notifier receives run summaries. *notification.Discord satisfies it.
type Notifier interface {
	SendErrorNotification(ctx context.Context, msg string) error
	SendSuccessNotification(ctx context.Context, msg string) error
}

type Pipeline struct {
	Config   properties.Config
	Log      logrus.FieldLogger
	Metrics  *metrics.Metrics
	Notifier Notifier

	// Provider and Compressor override the configured Sentinel client and
	// compressor when set.
	Provider   imagery.Provider
	Compressor export.Compressor
	// Progress receives the generate progress bar. Defaults to stderr.
	Progress io.Writer
}

func (p *Pipeline) provider(ctx context.Context) (imagery.Provider, error) {
	if p.Provider != nil {
		return p.Provider, nil
	}
	var opts []sentinel.Option
	if p.Config.SearchCacheDir != "" {
		opts = append(opts, sentinel.WithSearchCache(cache.NewFileCache[[]imagery.Image](p.Config.SearchCacheDir, searchCacheMaxAge)))
	}
	client, err := sentinel.New(ctx, sentinel.ConfigFromProperties(p.Config), p.Log, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentinel client: %w", err)
	}
	return client, nil
}

func (p *Pipeline) compressor() (export.Compressor, error) {
	if p.Compressor != nil {
		return p.Compressor, nil
	}
	raster.Register()
	return raster.NewCompressor(p.Config.Compressor, p.Log)
}

// Generate runs one dataset driver pass over the pending AOIs.
func (p *Pipeline) Generate(ctx context.Context) (dataset.Summary, error) {
	summary, err := p.generate(ctx)
	if err != nil {
		p.notifyError(ctx, fmt.Sprintf("LUCD dataset generation failed: %s", err.Error()))
		return summary, err
	}
	p.notifySuccess(ctx, fmt.Sprintf("LUCD dataset generation finished\n\nCompleted sites: %d of %d attempted\nPending sites: %d",
		summary.Completed, summary.Attempted, summary.Pending-summary.Completed))
	p.flushMetrics()
	return summary, nil
}

func (p *Pipeline) generate(ctx context.Context) (dataset.Summary, error) {
	provider, err := p.provider(ctx)
	if err != nil {
		return dataset.Summary{}, err
	}
	compressor, err := p.compressor()
	if err != nil {
		return dataset.Summary{}, err
	}

	exporter := export.New(provider, compressor, p.Config.ExportScale, p.Log,
		export.WithTimeout(p.Config.ProviderTimeout),
		export.WithMetrics(p.Metrics),
	)

	genOpts := []dataset.GeneratorOption{dataset.WithGeneratorMetrics(p.Metrics)}
	if p.Config.LedgerPath != "" {
		store, err := ledger.Open(p.Config.LedgerPath)
		if err != nil {
			return dataset.Summary{}, err
		}
		defer store.Close()
		genOpts = append(genOpts, dataset.WithLedger(store))
	}

	generator := dataset.NewGenerator(provider, exporter, dataset.Layout{Root: p.Config.RasterRoot},
		dataset.SettingsFromConfig(p.Config), p.Log, genOpts...)

	driverOpts := []dataset.DriverOption{dataset.WithDriverMetrics(p.Metrics)}
	if p.Progress != nil {
		driverOpts = append(driverOpts, dataset.WithProgressOutput(p.Progress))
	}
	driver := dataset.NewDriver(p.Config.AOIDir, p.Config.MaxSites, generator, p.Log, driverOpts...)
	return driver.Run(ctx)
}

// Split partitions the completed sites into train, val and test trees.
func (p *Pipeline) Split(ctx context.Context) (split.Result, error) {
	partitioner := &split.Partitioner{
		AOIDir:     p.Config.AOIDir,
		RasterRoot: p.Config.RasterRoot,
		SplitRoot:  p.Config.SplitRoot,
		Ratios:     p.Config.SplitRatios,
		Seed:       p.Config.Seed,
		Workers:    p.Config.CopyWorkers,
		Log:        p.Log,
		Metrics:    p.Metrics,
	}
	result, err := partitioner.Run(ctx)
	if err != nil {
		p.notifyError(ctx, fmt.Sprintf("LUCD dataset split failed: %s", err.Error()))
		return result, err
	}
	counts := result.Counts()
	p.notifySuccess(ctx, fmt.Sprintf("LUCD dataset split finished\n\nTrain: %d\nVal: %d\nTest: %d\nMissing: %d",
		counts[split.Train], counts[split.Val], counts[split.Test], len(result.Missing)))
	p.flushMetrics()
	return result, nil
}

// Convert writes the .npy arrays for every split site.
func (p *Pipeline) Convert(ctx context.Context) (convert.Summary, error) {
	raster.Register()
	converter := &convert.Converter{
		SplitRoot:  p.Config.SplitRoot,
		OutputRoot: p.Config.NumpyRoot,
		Workers:    p.Config.ConvertWorkers,
		Log:        p.Log,
	}
	return converter.Run(ctx)
}

// Discover pulls mining polygons from source and writes new AOI files.
func (p *Pipeline) Discover(ctx context.Context, source string) (discovery.ExportSummary, error) {
	cfg := p.Config.Discovery

	var src discovery.Source
	switch source {
	case SourcePostGIS:
		if cfg.PostgresURL == "" {
			return discovery.ExportSummary{}, fmt.Errorf("postgres url is not configured, set LUCD_POSTGRES_URL")
		}
		pg, err := discovery.ConnectPostGIS(ctx, cfg.PostgresURL, cfg.PolygonTable)
		if err != nil {
			return discovery.ExportSummary{}, err
		}
		defer pg.Close()
		src = pg
	case SourceOverpass:
		src = discovery.NewOverpassSource(cfg.OverpassEndpoint, p.Config.ProviderTimeout, p.Log)
	default:
		return discovery.ExportSummary{}, fmt.Errorf("unknown discovery source %q", source)
	}

	polygons, err := src.Polygons(ctx, cfg.Countries)
	if err != nil {
		return discovery.ExportSummary{}, fmt.Errorf("failed to fetch polygons from %s: %w", source, err)
	}
	return discovery.Export(p.Config.AOIDir, polygons, p.Log)
}

func (p *Pipeline) notifyError(ctx context.Context, msg string) {
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.SendErrorNotification(ctx, msg); err != nil {
		p.Log.WithError(err).Warn("Failed to send error notification")
	}
}

func (p *Pipeline) notifySuccess(ctx context.Context, msg string) {
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.SendSuccessNotification(ctx, msg); err != nil {
		p.Log.WithError(err).Warn("Failed to send success notification")
	}
}

func (p *Pipeline) flushMetrics() {
	if p.Config.MetricsFile == "" {
		return
	}
	if err := p.Metrics.WriteTextfile(p.Config.MetricsFile); err != nil {
		p.Log.WithError(err).WithField("path", p.Config.MetricsFile).Warn("Failed to write metrics file")
	}
}
