// Package dataset builds the per-site yearly imagery, label and change-label
// rasters and drives batches of sites.
package dataset

import (
	"context"
	"os"
	"time"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/aoi"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/export"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/ledger"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/metrics"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/properties"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

type Settings struct {
	StartYear int
	EndYear   int

	ImageryCollection string
	LabelCollection   string
	Bands             []string
	LabelBand         string
	CloudThreshold    float64

	// SearchWindow is searched on both sides of Jan 1.
	SearchWindow    time.Duration
	ProviderTimeout time.Duration
	StrictComplete  bool
}

func SettingsFromConfig(cfg properties.Config) Settings {
	return Settings{
		StartYear:         cfg.StartYear,
		EndYear:           cfg.EndYear,
		ImageryCollection: cfg.ImageryCollection,
		LabelCollection:   cfg.LabelCollection,
		Bands:             cfg.Bands,
		LabelBand:         cfg.LabelBand,
		CloudThreshold:    cfg.CloudThreshold,
		SearchWindow:      time.Duration(cfg.SearchWindowDays) * 24 * time.Hour,
		ProviderTimeout:   cfg.ProviderTimeout,
		StrictComplete:    cfg.CompletionPolicy == properties.CompletionStrict,
	}
}

// ExpectedArtifacts is the number of artifacts a fully successful site has.
func (s Settings) ExpectedArtifacts() int {
	years := s.EndYear - s.StartYear
	if years <= 0 {
		return 0
	}
	return 2*years + years - 1
}

type ArtifactLedger interface {
	Get(site, artifact string) (*ledger.Entry, bool, error)
	Mark(site, artifact, path string) error
	Forget(site string) error
}

type SiteResult struct {
	SiteID    string
	Completed bool
	Outcomes  map[string]export.Outcome
}

// Produced counts artifacts left on disk after the run.
func (r SiteResult) Produced() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Produced() {
			n++
		}
	}
	return n
}

type Generator struct {
	provider imagery.Provider
	exporter *export.Exporter
	layout   Layout
	settings Settings
	ledger   ArtifactLedger
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

type GeneratorOption func(*Generator)

// WithLedger enables per-artifact resume.
func WithLedger(l ArtifactLedger) GeneratorOption {
	return func(g *Generator) { g.ledger = l }
}

func WithGeneratorMetrics(m *metrics.Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

func NewGenerator(provider imagery.Provider, exporter *export.Exporter, layout Layout, settings Settings, log logrus.FieldLogger, opts ...GeneratorOption) *Generator {
	g := &Generator{
		provider: provider,
		exporter: exporter,
		layout:   layout,
		settings: settings,
		log:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate processes every year of one site. Per-step failures never stop
// the loop; only filesystem errors on the site itself and context
// cancellation are returned, and in both cases the site stays pending.
func (g *Generator) Generate(ctx context.Context, record *aoi.Record) (SiteResult, error) {
	result := SiteResult{SiteID: record.ID, Outcomes: map[string]export.Outcome{}}
	log := g.log.WithField("site", record.ID)

	if StateOf(record) == StateCompleted {
		log.Info("Skipping site, already downloaded")
		result.Completed = true
		return result, nil
	}

	if err := g.layout.Prepare(record.ID); err != nil {
		return result, err
	}
	log.WithFields(logrus.Fields{
		"state":   StateInProgress,
		"country": record.Country(),
		"area":    record.Area(),
	}).Info("Processing site")

	region := record.Geometry()
	var previousLabel *imagery.Image
	for year := g.settings.StartYear; year < g.settings.EndYear; year++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		yearLog := log.WithField("year", year)
		yearLog.Info("Processing year")

		imageryArtifact := ArtifactName(imagery.KindImagery, year)
		if !g.alreadyProduced(record.ID, imageryArtifact, result.Outcomes, yearLog) {
			img := g.resolve(ctx, yearLog, g.imageryQuery(region, year), year)
			result.Outcomes[imageryArtifact] = g.exportArtifact(ctx, record.ID, imagery.KindImagery, year, img, region)
		}

		// Labels are always resolved: the next year's change label is
		// derived from this image, not from the file on disk.
		label := g.resolve(ctx, yearLog, g.labelQuery(region, year), year)
		labelArtifact := ArtifactName(imagery.KindLabel, year)
		if !g.alreadyProduced(record.ID, labelArtifact, result.Outcomes, yearLog) {
			result.Outcomes[labelArtifact] = g.exportArtifact(ctx, record.ID, imagery.KindLabel, year, label, region)
		}

		if year > g.settings.StartYear {
			changeArtifact := ArtifactName(imagery.KindChange, year)
			if !g.alreadyProduced(record.ID, changeArtifact, result.Outcomes, yearLog) {
				change := imagery.Change(previousLabel, label)
				result.Outcomes[changeArtifact] = g.exportArtifact(ctx, record.ID, imagery.KindChange, year, change, region)
			}
		}
		previousLabel = label
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if g.settings.StrictComplete && result.Produced() < g.settings.ExpectedArtifacts() {
		log.WithFields(logrus.Fields{
			"produced": result.Produced(),
			"expected": g.settings.ExpectedArtifacts(),
		}).Warn("Site incomplete, leaving it pending")
		return result, nil
	}

	if err := record.MarkDownloaded(); err != nil {
		return result, err
	}
	result.Completed = true
	g.metrics.SiteCompleted()
	log.WithFields(logrus.Fields{
		"state":    StateCompleted,
		"produced": result.Produced(),
	}).Info("Marked site as downloaded")

	if g.ledger != nil {
		if err := g.ledger.Forget(record.ID); err != nil {
			log.WithError(err).Warn("Failed to clear ledger entries")
		}
	}
	return result, nil
}

func (g *Generator) window(year int) (time.Time, time.Time) {
	target := imagery.YearTarget(year)
	return target.Add(-g.settings.SearchWindow), target.Add(g.settings.SearchWindow)
}

func (g *Generator) imageryQuery(region orb.Geometry, year int) imagery.Query {
	from, to := g.window(year)
	cloud := g.settings.CloudThreshold
	return imagery.Query{
		Collection:    g.settings.ImageryCollection,
		Region:        region,
		From:          from,
		To:            to,
		Bands:         g.settings.Bands,
		MaxCloudCover: &cloud,
	}
}

func (g *Generator) labelQuery(region orb.Geometry, year int) imagery.Query {
	from, to := g.window(year)
	return imagery.Query{
		Collection: g.settings.LabelCollection,
		Region:     region,
		From:       from,
		To:         to,
		Bands:      []string{g.settings.LabelBand},
	}
}

// resolve searches the collection and picks the image nearest to Jan 1 of
// the query year. Search failures are logged and resolve to no image.
func (g *Generator) resolve(ctx context.Context, log logrus.FieldLogger, query imagery.Query, year int) *imagery.Image {
	searchCtx := ctx
	if g.settings.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, g.settings.ProviderTimeout)
		defer cancel()
	}

	images, err := g.provider.Search(searchCtx, query)
	if err != nil {
		log.WithError(err).WithField("collection", query.Collection).Warn("Image search failed")
		return nil
	}
	return imagery.Nearest(images, imagery.YearTarget(year))
}

func (g *Generator) exportArtifact(ctx context.Context, site string, kind imagery.Kind, year int, img *imagery.Image, region orb.Geometry) export.Outcome {
	result := g.exporter.Export(ctx, kind, img, region, g.layout.Path(site, kind, year))
	if g.ledger != nil && result.Outcome.Produced() {
		if err := g.ledger.Mark(site, ArtifactName(kind, year), result.Path); err != nil {
			g.log.WithError(err).WithField("site", site).Warn("Failed to record artifact in ledger")
		}
	}
	return result.Outcome
}

// alreadyProduced reports whether the ledger holds the artifact and its file
// is still on disk. Ledger read errors fall back to exporting again.
func (g *Generator) alreadyProduced(site, artifact string, outcomes map[string]export.Outcome, log logrus.FieldLogger) bool {
	if g.ledger == nil {
		return false
	}
	entry, ok, err := g.ledger.Get(site, artifact)
	if err != nil {
		log.WithError(err).Warn("Ledger lookup failed")
		return false
	}
	if !ok {
		return false
	}
	if _, err := os.Stat(entry.Path); err != nil {
		return false
	}
	log.WithField("artifact", artifact).Debug("Artifact already exported, skipping")
	outcomes[artifact] = export.OutcomeAlreadyPresent
	return true
}
