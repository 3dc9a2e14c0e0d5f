package dataset

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/aoi"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/metrics"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

type SiteGenerator interface {
	Generate(ctx context.Context, record *aoi.Record) (SiteResult, error)
}

type Summary struct {
	Total     int
	Pending   int
	Attempted int
	Completed int
	Results   []SiteResult
}

type Driver struct {
	aoiDir    string
	maxSites  int
	generator SiteGenerator
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
	progress  io.Writer
}

type DriverOption func(*Driver)

func WithDriverMetrics(m *metrics.Metrics) DriverOption {
	return func(d *Driver) { d.metrics = m }
}

// WithProgressOutput redirects the progress bar; io.Discard hides it.
func WithProgressOutput(w io.Writer) DriverOption {
	return func(d *Driver) { d.progress = w }
}

func NewDriver(aoiDir string, maxSites int, generator SiteGenerator, log logrus.FieldLogger, opts ...DriverOption) *Driver {
	d := &Driver{
		aoiDir:    aoiDir,
		maxSites:  maxSites,
		generator: generator,
		log:       log,
		progress:  os.Stderr,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run processes at most maxSites pending AOIs in file-name order. A malformed
// AOI file aborts the run before any site is processed.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	records, err := aoi.LoadAll(d.aoiDir)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(records)}
	var pending []*aoi.Record
	for _, record := range records {
		if record.Downloaded() {
			d.log.WithField("site", record.ID).Debug("Skipping site, already downloaded")
			continue
		}
		pending = append(pending, record)
	}
	summary.Pending = len(pending)
	d.metrics.SitesPending(len(pending))

	if len(pending) == 0 {
		d.log.Info("No pending sites")
		return summary, nil
	}
	if len(pending) > d.maxSites {
		pending = pending[:d.maxSites]
	}

	progressBar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetDescription("Generating sites"),
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionShowCount(),
	)
	defer progressBar.Finish()

	for _, record := range pending {
		summary.Attempted++
		result, err := d.generator.Generate(ctx, record)
		summary.Results = append(summary.Results, result)
		if err != nil {
			return summary, fmt.Errorf("failed to generate site %s: %w", record.ID, err)
		}
		if result.Completed {
			summary.Completed++
		}
		progressBar.Add(1)
	}

	d.log.WithFields(logrus.Fields{
		"attempted": summary.Attempted,
		"completed": summary.Completed,
		"pending":   summary.Pending - summary.Completed,
	}).Info("Completed download and compression run")
	return summary, nil
}
