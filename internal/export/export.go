// Package export runs the per-year export step: validate, download, compress.
// Every failure degrades to "no output produced" and is only logged.
package export

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/metrics"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// Compressor turns a raw raster into a compressed one and returns its path.
// It must leave the raw file in place when it fails.
type Compressor interface {
	Compress(ctx context.Context, path string) (string, error)
}

type Outcome int

const (
	OutcomeExported Outcome = iota
	OutcomeNoData
	OutcomeProviderError
	OutcomeCompressionFailed
	OutcomeAlreadyPresent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExported:
		return "exported"
	case OutcomeNoData:
		return "no_data"
	case OutcomeProviderError:
		return "provider_error"
	case OutcomeCompressionFailed:
		return "compression_failed"
	case OutcomeAlreadyPresent:
		return "already_present"
	}
	return "unknown"
}

// Produced reports whether a file exists for the artifact after the step.
func (o Outcome) Produced() bool {
	return o == OutcomeExported || o == OutcomeCompressionFailed || o == OutcomeAlreadyPresent
}

type Result struct {
	Outcome Outcome
	// Path is the file left on disk, empty when nothing was produced.
	Path string
}

type Exporter struct {
	provider   imagery.Provider
	compressor Compressor
	scale      float64
	timeout    time.Duration
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

type Option func(*Exporter)

func WithTimeout(timeout time.Duration) Option {
	return func(e *Exporter) { e.timeout = timeout }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// New builds an exporter. A nil compressor keeps raw files as they are.
func New(provider imagery.Provider, compressor Compressor, scale float64, log logrus.FieldLogger, opts ...Option) *Exporter {
	e := &Exporter{
		provider:   provider,
		compressor: compressor,
		scale:      scale,
		log:        log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exporter) Export(ctx context.Context, kind imagery.Kind, img *imagery.Image, region orb.Geometry, path string) Result {
	result := e.export(ctx, kind, img, region, path)
	e.metrics.ObserveExport(string(kind), result.Outcome.String())
	return result
}

func (e *Exporter) export(ctx context.Context, kind imagery.Kind, img *imagery.Image, region orb.Geometry, path string) Result {
	log := e.log.WithFields(logrus.Fields{"path": path, "kind": kind})

	if img.BandCount() == 0 {
		log.Warn("Skipping export: no usable bands")
		return Result{Outcome: OutcomeNoData}
	}

	exportCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		exportCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	err := e.provider.Export(exportCtx, imagery.ExportRequest{
		Image:  img,
		Region: region,
		Scale:  e.scale,
		Path:   path,
	})
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.WithError(rmErr).Warn("Failed to remove partial download")
		}
		log.WithError(err).Warn("Skipping export")
		return Result{Outcome: OutcomeProviderError}
	}
	log.WithField("image", img.ID).Info("Downloaded")

	if e.compressor == nil {
		return Result{Outcome: OutcomeExported, Path: path}
	}

	compressed, err := e.compressor.Compress(ctx, path)
	if err != nil {
		log.WithError(err).Error("Compression failed, keeping raw raster")
		return Result{Outcome: OutcomeCompressionFailed, Path: path}
	}
	log.WithField("compressed", compressed).Debug("Compressed")
	return Result{Outcome: OutcomeExported, Path: compressed}
}
