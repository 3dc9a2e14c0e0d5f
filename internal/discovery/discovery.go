// Package discovery finds mining-site polygons and writes them as AOI files.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/aoi"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

type Polygon struct {
	ID         string
	Country    string
	Geometry   orb.Geometry
	Properties map[string]interface{}
}

// SiteID names the AOI file of the polygon.
func (p Polygon) SiteID() string {
	return fmt.Sprintf("mine_%s_%s", p.Country, p.ID)
}

type Source interface {
	Polygons(ctx context.Context, countries []string) ([]Polygon, error)
}

type ExportSummary struct {
	Written int
	Kept    int
	Skipped int
}

// Export writes one AOI file per polygon into dir. Existing files are never
// touched so their download state survives a new discovery run.
func Export(dir string, polygons []Polygon, log logrus.FieldLogger) (ExportSummary, error) {
	var summary ExportSummary
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return summary, fmt.Errorf("failed to create AOI directory: %w", err)
	}

	for _, polygon := range polygons {
		siteLog := log.WithField("site", polygon.SiteID())
		switch polygon.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			siteLog.Warn("Skipping polygon without an areal geometry")
			summary.Skipped++
			continue
		}

		path := filepath.Join(dir, polygon.SiteID()+aoi.Extension)
		written, err := writeNew(path, polygon)
		if err != nil {
			return summary, err
		}
		if !written {
			siteLog.Debug("AOI file already exists, keeping it")
			summary.Kept++
			continue
		}
		summary.Written++
	}

	log.WithFields(logrus.Fields{
		"written": summary.Written,
		"kept":    summary.Kept,
		"skipped": summary.Skipped,
	}).Info("Exported mining AOIs")
	return summary, nil
}

func writeNew(path string, polygon Polygon) (bool, error) {
	feature := geojson.NewFeature(polygon.Geometry)
	for key, value := range polygon.Properties {
		feature.Properties[key] = value
	}
	feature.Properties[aoi.PropertyCountry] = polygon.Country

	data, err := json.MarshalIndent(feature, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode AOI %s: %w", polygon.SiteID(), err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	_, err = file.Write(data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
