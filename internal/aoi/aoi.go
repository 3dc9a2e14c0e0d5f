// Package aoi reads and updates the per-site AOI GeoJSON files.
package aoi

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

const (
	Extension = ".geojson"

	PropertyDownloaded = "downloaded"
	PropertyCountry    = "ISO3_CODE"
)

type Record struct {
	ID      string
	Path    string
	Feature *geojson.Feature
}

// SiteID is the file name without its extension.
func SiteID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read AOI file %s: %w", path, err)
	}
	feature, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, fmt.Errorf("malformed AOI file %s: %w", path, err)
	}
	switch feature.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return nil, fmt.Errorf("malformed AOI file %s: geometry must be a Polygon or MultiPolygon, got %T", path, feature.Geometry)
	}
	if feature.Properties == nil {
		feature.Properties = geojson.Properties{}
	}
	return &Record{ID: SiteID(path), Path: path, Feature: feature}, nil
}

func (r *Record) Downloaded() bool {
	v, ok := r.Feature.Properties[PropertyDownloaded].(bool)
	return ok && v
}

func (r *Record) Country() string {
	return r.Feature.Properties.MustString(PropertyCountry, "")
}

func (r *Record) Geometry() orb.Geometry {
	return r.Feature.Geometry
}

func (r *Record) Bound() orb.Bound {
	return r.Feature.Geometry.Bound()
}

// Area is the planar area in squared degrees, only used for logging.
func (r *Record) Area() float64 {
	return math.Abs(planar.Area(r.Feature.Geometry))
}

// MarkDownloaded sets downloaded=true and rewrites the file.
func (r *Record) MarkDownloaded() error {
	r.Feature.Properties[PropertyDownloaded] = true
	return r.Save()
}

// Save rewrites the record with two-space indentation through a temp file
// so a crash never leaves a truncated AOI behind.
func (r *Record) Save() error {
	data, err := json.MarshalIndent(r.Feature, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal AOI %s: %w", r.ID, err)
	}

	tmpFile := r.Path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp AOI file: %w", err)
	}
	if err := os.Rename(tmpFile, r.Path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp AOI file: %w", err)
	}
	return nil
}

// List returns the AOI file paths in dir sorted by file name.
func List(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+Extension))
	if err != nil {
		return nil, fmt.Errorf("failed to list AOI files in %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadAll loads every AOI in dir. The first malformed file aborts.
func LoadAll(dir string) ([]*Record, error) {
	paths, err := List(dir)
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(paths))
	for _, path := range paths {
		record, err := Load(path)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// CompletedIDs returns the sorted ids of every AOI marked downloaded.
func CompletedIDs(dir string) ([]string, error) {
	records, err := LoadAll(dir)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, record := range records {
		if record.Downloaded() {
			ids = append(ids, record.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
