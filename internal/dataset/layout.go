package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
)

// Layout maps artifacts onto the on-disk site tree:
//
//	{root}/{site}/sentinel/{year}.tif
//	{root}/{site}/labels/{year}_label.tif
//	{root}/{site}/change_labels/{year-1}_{year}.tif
type Layout struct {
	Root string
}

var siteDirs = []imagery.Kind{imagery.KindImagery, imagery.KindLabel, imagery.KindChange}

func (l Layout) SiteDir(site string) string {
	return filepath.Join(l.Root, site)
}

// Prepare creates the three artifact directories. Safe to call repeatedly.
func (l Layout) Prepare(site string) error {
	for _, kind := range siteDirs {
		dir := filepath.Join(l.SiteDir(site), string(kind))
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Path is the raw (uncompressed) output path of an artifact.
func (l Layout) Path(site string, kind imagery.Kind, year int) string {
	return filepath.Join(l.SiteDir(site), string(kind), ArtifactFile(kind, year))
}

func ArtifactFile(kind imagery.Kind, year int) string {
	switch kind {
	case imagery.KindLabel:
		return fmt.Sprintf("%d_label.tif", year)
	case imagery.KindChange:
		return fmt.Sprintf("%d_%d.tif", year-1, year)
	default:
		return strconv.Itoa(year) + ".tif"
	}
}

// ArtifactName identifies an artifact inside a site, e.g. "labels/2020".
func ArtifactName(kind imagery.Kind, year int) string {
	return fmt.Sprintf("%s/%d", kind, year)
}
