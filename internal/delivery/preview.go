package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/dataset"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/export"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/output"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/raster"
)

const previewDir = "previews"

type Preview struct {
	Kind          imagery.Kind
	Path          string
	ChangedPixels int
}

// Preview renders the label raster of year and, after the first year, the
// change raster ending in year. PNGs go to {raster_root}/{site}/previews.
func (p *Pipeline) Preview(site string, year int) ([]Preview, error) {
	if year < p.Config.StartYear || year >= p.Config.EndYear {
		return nil, fmt.Errorf("year %d is outside the configured range %d-%d", year, p.Config.StartYear, p.Config.EndYear-1)
	}
	raster.Register()
	layout := dataset.Layout{Root: p.Config.RasterRoot}

	kinds := []imagery.Kind{imagery.KindLabel}
	if year > p.Config.StartYear {
		kinds = append(kinds, imagery.KindChange)
	}

	var previews []Preview
	for _, kind := range kinds {
		rasterPath, err := existingArtifact(layout.Path(site, kind, year))
		if err != nil {
			return previews, err
		}
		name := strings.TrimSuffix(dataset.ArtifactFile(kind, year), filepath.Ext(rasterPath)) + ".png"
		outputPath := filepath.Join(layout.SiteDir(site), previewDir, name)

		changed, err := output.RenderLabelPreview(rasterPath, outputPath, kind == imagery.KindChange)
		if err != nil {
			return previews, fmt.Errorf("failed to render %s preview of %s: %w", kind, site, err)
		}
		p.Log.WithField("site", site).WithField("path", outputPath).Info("Rendered preview")
		previews = append(previews, Preview{Kind: kind, Path: outputPath, ChangedPixels: changed})
	}
	return previews, nil
}

// existingArtifact prefers the compressed raster and falls back to a raw one
// left behind by a failed compression.
func existingArtifact(raw string) (string, error) {
	for _, path := range []string{export.CompressedPath(raw), raw} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("raster %s not found", export.CompressedPath(raw))
}
