// Package convert turns the split raster tree into normalized NumPy arrays:
// imagery as float32 (bands, height, width) reflectance in [0, 1] and change
// labels as int32 (height, width).
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/export"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/raster"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/split"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ReflectanceScale maps Sentinel-2 digital numbers onto [0, 1].
const ReflectanceScale = 10000.0

type Converter struct {
	SplitRoot  string
	OutputRoot string
	Workers    int
	Log        logrus.FieldLogger
}

type Summary struct {
	Sites  int
	Images int
	Labels int
}

func (c *Converter) Run(ctx context.Context) (Summary, error) {
	var (
		summary        Summary
		images, labels atomic.Int64
	)
	for _, name := range split.Names {
		sites, err := siteDirs(filepath.Join(c.SplitRoot, name))
		if err != nil {
			return summary, err
		}
		if len(sites) == 0 {
			c.Log.WithField("split", name).Debug("No sites to convert")
			continue
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(max(c.Workers, 1))
		for _, site := range sites {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				in := filepath.Join(c.SplitRoot, name, site)
				out := filepath.Join(c.OutputRoot, name, site)
				nImages, nLabels, err := convertSite(in, out)
				if err != nil {
					return fmt.Errorf("failed to convert site %s: %w", site, err)
				}
				images.Add(int64(nImages))
				labels.Add(int64(nLabels))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return summary, err
		}
		summary.Sites += len(sites)
		c.Log.WithFields(logrus.Fields{"split": name, "sites": len(sites)}).Info("Converted split")
	}
	summary.Images = int(images.Load())
	summary.Labels = int(labels.Load())
	return summary, nil
}

func siteDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var sites []string
	for _, entry := range entries {
		if entry.IsDir() {
			sites = append(sites, entry.Name())
		}
	}
	sort.Strings(sites)
	return sites, nil
}

func rasterFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.tif"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// arrayBase strips the extension and the compression marker: 2020_comp.tif
// becomes 2020.
func arrayBase(path string) string {
	name := export.StripCompressed(filepath.Base(path))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func convertSite(in, out string) (int, int, error) {
	if err := os.MkdirAll(out, os.ModePerm); err != nil {
		return 0, 0, fmt.Errorf("failed to create %s: %w", out, err)
	}

	imageFiles, err := rasterFiles(filepath.Join(in, string(imagery.KindImagery)))
	if err != nil {
		return 0, 0, err
	}
	for _, path := range imageFiles {
		img, err := raster.ReadFloat32(path)
		if err != nil {
			return 0, 0, err
		}
		data := normalize(img)
		shape := []int{len(img.Bands), img.Height, img.Width}
		if err := saveNpy(filepath.Join(out, arrayBase(path)+"_img.npy"), shape, data); err != nil {
			return 0, 0, err
		}
	}

	labelFiles, err := rasterFiles(filepath.Join(in, string(imagery.KindChange)))
	if err != nil {
		return 0, 0, err
	}
	for _, path := range labelFiles {
		band, err := raster.ReadInt32Band(path, 1)
		if err != nil {
			return 0, 0, err
		}
		shape := []int{band.Height, band.Width}
		if err := saveNpy(filepath.Join(out, arrayBase(path)+"_label.npy"), shape, band.Data); err != nil {
			return 0, 0, err
		}
	}
	return len(imageFiles), len(labelFiles), nil
}

// normalize flattens the bands in (band, row, column) order scaled by
// 1/ReflectanceScale.
func normalize(img *raster.Float32Raster) []float32 {
	data := make([]float32, 0, len(img.Bands)*img.Width*img.Height)
	for _, band := range img.Bands {
		for _, v := range band {
			data = append(data, v/ReflectanceScale)
		}
	}
	return data
}
