package sentinel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/sirupsen/logrus"
)

const (
	previousSource = "prev"
	currentSource  = "curr"
)

// reflectanceEvalscript returns the selected bands as digital numbers so
// values keep the 0-10000 reflectance scale.
func reflectanceEvalscript(bands []string) string {
	quoted := make([]string, len(bands))
	samples := make([]string, len(bands))
	for i, band := range bands {
		quoted[i] = fmt.Sprintf("%q", band)
		samples[i] = "sample." + band
	}
	return fmt.Sprintf(`//VERSION=3
function setup() {
  return {
    input: [{ bands: [%s], units: "DN" }],
    output: { id: "default", bands: %d, sampleType: SampleType.UINT16 },
  }
}

function evaluatePixel(sample) {
  return [%s];
}
`, strings.Join(quoted, ", "), len(bands), strings.Join(samples, ", "))
}

func labelEvalscript(band string) string {
	return fmt.Sprintf(`//VERSION=3
function setup() {
  return {
    input: [%q],
    output: { id: "default", bands: 1, sampleType: SampleType.UINT8 },
  }
}

function evaluatePixel(sample) {
  return [sample.%s];
}
`, band, band)
}

// changeEvalscript fuses two label acquisitions into prev*100+curr.
func changeEvalscript(band string, multiplier int) string {
	return fmt.Sprintf(`//VERSION=3
function setup() {
  return {
    input: [
      { datasource: %q, bands: [%q] },
      { datasource: %q, bands: [%q] },
    ],
    output: { id: "default", bands: 1, sampleType: SampleType.UINT16 },
  }
}

function evaluatePixel(samples) {
  return [samples.%s[0].%s * %d + samples.%s[0].%s];
}
`, previousSource, band, currentSource, band,
		previousSource, band, multiplier, currentSource, band)
}

// acquisitionRange covers the UTC day of the acquisition.
func acquisitionRange(img *imagery.Image) map[string]string {
	day := img.AcquiredAt.UTC().Truncate(24 * time.Hour)
	return map[string]string{
		"from": day.Format(time.RFC3339),
		"to":   day.Add(24 * time.Hour).Format(time.RFC3339),
	}
}

func dataSource(img *imagery.Image, id string) map[string]interface{} {
	source := map[string]interface{}{
		"type": img.Collection,
		"dataFilter": map[string]interface{}{
			"timeRange":  acquisitionRange(img),
			"mosaicking": "ORBIT",
		},
	}
	if id != "" {
		source["id"] = id
	}
	return source
}

// processPayload picks the evalscript: derived images fuse their operands,
// images of the reflectance collection keep every band as digital numbers and
// anything else is a categorical label.
func processPayload(req imagery.ExportRequest, reflectanceCollection string) (map[string]interface{}, error) {
	img := req.Image
	if img.BandCount() == 0 {
		return nil, errors.New("image has no bands to export")
	}
	geometry, err := regionGeometry(req.Region)
	if err != nil {
		return nil, err
	}
	width, height := outputSize(req.Region.Bound(), req.Scale)

	var (
		data       []map[string]interface{}
		evalscript string
	)
	switch {
	case img.Derivation != nil:
		prev, curr := img.Derivation.Previous, img.Derivation.Current
		if prev.BandCount() == 0 || curr.BandCount() == 0 {
			return nil, errors.New("change image operands have no bands")
		}
		data = []map[string]interface{}{dataSource(prev, previousSource), dataSource(curr, currentSource)}
		evalscript = changeEvalscript(curr.Bands[0], imagery.ChangeMultiplier)
	case img.Collection == reflectanceCollection:
		data = []map[string]interface{}{dataSource(img, "")}
		evalscript = reflectanceEvalscript(img.Bands)
	default:
		data = []map[string]interface{}{dataSource(img, "")}
		evalscript = labelEvalscript(img.Bands[0])
	}

	return map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"geometry": geometry,
			},
			"data": data,
		},
		"output": map[string]interface{}{
			"width":  width,
			"height": height,
			"responses": []map[string]interface{}{
				{
					"identifier": "default",
					"format": map[string]string{
						"type": "image/tiff",
					},
				},
			},
		},
		"evalscript": evalscript,
	}, nil
}

// Export renders the image over the region as a GeoTIFF written to req.Path.
func (c *Client) Export(ctx context.Context, req imagery.ExportRequest) error {
	payload, err := processPayload(req, c.reflectanceCollection)
	if err != nil {
		return err
	}

	response, err := c.post(ctx, processPath, payload)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if err := os.MkdirAll(filepath.Dir(req.Path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", req.Path, err)
	}
	file, err := os.Create(req.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", req.Path, err)
	}
	written, err := io.Copy(file, response.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", req.Path, err)
	}

	c.log.WithFields(logrus.Fields{
		"image": req.Image.ID,
		"path":  req.Path,
		"bytes": written,
	}).Debug("Process API response saved")
	return nil
}
