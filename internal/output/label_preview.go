// Package output renders label and change-label rasters as PNG previews.
package output

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/properties"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/raster"
	"github.com/fogleman/gg"
)

var classNames = []string{
	"Water",
	"Trees",
	"Grass",
	"Flooded vegetation",
	"Crops",
	"Shrub and scrub",
	"Built",
	"Bare",
	"Snow and ice",
}

const (
	legendSpacing = 20
	legendPadding = 10
	minWidth      = 220
)

func rgba(c properties.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// classColor maps a class value onto the palette; unknown classes are black.
func classColor(class int) color.RGBA {
	if class < 0 || class >= len(properties.ClassColors) {
		return color.RGBA{A: 255}
	}
	return rgba(properties.ClassColors[class])
}

// labelImage colors every pixel by class. For change rasters the current
// class is drawn, or red where the class changed.
func labelImage(band *raster.Int32Band, change bool) (*image.RGBA, int) {
	img := image.NewRGBA(image.Rect(0, 0, band.Width, band.Height))
	changed := 0
	for y := 0; y < band.Height; y++ {
		for x := 0; x < band.Width; x++ {
			value := int(band.Data[y*band.Width+x])
			if !change {
				img.SetRGBA(x, y, classColor(value))
				continue
			}
			previous, current := imagery.DecodeChange(value)
			if previous != current {
				changed++
				img.SetRGBA(x, y, rgba(properties.ChangedColor))
				continue
			}
			img.SetRGBA(x, y, classColor(current))
		}
	}
	return img, changed
}

// RenderLabelPreview writes a PNG of the label or change raster at
// rasterPath with a class legend underneath. It returns the number of
// changed pixels, always zero for plain labels.
func RenderLabelPreview(rasterPath, outputPath string, change bool) (int, error) {
	band, err := raster.ReadInt32Band(rasterPath, 1)
	if err != nil {
		return 0, err
	}
	img, changed := labelImage(band, change)

	entries := len(classNames)
	if change {
		entries++
	}
	width := max(band.Width, minWidth)
	legendHeight := legendPadding*2 + entries*legendSpacing
	totalHeight := band.Height + legendHeight

	dc := gg.NewContext(width, totalHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	legendY := band.Height + legendPadding
	for i, name := range classNames {
		drawLegendItem(dc, legendY+i*legendSpacing, classColor(i), name)
	}
	if change {
		drawLegendItem(dc, legendY+len(classNames)*legendSpacing, rgba(properties.ChangedColor), fmt.Sprintf("Changed (%d px)", changed))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return 0, fmt.Errorf("failed to create result folder: %w", err)
	}
	if err := dc.SavePNG(outputPath); err != nil {
		return 0, fmt.Errorf("failed to save image: %w", err)
	}
	return changed, nil
}

func drawLegendItem(dc *gg.Context, y int, c color.RGBA, label string) {
	dc.SetRGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
	dc.DrawRectangle(legendPadding, float64(y), 15, 15)
	dc.Fill()

	dc.SetRGB(0, 0, 0)
	dc.DrawRectangle(legendPadding, float64(y), 15, 15)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.DrawStringAnchored(label, legendPadding+20, float64(y+7), 0, 0.5)
}
