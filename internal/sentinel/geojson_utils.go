package sentinel

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const maxPixels = 2500

func calculatePixels(distance float64, resolution float64) int {
	pixels := distance * (111_000.0 / resolution)
	if pixels < 1 {
		return 1
	}
	return int(pixels)
}

// outputSize converts the region bounds in degrees into a pixel grid at the
// given resolution in meters, clamped to the allowed range (1-2500).
func outputSize(bound orb.Bound, resolution float64) (int, int) {
	width := min(calculatePixels(bound.Max.X()-bound.Min.X(), resolution), maxPixels)
	height := min(calculatePixels(bound.Max.Y()-bound.Min.Y(), resolution), maxPixels)
	return width, height
}

func bbox(region orb.Geometry) ([]float64, error) {
	if region == nil {
		return nil, errors.New("missing region geometry")
	}
	bound := region.Bound()
	return []float64{bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y()}, nil
}

func regionGeometry(region orb.Geometry) (*geojson.Geometry, error) {
	if region == nil {
		return nil, errors.New("missing region geometry")
	}
	return geojson.NewGeometry(region), nil
}
