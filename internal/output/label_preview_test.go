package output

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/properties"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/raster"
	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelImage(t *testing.T) {
	band := &raster.Int32Band{Width: 2, Height: 1, Data: []int32{1, 42}}
	img, changed := labelImage(band, false)
	assert.Zero(t, changed)
	assert.Equal(t, rgba(properties.ClassColors[1]), img.RGBAAt(0, 0))
	assert.Equal(t, uint8(0), img.RGBAAt(1, 0).R)
}

func TestChangeImage(t *testing.T) {
	band := &raster.Int32Band{Width: 3, Height: 1, Data: []int32{101, 106, 707}}
	img, changed := labelImage(band, true)
	assert.Equal(t, 1, changed)
	assert.Equal(t, rgba(properties.ClassColors[1]), img.RGBAAt(0, 0))
	assert.Equal(t, rgba(properties.ChangedColor), img.RGBAAt(1, 0))
	assert.Equal(t, rgba(properties.ClassColors[7]), img.RGBAAt(2, 0))
}

func TestRenderLabelPreview(t *testing.T) {
	dir := t.TempDir()
	rasterPath := filepath.Join(dir, "2019_2020_comp.tif")
	raster.Register()
	ds, err := godal.Create(godal.GTiff, rasterPath, 1, godal.UInt16, 4, 2)
	require.NoError(t, err)
	require.NoError(t, ds.Bands()[0].Write(0, 0, []int32{101, 101, 106, 606, 707, 707, 107, 0}, 4, 2))
	require.NoError(t, ds.Close())

	out := filepath.Join(dir, "previews", "change.png")
	changed, err := RenderLabelPreview(rasterPath, out, true)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, minWidth, img.Bounds().Dx())
	assert.Equal(t, 2+legendPadding*2+(len(classNames)+1)*legendSpacing, img.Bounds().Dy())
}
