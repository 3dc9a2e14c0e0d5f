package convert

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/raster"
	"github.com/airbusgeo/godal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNpyHeaderLayout(t *testing.T) {
	for _, shape := range [][]int{{3}, {2, 2}, {6, 256, 256}} {
		header := npyHeader("<f4", shape)
		assert.Zero(t, len(header)%npyAlignment)
		assert.Equal(t, "\x93NUMPY", string(header[:6]))
		assert.Equal(t, []byte{1, 0}, header[6:8])
		assert.Equal(t, len(header)-10, int(binary.LittleEndian.Uint16(header[8:10])))
		assert.Equal(t, byte('\n'), header[len(header)-1])
	}
	assert.Contains(t, string(npyHeader("<i4", []int{5})), "'shape': (5,), ")
	assert.Contains(t, string(npyHeader("<f4", []int{6, 4, 3})), "{'descr': '<f4', 'fortran_order': False, 'shape': (6, 4, 3), }")
}

func TestWriteNpy(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeNpy(&buf, []int{2, 2}, []int32{102, 305, 0, 9999}))

	header := npyHeader("<i4", []int{2, 2})
	require.Equal(t, header, buf.Bytes()[:len(header)])
	values := make([]int32, 4)
	require.NoError(t, binary.Read(bytes.NewReader(buf.Bytes()[len(header):]), binary.LittleEndian, values))
	assert.Equal(t, []int32{102, 305, 0, 9999}, values)

	assert.Error(t, writeNpy(&buf, []int{3}, []float32{1}))
}

func TestArrayBase(t *testing.T) {
	assert.Equal(t, "2020", arrayBase("/x/sentinel/2020_comp.tif"))
	assert.Equal(t, "2019_2020", arrayBase("change_labels/2019_2020_comp.tif"))
	assert.Equal(t, "2021", arrayBase("2021.tif"))
}

func writeTiff(t *testing.T, path string, dtype godal.DataType, bands [][]float32, width, height int) {
	t.Helper()
	raster.Register()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))
	ds, err := godal.Create(godal.GTiff, path, len(bands), dtype, width, height)
	require.NoError(t, err)
	for i, data := range bands {
		require.NoError(t, ds.Bands()[i].Write(0, 0, data, width, height))
	}
	require.NoError(t, ds.Close())
}

func readNpy(t *testing.T, path string) (string, []byte) {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	headerLen := int(binary.LittleEndian.Uint16(content[8:10]))
	return string(content[10 : 10+headerLen]), content[10+headerLen:]
}

func TestConverterRun(t *testing.T) {
	root := t.TempDir()
	splitRoot := filepath.Join(root, "lucd_split")
	outRoot := filepath.Join(root, "processed_numpy")

	site := filepath.Join(splitRoot, "train", "mine_USA_1")
	writeTiff(t, filepath.Join(site, "sentinel", "2020_comp.tif"), godal.UInt16,
		[][]float32{{0, 10000, 5000}, {2500, 1, 10000}}, 3, 1)
	writeTiff(t, filepath.Join(site, "change_labels", "2020_2021_comp.tif"), godal.UInt16,
		[][]float32{{101, 106, 707}}, 3, 1)
	require.NoError(t, os.MkdirAll(filepath.Join(splitRoot, "test", "mine_CAN_2", "sentinel"), os.ModePerm))

	logger, _ := logtest.NewNullLogger()
	c := &Converter{SplitRoot: splitRoot, OutputRoot: outRoot, Workers: 2, Log: logger}
	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Sites: 2, Images: 1, Labels: 1}, summary)

	header, data := readNpy(t, filepath.Join(outRoot, "train", "mine_USA_1", "2020_img.npy"))
	assert.True(t, strings.HasPrefix(header, "{'descr': '<f4', 'fortran_order': False, 'shape': (2, 1, 3), }"))
	values := make([]float32, 6)
	require.NoError(t, binary.Read(bytes.NewReader(data), binary.LittleEndian, values))
	assert.InDeltaSlice(t, []float32{0, 1, 0.5, 0.25, 0.0001, 1}, values, 1e-6)

	header, data = readNpy(t, filepath.Join(outRoot, "train", "mine_USA_1", "2020_2021_label.npy"))
	assert.Contains(t, header, "'descr': '<i4'")
	assert.Contains(t, header, "'shape': (1, 3)")
	labels := make([]int32, 3)
	require.NoError(t, binary.Read(bytes.NewReader(data), binary.LittleEndian, labels))
	assert.Equal(t, []int32{101, 106, 707}, labels)

	assert.DirExists(t, filepath.Join(outRoot, "test", "mine_CAN_2"))
}

func TestConverterWithoutSplits(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	c := &Converter{SplitRoot: filepath.Join(t.TempDir(), "missing"), OutputRoot: t.TempDir(), Log: logger}
	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary)
}

func TestNormalize(t *testing.T) {
	out := normalize(&raster.Float32Raster{Width: 1, Height: 1, Bands: [][]float32{{10000}, {math.MaxUint16}}})
	assert.InDeltaSlice(t, []float32{1, 6.5535}, out, 1e-5)
}
