// Package raster wraps the GDAL operations the pipeline needs: compression,
// band inspection and reading pixel data.
package raster

import (
	"errors"
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
)

var registerOnce sync.Once

// Register loads the GDAL drivers once per process.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

func open(path string) (*godal.Dataset, error) {
	Register()
	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return errors.New(msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", path, err)
	}
	return ds, nil
}

// BandCount returns the number of bands in the raster at path.
func BandCount(path string) (int, error) {
	ds, err := open(path)
	if err != nil {
		return 0, err
	}
	defer ds.Close()
	return ds.Structure().NBands, nil
}

type Float32Raster struct {
	Width  int
	Height int
	// Bands holds one row-major slice per band.
	Bands [][]float32
}

// ReadFloat32 reads every band of the raster at path.
func ReadFloat32(path string) (*Float32Raster, error) {
	ds, err := open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	structure := ds.Structure()
	width, height := structure.SizeX, structure.SizeY
	result := &Float32Raster{Width: width, Height: height}
	for i, band := range ds.Bands() {
		data := make([]float32, width*height)
		if err := band.Read(0, 0, data, width, height); err != nil {
			return nil, fmt.Errorf("failed to read band %d of %s: %w", i+1, path, err)
		}
		result.Bands = append(result.Bands, data)
	}
	return result, nil
}

type Int32Band struct {
	Width  int
	Height int
	Data   []int32
}

// ReadInt32Band reads a single band (1-based) of the raster at path.
func ReadInt32Band(path string, index int) (*Int32Band, error) {
	ds, err := open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	bands := ds.Bands()
	if index < 1 || index > len(bands) {
		return nil, fmt.Errorf("band %d out of range for %s with %d bands", index, path, len(bands))
	}
	structure := ds.Structure()
	width, height := structure.SizeX, structure.SizeY
	data := make([]int32, width*height)
	if err := bands[index-1].Read(0, 0, data, width, height); err != nil {
		return nil, fmt.Errorf("failed to read band %d of %s: %w", index, path, err)
	}
	return &Int32Band{Width: width, Height: height, Data: data}, nil
}
