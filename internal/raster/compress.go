package raster

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/export"
	"github.com/sirupsen/logrus"
)

var creationOptions = []string{
	"-co", "COMPRESS=DEFLATE",
	"-co", "PREDICTOR=2",
	"-co", "TILED=YES",
	"-co", "BIGTIFF=IF_SAFER",
}

// removeRaw deletes the source of a finished compression. The compressed file
// is already complete, so a failure only leaves the raw copy behind.
func removeRaw(log logrus.FieldLogger, path string) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithField("path", path).Warn("Failed to remove raw raster after compression")
	}
}

// GDALCompressor rewrites rasters in-process through GDAL's translate.
type GDALCompressor struct {
	Log logrus.FieldLogger
}

func (c GDALCompressor) Compress(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	output := export.CompressedPath(path)
	if err := os.MkdirAll(filepath.Dir(output), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", output, err)
	}

	ds, err := open(path)
	if err != nil {
		return "", err
	}
	switches := append([]string{"-of", "GTiff"}, creationOptions...)
	compressed, err := ds.Translate(output, switches)
	ds.Close()
	if err != nil {
		os.Remove(output)
		return "", fmt.Errorf("failed to compress %s: %w", path, err)
	}
	if err := compressed.Close(); err != nil {
		os.Remove(output)
		return "", fmt.Errorf("failed to flush %s: %w", output, err)
	}

	removeRaw(c.Log, path)
	return output, nil
}

// CommandCompressor shells out to the gdal_translate binary.
type CommandCompressor struct {
	// Binary defaults to gdal_translate on PATH.
	Binary string
	Log    logrus.FieldLogger
}

func (c CommandCompressor) Compress(ctx context.Context, path string) (string, error) {
	binary := c.Binary
	if binary == "" {
		binary = "gdal_translate"
	}
	output := export.CompressedPath(path)
	if err := os.MkdirAll(filepath.Dir(output), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", output, err)
	}

	args := append([]string{path, output}, creationOptions...)
	cmd := exec.CommandContext(ctx, binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(output)
		return "", fmt.Errorf("%s failed for %s: %w: %s", binary, path, err, out)
	}

	removeRaw(c.Log, path)
	return output, nil
}

// NewCompressor returns the compressor registered under name.
func NewCompressor(name string, log logrus.FieldLogger) (export.Compressor, error) {
	switch name {
	case "gdal":
		return GDALCompressor{Log: log}, nil
	case "gdal_translate":
		return CommandCompressor{Log: log}, nil
	}
	return nil, fmt.Errorf("unknown compressor %q", name)
}
