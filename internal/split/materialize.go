package split

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/aoi"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/metrics"
	"github.com/gammazero/workerpool"
	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
)

const ManifestFile = "manifest.csv"

type ManifestRow struct {
	SiteID  string `csv:"site_id"`
	Split   string `csv:"split"`
	Present bool   `csv:"present"`
}

type Result struct {
	Assignment Assignment
	// Missing lists assigned sites whose raster directory does not exist.
	Missing []string
}

// Counts returns the number of sites per split, missing sites included.
func (r Result) Counts() map[string]int {
	counts := make(map[string]int, len(Names))
	for _, name := range Names {
		counts[name] = len(r.Assignment.Sites(name))
	}
	return counts
}

type Partitioner struct {
	AOIDir     string
	RasterRoot string
	SplitRoot  string
	Ratios     [3]float64
	Seed       uint64
	Workers    int

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

// Run partitions every completed site and copies its raster tree to
// {SplitRoot}/{split}/{site}. A missing source directory is a warning; the
// site keeps its place in the assignment.
func (p *Partitioner) Run(ctx context.Context) (Result, error) {
	ids, err := aoi.CompletedIDs(p.AOIDir)
	if err != nil {
		return Result{}, err
	}

	assignment, err := Partition(ids, p.Ratios, p.Seed)
	if err != nil {
		return Result{}, err
	}
	result := Result{Assignment: assignment}

	p.Log.WithFields(logrus.Fields{
		"sites": len(ids),
		"train": len(assignment.Train),
		"val":   len(assignment.Val),
		"test":  len(assignment.Test),
	}).Info("Partitioned completed sites")

	if err := p.prune(assignment); err != nil {
		return result, err
	}
	missing, err := p.materialize(ctx, assignment)
	if err != nil {
		return result, err
	}
	result.Missing = missing

	if err := p.writeManifest(assignment, missing); err != nil {
		return result, err
	}
	for name, n := range result.Counts() {
		p.Metrics.SplitSize(name, n)
	}
	return result, nil
}

// prune creates the three split directories and removes every site copy
// left there by an earlier run that is not assigned to that split now.
func (p *Partitioner) prune(assignment Assignment) error {
	for _, name := range Names {
		dir := filepath.Join(p.SplitRoot, name)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create split directory %s: %w", dir, err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to list split directory %s: %w", dir, err)
		}
		assigned := assignment.Sites(name)
		for _, entry := range entries {
			if slices.Contains(assigned, entry.Name()) {
				continue
			}
			stale := filepath.Join(dir, entry.Name())
			if err := os.RemoveAll(stale); err != nil {
				return fmt.Errorf("failed to remove stale copy %s: %w", stale, err)
			}
			p.Log.WithFields(logrus.Fields{"site": entry.Name(), "split": name}).Debug("Removed stale site copy")
		}
	}
	return nil
}

func (p *Partitioner) materialize(ctx context.Context, assignment Assignment) ([]string, error) {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu       sync.Mutex
		missing  []string
		firstErr error
	)
	wp := workerpool.New(workers)
	for _, name := range Names {
		for _, site := range assignment.Sites(name) {
			src := filepath.Join(p.RasterRoot, site)
			dst := filepath.Join(p.SplitRoot, name, site)
			wp.Submit(func() {
				if ctx.Err() != nil {
					return
				}
				err := copySite(src, dst)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case errors.Is(err, os.ErrNotExist):
					p.Log.WithFields(logrus.Fields{"site": site, "path": src}).Warn("Site directory not found, skipping copy")
					missing = append(missing, site)
				case err != nil && firstErr == nil:
					firstErr = fmt.Errorf("failed to copy site %s: %w", site, err)
				}
			})
		}
	}
	wp.StopWait()
	slices.Sort(missing)

	if firstErr != nil {
		return missing, firstErr
	}
	if err := ctx.Err(); err != nil {
		return missing, err
	}
	return missing, nil
}

// copySite replaces dst with a copy of src. It returns os.ErrNotExist when
// src is absent.
func copySite(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	return os.CopyFS(dst, os.DirFS(src))
}

func (p *Partitioner) writeManifest(assignment Assignment, missing []string) error {
	absent := make(map[string]bool, len(missing))
	for _, site := range missing {
		absent[site] = true
	}

	var rows []*ManifestRow
	for _, name := range Names {
		for _, site := range assignment.Sites(name) {
			rows = append(rows, &ManifestRow{SiteID: site, Split: name, Present: !absent[site]})
		}
	}

	if err := os.MkdirAll(p.SplitRoot, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create split root: %w", err)
	}
	path := filepath.Join(p.SplitRoot, ManifestFile)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by Run.
func ReadManifest(splitRoot string) ([]*ManifestRow, error) {
	file, err := os.Open(filepath.Join(splitRoot, ManifestFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []*ManifestRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return rows, nil
}
