package delivery

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/aoi"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/dataset"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/gocarina/gocsv"
)

type SiteStatus struct {
	SiteID  string `csv:"site_id"`
	Country string `csv:"country"`
	State   string `csv:"state"`
	Imagery int    `csv:"sentinel"`
	Labels  int    `csv:"labels"`
	Changes int    `csv:"change_labels"`
}

// Status lists every AOI with its persisted state and the number of rasters
// on disk per artifact kind.
func (p *Pipeline) Status() ([]*SiteStatus, error) {
	records, err := aoi.LoadAll(p.Config.AOIDir)
	if err != nil {
		return nil, err
	}
	layout := dataset.Layout{Root: p.Config.RasterRoot}

	rows := make([]*SiteStatus, 0, len(records))
	for _, record := range records {
		row := &SiteStatus{
			SiteID:  record.ID,
			Country: record.Country(),
			State:   dataset.StateOf(record).String(),
		}
		if row.Imagery, err = countRasters(layout, record.ID, imagery.KindImagery); err != nil {
			return nil, err
		}
		if row.Labels, err = countRasters(layout, record.ID, imagery.KindLabel); err != nil {
			return nil, err
		}
		if row.Changes, err = countRasters(layout, record.ID, imagery.KindChange); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func countRasters(layout dataset.Layout, site string, kind imagery.Kind) (int, error) {
	matches, err := filepath.Glob(filepath.Join(layout.SiteDir(site), string(kind), "*.tif"))
	if err != nil {
		return 0, fmt.Errorf("failed to list %s rasters of %s: %w", kind, site, err)
	}
	return len(matches), nil
}

// WriteStatusCSV writes rows as CSV with a header line.
func WriteStatusCSV(w io.Writer, rows []*SiteStatus) error {
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write status csv: %w", err)
	}
	return nil
}
