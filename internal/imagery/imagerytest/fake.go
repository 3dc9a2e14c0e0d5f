// Package imagerytest provides an in-memory imagery provider for tests.
package imagerytest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
)

// Provider serves fixed images per collection and writes a small text file
// for every export. Search results are filtered by the query window and
// carry the query's band selection, like a provider-side select.
type Provider struct {
	mu sync.Mutex

	Images map[string][]imagery.Image
	// SearchErr fails every search of the collection.
	SearchErr map[string]error
	// ExportErr, when set, is consulted before writing each export.
	ExportErr func(req imagery.ExportRequest) error

	Searches []imagery.Query
	Exports  []imagery.ExportRequest
}

func New() *Provider {
	return &Provider{
		Images:    map[string][]imagery.Image{},
		SearchErr: map[string]error{},
	}
}

func (p *Provider) Search(ctx context.Context, query imagery.Query) ([]imagery.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Searches = append(p.Searches, query)

	if err := p.SearchErr[query.Collection]; err != nil {
		return nil, err
	}
	var found []imagery.Image
	for _, img := range p.Images[query.Collection] {
		if img.AcquiredAt.Before(query.From) || img.AcquiredAt.After(query.To) {
			continue
		}
		if query.MaxCloudCover != nil && img.CloudCover >= *query.MaxCloudCover {
			continue
		}
		if img.Bands == nil {
			img.Bands = append([]string(nil), query.Bands...)
		}
		found = append(found, img)
	}
	return found, nil
}

func (p *Provider) Export(ctx context.Context, req imagery.ExportRequest) error {
	p.mu.Lock()
	p.Exports = append(p.Exports, req)
	exportErr := p.ExportErr
	p.mu.Unlock()

	if exportErr != nil {
		if err := exportErr(req); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(req.Path, []byte(fmt.Sprintf("raster:%s", req.Image.ID)), 0644)
}

// ExportCount returns how many exports were requested so far.
func (p *Provider) ExportCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Exports)
}

// ExportedIDs returns the image ids of every export request in call order.
func (p *Provider) ExportedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.Exports))
	for _, req := range p.Exports {
		ids = append(ids, req.Image.ID)
	}
	return ids
}
