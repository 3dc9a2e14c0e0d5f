// Package imagery holds the provider-agnostic image model: search queries,
// image handles, nearest-date resolution and change-label derivation.
package imagery

import (
	"context"
	"time"

	"github.com/paulmach/orb"
)

type Kind string

const (
	KindImagery Kind = "sentinel"
	KindLabel   Kind = "labels"
	KindChange  Kind = "change_labels"
)

// Image is a handle to a single provider image. Derived images carry the
// operands they were computed from instead of a provider id.
type Image struct {
	ID         string
	Collection string
	AcquiredAt time.Time
	Bands      []string
	CloudCover float64
	Derivation *Derivation
}

type Derivation struct {
	Previous *Image
	Current  *Image
}

func (img *Image) BandCount() int {
	if img == nil {
		return 0
	}
	return len(img.Bands)
}

type Query struct {
	Collection string
	Region     orb.Geometry
	From       time.Time
	To         time.Time
	Bands      []string
	// MaxCloudCover filters on scene cloud percentage when set.
	MaxCloudCover *float64
}

type ExportRequest struct {
	Image  *Image
	Region orb.Geometry
	// Scale is the output resolution in meters per pixel.
	Scale float64
	Path  string
}

// Provider is the imagery service session. Implementations must be safe for
// sequential use; the pipeline never calls them concurrently.
type Provider interface {
	Search(ctx context.Context, query Query) ([]Image, error)
	Export(ctx context.Context, req ExportRequest) error
}
