package imagery

import (
	"math"
	"sort"
	"time"
)

// Nearest returns the image acquired closest to target, or nil when images is
// empty. Ties keep the provider's delivery order.
func Nearest(images []Image, target time.Time) *Image {
	if len(images) == 0 {
		return nil
	}
	sorted := make([]Image, len(images))
	copy(sorted, images)
	sort.SliceStable(sorted, func(i, j int) bool {
		return dayDiff(sorted[i].AcquiredAt, target) < dayDiff(sorted[j].AcquiredAt, target)
	})
	nearest := sorted[0]
	return &nearest
}

func dayDiff(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours() / 24)
}

// YearTarget is Jan 1 of year, UTC.
func YearTarget(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
