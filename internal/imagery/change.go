package imagery

import "fmt"

const (
	ChangeBand       = "change"
	ChangeMultiplier = 100
)

// EncodeChange packs an ordered pair of classes into one value.
func EncodeChange(previous, current int) int {
	return previous*ChangeMultiplier + current
}

// DecodeChange is the inverse of EncodeChange for classes in [0, 99].
func DecodeChange(value int) (previous, current int) {
	return value / ChangeMultiplier, value % ChangeMultiplier
}

// Change derives the change-label image from two resolved label images.
// It returns nil when either operand is missing.
func Change(previous, current *Image) *Image {
	if previous == nil || current == nil {
		return nil
	}
	if previous.BandCount() == 0 || current.BandCount() == 0 {
		return &Image{ID: changeID(previous, current), Collection: current.Collection}
	}
	return &Image{
		ID:         changeID(previous, current),
		Collection: current.Collection,
		AcquiredAt: current.AcquiredAt,
		Bands:      []string{ChangeBand},
		Derivation: &Derivation{Previous: previous, Current: current},
	}
}

func changeID(previous, current *Image) string {
	return fmt.Sprintf("%s*%d+%s", previous.ID, ChangeMultiplier, current.ID)
}
