// Package split partitions completed sites into train, validation and test
// sets and materializes the split tree.
package split

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

const (
	Train = "train"
	Val   = "val"
	Test  = "test"
)

// Names lists the splits in manifest order.
var Names = []string{Train, Val, Test}

type Assignment struct {
	Train []string
	Val   []string
	Test  []string
}

// Sites returns the ids assigned to the named split.
func (a Assignment) Sites(name string) []string {
	switch name {
	case Train:
		return a.Train
	case Val:
		return a.Val
	case Test:
		return a.Test
	}
	return nil
}

func (a Assignment) Len() int {
	return len(a.Train) + len(a.Val) + len(a.Test)
}

func ValidateRatios(ratios [3]float64) error {
	var sum float64
	for _, r := range ratios {
		if r < 0 || math.IsNaN(r) {
			return fmt.Errorf("invalid split ratios %v: ratios must not be negative", ratios)
		}
		sum += r
	}
	if sum > 1+1e-9 {
		return fmt.Errorf("invalid split ratios %v: sum %v exceeds 1", ratios, sum)
	}
	return nil
}

// Partition is a pure function of the id set, the ratios and the seed: ids
// are sorted, shuffled with a PCG seeded by seed and cut at
// floor(r1*n) and floor(r1*n)+floor(r2*n). Whatever remains is test.
func Partition(ids []string, ratios [3]float64, seed uint64) (Assignment, error) {
	if err := ValidateRatios(ratios); err != nil {
		return Assignment{}, err
	}

	shuffled := slices.Clone(ids)
	slices.Sort(shuffled)
	shuffled = slices.Compact(shuffled)

	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := float64(len(shuffled))
	trainEnd := min(int(math.Floor(ratios[0]*n)), len(shuffled))
	valEnd := min(trainEnd+int(math.Floor(ratios[1]*n)), len(shuffled))

	return Assignment{
		Train: shuffled[:trainEnd:trainEnd],
		Val:   shuffled[trainEnd:valEnd:valEnd],
		Test:  shuffled[valEnd:],
	}, nil
}
