package model

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/v2/sets/treeset"
)

// ErrInvalidLevel reports a capture request outside a model's block
// range.
var ErrInvalidLevel = errors.New("invalid output layer level")

// Levels is an ordered set of 1-indexed block depths whose intermediate
// activations a forward pass captures alongside its final outputs. The
// zero value captures nothing.
type Levels struct {
	set *treeset.Set[int]
}

// ParseLevels validates requested capture depths against the block
// count of a model. Every depth must satisfy 1 <= depth <= blocks; one
// out-of-range value rejects the whole request before anything is
// computed. A nil slice requests no capture.
func ParseLevels(depths []int, blocks int) (*Levels, error) {
	if depths == nil {
		return nil, nil
	}

	set := treeset.New[int]()
	for _, depth := range depths {
		if depth < 1 || depth > blocks {
			return nil, fmt.Errorf("%w: cannot output layer deeper than depth (%d) or with non-positive index, got %v", ErrInvalidLevel, blocks, depths)
		}

		set.Add(depth)
	}

	return &Levels{set: set}, nil
}

// Contains reports whether the activation after block depth should be
// captured.
func (l *Levels) Contains(depth int) bool {
	return l != nil && l.set.Contains(depth)
}

// Values returns the requested depths in ascending order.
func (l *Levels) Values() []int {
	if l == nil {
		return nil
	}

	return l.set.Values()
}
