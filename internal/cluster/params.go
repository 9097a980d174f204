package cluster

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when clustering parameters are rejected
// before any clustering work begins.
var ErrInvalidParams = errors.New("invalid clustering parameters")

// Params holds the DBSCAN tunables.
type Params struct {
	// Eps is the maximum neighborhood cosine distance. A point exactly Eps
	// away still counts as a neighbor.
	Eps float64
	// MinSamples is the minimum neighborhood size (the point itself included)
	// required to form a dense region.
	MinSamples int
}

// Validate rejects out-of-range parameters.
func (p Params) Validate() error {
	if p.Eps <= 0 {
		return fmt.Errorf("%w: eps must be > 0, got %v", ErrInvalidParams, p.Eps)
	}
	if p.MinSamples < 1 {
		return fmt.Errorf("%w: min_samples must be >= 1, got %d", ErrInvalidParams, p.MinSamples)
	}
	return nil
}
