package cluster

import (
	"sort"
)

// Anchor is the fixed centroid of an existing stable identity. Anchors are
// never moved, merged, or re-clustered; new points may only join them.
type Anchor struct {
	PersonID int64
	Centroid []float32
}

// AnchorMembers lists the new points that joined one anchor.
type AnchorMembers struct {
	PersonID int64
	// IDs of joined points, ascending.
	IDs []int64
}

// IncrementalResult is the outcome of a new-faces-only clustering run.
type IncrementalResult struct {
	// Anchored holds points that joined an existing identity's centroid,
	// grouped per anchor and ordered by ascending person ID.
	Anchored []AnchorMembers
	// Residual is the density clustering of the points no anchor claimed.
	Residual *Result
}

// RunIncremental clusters only new points against fixed anchors. Each point
// joins the nearest anchor within Eps of its centroid; ties at equal distance
// go to the lowest person ID. Points no anchor claims are density-clustered
// among themselves with the same parameters. Already-clustered or confirmed
// faces must not be in points; this function never emits an assignment for
// anything but the given points.
func RunIncremental(points []Point, anchors []Anchor, p Params) (*IncrementalResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	sortedAnchors := make([]Anchor, len(anchors))
	copy(sortedAnchors, anchors)
	sort.Slice(sortedAnchors, func(i, j int) bool {
		return sortedAnchors[i].PersonID < sortedAnchors[j].PersonID
	})

	sortedPoints := make([]Point, len(points))
	copy(sortedPoints, points)
	sort.Slice(sortedPoints, func(i, j int) bool { return sortedPoints[i].ID < sortedPoints[j].ID })

	joined := make(map[int64][]int64)
	var residualPoints []Point

	for _, pt := range sortedPoints {
		best := int64(-1)
		bestDist := p.Eps
		for _, a := range sortedAnchors {
			// Strict less-than keeps the first (lowest person ID) anchor on ties.
			if d := CosineDistance(pt.Embedding, a.Centroid); d <= p.Eps && (best == -1 || d < bestDist) {
				best = a.PersonID
				bestDist = d
			}
		}
		if best >= 0 {
			joined[best] = append(joined[best], pt.ID)
		} else {
			residualPoints = append(residualPoints, pt)
		}
	}

	res := &IncrementalResult{}
	for _, a := range sortedAnchors {
		if ids := joined[a.PersonID]; len(ids) > 0 {
			res.Anchored = append(res.Anchored, AnchorMembers{PersonID: a.PersonID, IDs: ids})
		}
	}

	residual, err := Run(residualPoints, p)
	if err != nil {
		return nil, err
	}
	res.Residual = residual

	return res, nil
}
