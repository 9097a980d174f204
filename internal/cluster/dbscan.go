// Package cluster groups face embeddings into candidate identities using
// density-based (DBSCAN) clustering over cosine distance.
//
// The implementation is exact and deterministic: points are processed in
// ascending ID order, seed expansion is breadth-first in that same order, and
// a border point reachable from two dense regions joins whichever region's
// core point reaches it first under the stable order. That tie-break is a
// documented property of the scan order, not a similarity judgment.
package cluster

import (
	"slices"
	"sort"
)

// Point is a single embedding to be clustered, identified by its face ID.
type Point struct {
	ID        int64
	Embedding []float32
}

// Cluster is one dense group produced by a clustering run. Transient: it
// exists only between a clustering call and the reconciliation commit.
type Cluster struct {
	// IDs of member points, ascending.
	IDs []int64
	// Centroid is the mean of member embeddings.
	Centroid []float32
}

// Result is the outcome of one clustering run.
type Result struct {
	Clusters []Cluster
	// Noise lists points that did not meet the density threshold, ascending.
	// They stay unassigned.
	Noise []int64
}

const (
	labelUnvisited = 0
	labelNoise     = -1
)

// Run partitions points into clusters with exact DBSCAN. Fewer than
// MinSamples points means no clusters can form: everything is noise. Empty
// input returns an empty result. The same points and params always produce
// the same membership regardless of input order.
func Run(points []Point, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool { return pts[i].ID < pts[j].ID })

	labels := make([]int, len(pts))
	nextCluster := 0

	for i := range pts {
		if labels[i] != labelUnvisited {
			continue
		}

		neighbors := regionQuery(pts, i, p.Eps)
		if len(neighbors) < p.MinSamples {
			labels[i] = labelNoise
			continue
		}

		nextCluster++
		expandCluster(pts, labels, i, neighbors, nextCluster, p)
	}

	return collect(pts, labels, nextCluster), nil
}

// expandCluster grows cluster c from core point seed using a FIFO frontier,
// keeping the scan order stable.
func expandCluster(pts []Point, labels []int, seed int, neighbors []int, c int, p Params) {
	labels[seed] = c

	frontier := neighbors
	for len(frontier) > 0 {
		j := frontier[0]
		frontier = frontier[1:]

		if labels[j] == labelNoise {
			// Border point: density-reachable but not itself dense.
			labels[j] = c
			continue
		}
		if labels[j] != labelUnvisited {
			continue
		}
		labels[j] = c

		jNeighbors := regionQuery(pts, j, p.Eps)
		if len(jNeighbors) >= p.MinSamples {
			frontier = append(frontier, jNeighbors...)
		}
	}
}

// regionQuery returns the indexes of all points within eps of pts[i],
// the point itself included, in ascending ID order.
func regionQuery(pts []Point, i int, eps float64) []int {
	var neighbors []int
	for j := range pts {
		if CosineDistance(pts[i].Embedding, pts[j].Embedding) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

func collect(pts []Point, labels []int, clusters int) *Result {
	res := &Result{}
	members := make([][]int64, clusters+1)

	for i, label := range labels {
		if label == labelNoise {
			res.Noise = append(res.Noise, pts[i].ID)
			continue
		}
		members[label] = append(members[label], pts[i].ID)
	}

	embByID := make(map[int64][]float32, len(pts))
	for i := range pts {
		embByID[pts[i].ID] = pts[i].Embedding
	}

	for c := 1; c <= clusters; c++ {
		ids := members[c]
		if len(ids) == 0 {
			continue
		}
		slices.Sort(ids)
		embeddings := make([][]float32, len(ids))
		for i, id := range ids {
			embeddings[i] = embByID[id]
		}
		res.Clusters = append(res.Clusters, Cluster{
			IDs:      ids,
			Centroid: Centroid(embeddings),
		})
	}

	return res
}
