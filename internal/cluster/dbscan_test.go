package cluster

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
)

// unit returns a unit vector at the given angle in the 2D plane. Cosine
// distance between two such vectors is 1 - cos(a-b), which makes test
// geometry easy to reason about.
func unit(angle float64) []float32 {
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

// tightGroup returns n points spread over a small angular arc around center,
// with IDs starting at firstID.
func tightGroup(firstID int64, center float64, n int) []Point {
	pts := make([]Point, n)
	for i := range n {
		angle := center + 0.01*float64(i)
		pts[i] = Point{ID: firstID + int64(i), Embedding: unit(angle)}
	}
	return pts
}

func TestRunParamValidation(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"zero eps", Params{Eps: 0, MinSamples: 3}},
		{"negative eps", Params{Eps: -0.5, MinSamples: 3}},
		{"zero min samples", Params{Eps: 0.4, MinSamples: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tightGroup(1, 0, 5), tt.params)
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestRunEmptyInput(t *testing.T) {
	res, err := Run(nil, Params{Eps: 0.4, MinSamples: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 0 || len(res.Noise) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestRunAllNoiseBelowMinSamples(t *testing.T) {
	// 3 faces but min_samples 5: no clusters can form, everything is noise.
	points := tightGroup(1, 0, 3)
	res, err := Run(points, Params{Eps: 0.4, MinSamples: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 0 {
		t.Errorf("expected no clusters, got %d", len(res.Clusters))
	}
	if len(res.Noise) != 3 {
		t.Errorf("expected 3 noise points, got %d", len(res.Noise))
	}
}

func TestRunTwoDenseGroups(t *testing.T) {
	// Two groups of 5, angularly far apart. eps tuned to split them.
	points := append(tightGroup(1, 0, 5), tightGroup(6, math.Pi/2, 5)...)
	res, err := Run(points, Params{Eps: 0.05, MinSamples: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(res.Clusters))
	}
	if got := res.Clusters[0].IDs; !reflect.DeepEqual(got, []int64{1, 2, 3, 4, 5}) {
		t.Errorf("first cluster members = %v", got)
	}
	if got := res.Clusters[1].IDs; !reflect.DeepEqual(got, []int64{6, 7, 8, 9, 10}) {
		t.Errorf("second cluster members = %v", got)
	}
	if len(res.Noise) != 0 {
		t.Errorf("expected no noise, got %v", res.Noise)
	}
}

func TestRunOutlierIsNoise(t *testing.T) {
	points := tightGroup(1, 0, 6)
	points = append(points, Point{ID: 99, Embedding: unit(math.Pi)})

	res, err := Run(points, Params{Eps: 0.05, MinSamples: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(res.Clusters))
	}
	if !reflect.DeepEqual(res.Noise, []int64{99}) {
		t.Errorf("expected noise [99], got %v", res.Noise)
	}
}

func TestRunDeterministicAcrossInputOrder(t *testing.T) {
	points := append(tightGroup(1, 0, 8), tightGroup(20, 1.2, 8)...)
	points = append(points, Point{ID: 100, Embedding: unit(2.8)})

	params := Params{Eps: 0.05, MinSamples: 4}
	reference, err := Run(points, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for run := range 5 {
		shuffled := make([]Point, len(points))
		copy(shuffled, points)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		res, err := Run(shuffled, params)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if !reflect.DeepEqual(res.Clusters, reference.Clusters) {
			t.Errorf("run %d: cluster membership differs from reference", run)
		}
		if !reflect.DeepEqual(res.Noise, reference.Noise) {
			t.Errorf("run %d: noise differs from reference", run)
		}
	}
}

func TestRunBorderPointJoinsFirstRegionInScanOrder(t *testing.T) {
	// Two dense groups with one non-core point within eps of exactly one
	// core point on each side. The border point must join the region whose
	// core point reaches it first in ascending ID order.
	left := tightGroup(1, -0.04, 5)   // ids 1-5, angles -0.04..0
	right := tightGroup(10, 0.48, 5)  // ids 10-14, angles 0.48..0.52
	border := Point{ID: 50, Embedding: unit(0.24)}
	points := append(append(left, right...), border)

	params := Params{Eps: 0.03, MinSamples: 5}
	res, err := Run(points, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(res.Clusters))
	}
	// Left group expands first, so it claims the border point.
	if got := res.Clusters[0].IDs; !reflect.DeepEqual(got, []int64{1, 2, 3, 4, 5, 50}) {
		t.Errorf("first cluster members = %v, want border point 50 included", got)
	}
	if got := res.Clusters[1].IDs; !reflect.DeepEqual(got, []int64{10, 11, 12, 13, 14}) {
		t.Errorf("second cluster members = %v", got)
	}

	again, err := Run(points, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res, again) {
		t.Error("border point assignment is not stable across runs")
	}
}

func TestCentroid(t *testing.T) {
	embeddings := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}
	got := Centroid(embeddings)
	want := []float32{0.5, 0.5, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Centroid() = %v, want %v", got, want)
	}

	if Centroid(nil) != nil {
		t.Error("Centroid(nil) should be nil")
	}
}
