package cluster

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestRunIncrementalAnchorJoin(t *testing.T) {
	anchors := []Anchor{
		{PersonID: 7, Centroid: unit(0)},
		{PersonID: 9, Centroid: unit(math.Pi / 2)},
	}
	points := []Point{
		{ID: 1, Embedding: unit(0.05)},             // near anchor 7
		{ID: 2, Embedding: unit(math.Pi/2 - 0.05)}, // near anchor 9
		{ID: 3, Embedding: unit(math.Pi)},          // far from both
	}

	res, err := RunIncremental(points, anchors, Params{Eps: 0.05, MinSamples: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []AnchorMembers{
		{PersonID: 7, IDs: []int64{1}},
		{PersonID: 9, IDs: []int64{2}},
	}
	if !reflect.DeepEqual(res.Anchored, want) {
		t.Errorf("Anchored = %+v, want %+v", res.Anchored, want)
	}
	if len(res.Residual.Clusters) != 0 {
		t.Errorf("expected no residual clusters, got %d", len(res.Residual.Clusters))
	}
	if !reflect.DeepEqual(res.Residual.Noise, []int64{3}) {
		t.Errorf("expected point 3 as residual noise, got %v", res.Residual.Noise)
	}
}

func TestRunIncrementalNearestAnchorWins(t *testing.T) {
	anchors := []Anchor{
		{PersonID: 1, Centroid: unit(0)},
		{PersonID: 2, Centroid: unit(0.10)},
	}
	// Closer to anchor 2 but within eps of both.
	points := []Point{{ID: 5, Embedding: unit(0.08)}}

	res, err := RunIncremental(points, anchors, Params{Eps: 0.05, MinSamples: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []AnchorMembers{{PersonID: 2, IDs: []int64{5}}}
	if !reflect.DeepEqual(res.Anchored, want) {
		t.Errorf("Anchored = %+v, want %+v", res.Anchored, want)
	}
}

func TestRunIncrementalEquidistantTieGoesToLowestPersonID(t *testing.T) {
	// Same centroid for both anchors: distances are exactly equal, so the
	// lower person ID must win deterministically.
	anchors := []Anchor{
		{PersonID: 12, Centroid: unit(0)},
		{PersonID: 3, Centroid: unit(0)},
	}
	points := []Point{{ID: 8, Embedding: unit(0.01)}}

	res, err := RunIncremental(points, anchors, Params{Eps: 0.1, MinSamples: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []AnchorMembers{{PersonID: 3, IDs: []int64{8}}}
	if !reflect.DeepEqual(res.Anchored, want) {
		t.Errorf("Anchored = %+v, want %+v", res.Anchored, want)
	}
}

func TestRunIncrementalResidualFormsNewCluster(t *testing.T) {
	anchors := []Anchor{{PersonID: 1, Centroid: unit(0)}}
	// A dense group of 5 far away from the anchor.
	points := tightGroup(10, math.Pi/2, 5)

	res, err := RunIncremental(points, anchors, Params{Eps: 0.05, MinSamples: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Anchored) != 0 {
		t.Errorf("expected no anchored points, got %+v", res.Anchored)
	}
	if len(res.Residual.Clusters) != 1 {
		t.Fatalf("expected 1 residual cluster, got %d", len(res.Residual.Clusters))
	}
	if got := res.Residual.Clusters[0].IDs; !reflect.DeepEqual(got, []int64{10, 11, 12, 13, 14}) {
		t.Errorf("residual cluster members = %v", got)
	}
}

func TestRunIncrementalNoAnchors(t *testing.T) {
	points := tightGroup(1, 0, 5)
	res, err := RunIncremental(points, nil, Params{Eps: 0.05, MinSamples: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Anchored) != 0 {
		t.Errorf("expected no anchored points, got %+v", res.Anchored)
	}
	if len(res.Residual.Clusters) != 1 {
		t.Errorf("expected plain clustering of all points, got %d clusters", len(res.Residual.Clusters))
	}
}

func TestRunIncrementalInvalidParams(t *testing.T) {
	_, err := RunIncremental(nil, nil, Params{Eps: -1, MinSamples: 3})
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}
