// Package database defines the face and person store contracts shared by the
// PostgreSQL and in-memory backends.
package database

import "time"

// EmbeddingDim is the fixed dimension of face embeddings (InsightFace buffalo_l).
const EmbeddingDim = 512

// StoredFace is one detected face instance. ID, ImageID, BBox and Embedding
// are immutable once extracted; PersonID and Confirmed are mutated by
// clustering (only while Confirmed is false) or by explicit labeling.
type StoredFace struct {
	ID        int64
	ImageID   string
	BBox      []float64 // [x, y, width, height] in source-image pixels
	Embedding []float32
	DetScore  float64 // detection confidence in [0,1]
	PersonID  *int64  // nil = unclustered
	Confirmed bool
	Model     string
	Dim       int
	CreatedAt time.Time
}

// Person is a named or unnamed identity grouping.
type Person struct {
	ID   int64
	Name *string // nil = unnamed auto-created cluster
	// Centroid is the persisted representative embedding. For a stable
	// identity it is recomputed from confirmed faces on the labeling path
	// only; reconciliation reads it but never writes it.
	Centroid  []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StablePerson is a person with at least one confirmed face, treated as an
// authoritative identity during reconciliation. Populated by the store on
// read.
type StablePerson struct {
	Person
	ConfirmedFaces int
}

// PersonStat is the read-only per-person aggregation for the stats surface.
// Always recomputed from store state at call time.
type PersonStat struct {
	PersonID     int64
	Name         *string
	FaceCount    int
	ImageCount   int
	Confirmed    int
	Unconfirmed  int
	MeanDetScore float64
}

// Assignment routes one face to an existing person.
type Assignment struct {
	FaceID   int64
	PersonID int64
}

// NewPersonAssignment creates a person (name nil) and assigns the member faces
// to it within the reconciliation transaction.
type NewPersonAssignment struct {
	Centroid []float32
	FaceIDs  []int64
}

// ReclusterResult is one reconciliation outcome, committed atomically by
// ApplyRecluster. Readers never observe a partially applied result.
type ReclusterResult struct {
	// ResetUnconfirmed clears person_id on every unconfirmed face before
	// applying assignments (full re-cluster semantics).
	ResetUnconfirmed bool
	Assignments      []Assignment
	NewPersons       []NewPersonAssignment
}

// ReclusterOutcome reports what ApplyRecluster committed.
type ReclusterOutcome struct {
	PersonsCreated []int64
	FacesAssigned  int
}
