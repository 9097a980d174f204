// Package identity turns clustered face embeddings into persistent person
// identities. It owns the reconciliation rules: stable identities (persons
// with confirmed faces) act as fixed reference points, automatic assignment
// never overwrites a confirmed face, and each clustering run commits its
// conclusions as one atomic batch.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/cluster"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

// ErrRunInProgress is returned when a clustering run is requested while
// another is still in flight.
var ErrRunInProgress = errors.New("clustering run already in progress")

// Service coordinates clustering runs and user labeling over one store.
type Service struct {
	store     database.Store
	cfg       config.ClusteringConfig
	indexPath string

	// runMu serializes clustering runs. writeMu serializes the write phase
	// of a run against labeling operations.
	runMu   sync.Mutex
	writeMu sync.Mutex

	indexMu    sync.Mutex
	index      *database.FaceIndex
	indexCount int
	indexMaxID int64
}

// New creates the identity service. indexPath may be empty, in which case
// the similarity index is rebuilt in memory on demand.
func New(store database.Store, cfg config.ClusteringConfig, indexPath string) *Service {
	return &Service{store: store, cfg: cfg, indexPath: indexPath}
}

// Stats is the read-only aggregate view over the store, recomputed from
// current state on every call.
type Stats struct {
	TotalFaces      int
	AssignedFaces   int
	ConfirmedFaces  int
	UnassignedFaces int
	Persons         []database.PersonStat
}

// Stats recomputes the aggregate view. It takes no locks; readers see a
// consistent snapshot from the store.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.store.CountFaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting faces: %w", err)
	}

	perPerson, err := s.store.PersonStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing person stats: %w", err)
	}

	st := &Stats{TotalFaces: total, Persons: perPerson}
	for _, p := range perPerson {
		st.AssignedFaces += p.FaceCount
		st.ConfirmedFaces += p.Confirmed
	}
	st.UnassignedFaces = total - st.AssignedFaces
	return st, nil
}

func toPoints(faces []database.StoredFace) []cluster.Point {
	points := make([]cluster.Point, 0, len(faces))
	for _, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		points = append(points, cluster.Point{ID: f.ID, Embedding: f.Embedding})
	}
	return points
}

// nearestStable returns the stable person whose centroid is closest to the
// given centroid within threshold. Persons arrive in ascending ID order, so
// an exact distance tie resolves to the lowest ID.
func nearestStable(stable []database.StablePerson, centroid []float32, threshold float64) (int64, bool) {
	bestID := int64(-1)
	bestDist := 0.0
	for _, p := range stable {
		if len(p.Centroid) == 0 {
			continue
		}
		d := cluster.CosineDistance(centroid, p.Centroid)
		if d <= threshold && (bestID == -1 || d < bestDist) {
			bestID = p.ID
			bestDist = d
		}
	}
	return bestID, bestID != -1
}
