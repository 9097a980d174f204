package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/cluster"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

const indexMetadataVersion = 1

// IndexMetadata validates a cached index against current store state.
type IndexMetadata struct {
	FaceCount int64     `json:"face_count"`
	MaxFaceID int64     `json:"max_face_id"`
	BuildTime time.Time `json:"build_time"`
	Version   int       `json:"version"`
}

// ErrIndexEmpty is returned by Search before any faces have been indexed.
var ErrIndexEmpty = errors.New("face index not initialized")

// FaceIndex is an approximate nearest-neighbor index over face embeddings.
// It backs the similar-face lookup used while labeling; identity
// reconciliation never reads it because approximate search is not
// deterministic across rebuilds.
type FaceIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[int64]
	savedGraph *hnsw.SavedGraph[int64]
	indexed    map[int64]struct{}
}

// NewFaceIndex creates an empty index.
func NewFaceIndex() *FaceIndex {
	return &FaceIndex{indexed: make(map[int64]struct{})}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with the given faces. Faces without an
// embedding are skipped.
func (x *FaceIndex) Build(faces []StoredFace) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(faces) == 0 {
		x.graph = nil
		x.savedGraph = nil
		x.indexed = make(map[int64]struct{})
		return
	}

	g := newGraph()
	x.indexed = make(map[int64]struct{}, len(faces))
	for i := range faces {
		f := &faces[i]
		if len(f.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(f.ID, f.Embedding))
		x.indexed[f.ID] = struct{}{}
	}

	x.graph = g
	x.savedGraph = nil
}

// Add inserts one face into the index.
func (x *FaceIndex) Add(face *StoredFace) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(face.Embedding) == 0 {
		return
	}
	if x.graph == nil {
		x.graph = newGraph()
	}
	x.graph.Add(hnsw.MakeNode(face.ID, face.Embedding))
	x.indexed[face.ID] = struct{}{}
}

// Search returns the IDs of the k approximate nearest faces to the query,
// with exact cosine distances recomputed from the stored node embeddings.
func (x *FaceIndex) Search(query []float32, k int) ([]int64, []float64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil && x.savedGraph == nil {
		return nil, nil, ErrIndexEmpty
	}

	var neighbors []hnsw.Node[int64]
	if x.savedGraph != nil {
		neighbors = x.savedGraph.Search(query, k)
	} else {
		neighbors = x.graph.Search(query, k)
	}

	ids := make([]int64, len(neighbors))
	distances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
		distances[i] = cluster.CosineDistance(query, n.Value)
	}
	return ids, distances, nil
}

// Count returns the number of indexed faces.
func (x *FaceIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.indexed)
}

// Save persists the graph and a metadata sidecar used for staleness checks.
func (x *FaceIndex) Save(path string, meta IndexMetadata) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil && x.savedGraph == nil {
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating face index file: %w", err)
	}
	defer f.Close()

	if x.savedGraph != nil {
		err = x.savedGraph.Export(f)
	} else {
		err = x.graph.Export(f)
	}
	if err != nil {
		return fmt.Errorf("exporting face index graph: %w", err)
	}

	meta.Version = indexMetadataVersion
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling face index metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", raw, 0600); err != nil {
		return fmt.Errorf("writing face index metadata: %w", err)
	}
	return nil
}

// Load reads a previously saved graph from disk without validating it.
// Callers should check LoadIndexMetadata first.
func (x *FaceIndex) Load(path string, ids []int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return fmt.Errorf("loading face index: %w", err)
	}

	x.savedGraph = saved
	x.graph = nil
	x.indexed = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		x.indexed[id] = struct{}{}
	}
	return nil
}

// LoadIndexMetadata reads the metadata sidecar for a saved index.
func LoadIndexMetadata(path string) (IndexMetadata, error) {
	var meta IndexMetadata

	raw, err := os.ReadFile(path + ".meta")
	if err != nil {
		return meta, fmt.Errorf("reading face index metadata: %w", err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("unmarshaling face index metadata: %w", err)
	}
	if meta.Version != indexMetadataVersion {
		return meta, fmt.Errorf("face index metadata version %d not supported", meta.Version)
	}
	return meta, nil
}

// Fresh reports whether the saved metadata still matches the store counts.
func (m IndexMetadata) Fresh(faceCount int64, maxFaceID int64) bool {
	return m.FaceCount == faceCount && m.MaxFaceID == maxFaceID
}
