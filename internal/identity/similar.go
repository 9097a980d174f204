package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

// SimilarFace is one neighbor returned by the similarity lookup.
type SimilarFace struct {
	Face     database.StoredFace
	Distance float64
}

// SimilarFaces returns up to k faces most similar to the given face, nearest
// first. The lookup runs on an approximate index, so it is a labeling aid
// only; clustering runs never consult it.
func (s *Service) SimilarFaces(ctx context.Context, faceID int64, k int) ([]SimilarFace, error) {
	if k < 1 {
		k = 10
	}

	face, err := s.store.GetFace(ctx, faceID)
	if err != nil {
		return nil, err
	}

	index, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}

	// Ask for one extra neighbor because the query face indexes itself.
	ids, distances, err := index.Search(face.Embedding, k+1)
	if err != nil {
		return nil, fmt.Errorf("searching face index: %w", err)
	}

	out := make([]SimilarFace, 0, k)
	for i, id := range ids {
		if id == faceID {
			continue
		}
		neighbor, err := s.store.GetFace(ctx, id)
		if err != nil {
			// Index can trail deletions; skip stale entries.
			continue
		}
		out = append(out, SimilarFace{Face: *neighbor, Distance: distances[i]})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// ensureIndex returns a similarity index matching current store contents,
// reusing the in-memory or on-disk copy when still fresh.
func (s *Service) ensureIndex(ctx context.Context) (*database.FaceIndex, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	faces, err := s.store.ListAllFaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing faces for index: %w", err)
	}

	var maxID int64
	ids := make([]int64, 0, len(faces))
	for _, f := range faces {
		ids = append(ids, f.ID)
		if f.ID > maxID {
			maxID = f.ID
		}
	}

	if s.index != nil && s.indexCount == len(faces) && s.indexMaxID == maxID {
		return s.index, nil
	}

	index := database.NewFaceIndex()
	loaded := false
	if s.indexPath != "" {
		if meta, err := database.LoadIndexMetadata(s.indexPath); err == nil && meta.Fresh(int64(len(faces)), maxID) {
			loaded = index.Load(s.indexPath, ids) == nil
		}
	}

	if !loaded {
		index.Build(faces)
		if s.indexPath != "" {
			meta := database.IndexMetadata{
				FaceCount: int64(len(faces)),
				MaxFaceID: maxID,
				BuildTime: time.Now(),
			}
			if err := index.Save(s.indexPath, meta); err != nil {
				return nil, fmt.Errorf("saving face index: %w", err)
			}
		}
	}

	s.index = index
	s.indexCount = len(faces)
	s.indexMaxID = maxID
	return index, nil
}
