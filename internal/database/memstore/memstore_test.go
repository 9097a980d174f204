package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

func face(imageID string, offset float64) database.StoredFace {
	emb := make([]float32, database.EmbeddingDim)
	emb[0] = 1
	return database.StoredFace{
		ImageID:   imageID,
		BBox:      []float64{offset, offset, 50, 60},
		Embedding: emb,
		DetScore:  0.9,
		Model:     "buffalo_l",
		Dim:       database.EmbeddingDim,
	}
}

func TestInsertFacesDeduplicates(t *testing.T) {
	s := New()
	ctx := context.Background()

	n, err := s.InsertFaces(ctx, []database.StoredFace{face("a", 0), face("a", 10), face("b", 0)})
	if err != nil {
		t.Fatalf("InsertFaces failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 inserted, got %d", n)
	}

	n, err = s.InsertFaces(ctx, []database.StoredFace{face("a", 0), face("a", 20)})
	if err != nil {
		t.Fatalf("InsertFaces failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 inserted on rerun, got %d", n)
	}

	count, _ := s.CountFaces(ctx)
	if count != 4 {
		t.Errorf("expected 4 faces total, got %d", count)
	}
}

func TestConfirmedFaceLock(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.InsertFaces(ctx, []database.StoredFace{face("a", 0)}); err != nil {
		t.Fatalf("InsertFaces failed: %v", err)
	}
	p := &database.Person{Centroid: []float32{1}}
	if err := s.CreatePerson(ctx, p); err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}

	if err := s.UpdateAssignment(ctx, 1, &p.ID, true, false); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	err := s.UpdateAssignment(ctx, 1, nil, false, false)
	if !errors.Is(err, database.ErrConfirmedFaceLocked) {
		t.Errorf("expected ErrConfirmedFaceLocked, got %v", err)
	}

	if err := s.UpdateAssignment(ctx, 1, &p.ID, true, true); err != nil {
		t.Errorf("force should bypass lock, got %v", err)
	}

	err = s.UpdateAssignment(ctx, 42, nil, false, false)
	if !errors.Is(err, database.ErrFaceNotFound) {
		t.Errorf("expected ErrFaceNotFound, got %v", err)
	}
}

func TestApplyReclusterSkipsConfirmed(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.InsertFaces(ctx, []database.StoredFace{face("a", 0), face("a", 10), face("b", 0)}); err != nil {
		t.Fatalf("InsertFaces failed: %v", err)
	}
	p := &database.Person{Centroid: []float32{1}}
	if err := s.CreatePerson(ctx, p); err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	if err := s.UpdateAssignment(ctx, 1, &p.ID, true, false); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	outcome, err := s.ApplyRecluster(ctx, &database.ReclusterResult{
		ResetUnconfirmed: true,
		NewPersons: []database.NewPersonAssignment{
			{Centroid: []float32{1}, FaceIDs: []int64{1, 2, 3}},
		},
	})
	if err != nil {
		t.Fatalf("ApplyRecluster failed: %v", err)
	}
	if outcome.FacesAssigned != 2 {
		t.Errorf("expected 2 faces assigned, got %d", outcome.FacesAssigned)
	}

	f, err := s.GetFace(ctx, 1)
	if err != nil {
		t.Fatalf("GetFace failed: %v", err)
	}
	if f.PersonID == nil || *f.PersonID != p.ID {
		t.Error("confirmed face lost its person")
	}
}

func TestApplyReclusterAtomicOnMissingFace(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.InsertFaces(ctx, []database.StoredFace{face("a", 0)}); err != nil {
		t.Fatalf("InsertFaces failed: %v", err)
	}

	_, err := s.ApplyRecluster(ctx, &database.ReclusterResult{
		NewPersons: []database.NewPersonAssignment{
			{Centroid: []float32{1}, FaceIDs: []int64{1, 99}},
		},
	})
	if !errors.Is(err, database.ErrFaceNotFound) {
		t.Fatalf("expected ErrFaceNotFound, got %v", err)
	}

	// Nothing committed.
	persons, _ := s.ListPersons(ctx)
	if len(persons) != 0 {
		t.Errorf("expected no persons after failed batch, got %d", len(persons))
	}
	f, _ := s.GetFace(ctx, 1)
	if f.PersonID != nil {
		t.Error("face assignment leaked from failed batch")
	}
}

func TestDeletePersonDetachesFaces(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.InsertFaces(ctx, []database.StoredFace{face("a", 0)}); err != nil {
		t.Fatalf("InsertFaces failed: %v", err)
	}
	p := &database.Person{Centroid: []float32{1}}
	if err := s.CreatePerson(ctx, p); err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	if err := s.UpdateAssignment(ctx, 1, &p.ID, false, false); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	if err := s.DeletePerson(ctx, p.ID); err != nil {
		t.Fatalf("DeletePerson failed: %v", err)
	}
	f, _ := s.GetFace(ctx, 1)
	if f.PersonID != nil {
		t.Error("face still references deleted person")
	}
}

func TestErrorInjection(t *testing.T) {
	s := New()
	s.Err = errors.New("backend down")

	if _, err := s.ListAllFaces(context.Background()); err == nil {
		t.Error("expected injected error")
	}
}
