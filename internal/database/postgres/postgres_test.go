//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

func setupTestContainer(t *testing.T) (*Store, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	store := NewStore(pool)
	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return store, cleanup
}

func testEmbedding(seed float32) []float32 {
	emb := make([]float32, database.EmbeddingDim)
	for i := range emb {
		emb[i] = seed + float32(i)/float32(database.EmbeddingDim)
	}
	return emb
}

func testFace(imageID string, offset float64, seed float32) database.StoredFace {
	return database.StoredFace{
		ImageID:   imageID,
		BBox:      []float64{10 + offset, 20 + offset, 100, 120},
		Embedding: testEmbedding(seed),
		DetScore:  0.92,
		Model:     "buffalo_l",
		Dim:       database.EmbeddingDim,
	}
}

func TestFaceLifecycle(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	t.Run("InsertAndList", func(t *testing.T) {
		faces := []database.StoredFace{
			testFace("img-001", 0, 0.1),
			testFace("img-001", 50, 0.2),
			testFace("img-002", 0, 0.3),
		}
		n, err := store.InsertFaces(ctx, faces)
		if err != nil {
			t.Fatalf("InsertFaces failed: %v", err)
		}
		if n != 3 {
			t.Errorf("expected 3 inserted, got %d", n)
		}

		all, err := store.ListAllFaces(ctx)
		if err != nil {
			t.Fatalf("ListAllFaces failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 faces, got %d", len(all))
		}
		if all[0].ID >= all[1].ID || all[1].ID >= all[2].ID {
			t.Error("faces not ordered by ascending ID")
		}
		if len(all[0].Embedding) != database.EmbeddingDim {
			t.Errorf("embedding dim = %d, want %d", len(all[0].Embedding), database.EmbeddingDim)
		}
	})

	t.Run("InsertDuplicateSkipped", func(t *testing.T) {
		n, err := store.InsertFaces(ctx, []database.StoredFace{testFace("img-001", 0, 0.1)})
		if err != nil {
			t.Fatalf("InsertFaces failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected duplicate to be skipped, got %d inserted", n)
		}
	})

	t.Run("ProcessedMark", func(t *testing.T) {
		ok, err := store.IsImageProcessed(ctx, "img-001")
		if err != nil {
			t.Fatalf("IsImageProcessed failed: %v", err)
		}
		if ok {
			t.Error("img-001 should not be marked processed yet")
		}

		if err := store.MarkImageProcessed(ctx, "img-001", 2); err != nil {
			t.Fatalf("MarkImageProcessed failed: %v", err)
		}
		ok, err = store.IsImageProcessed(ctx, "img-001")
		if err != nil {
			t.Fatalf("IsImageProcessed failed: %v", err)
		}
		if !ok {
			t.Error("img-001 should be marked processed")
		}
	})

	t.Run("AssignmentAndLock", func(t *testing.T) {
		p := &database.Person{Centroid: testEmbedding(0.5)}
		if err := store.CreatePerson(ctx, p); err != nil {
			t.Fatalf("CreatePerson failed: %v", err)
		}

		all, err := store.ListAllFaces(ctx)
		if err != nil {
			t.Fatalf("ListAllFaces failed: %v", err)
		}
		faceID := all[0].ID

		if err := store.UpdateAssignment(ctx, faceID, &p.ID, true, false); err != nil {
			t.Fatalf("UpdateAssignment failed: %v", err)
		}

		other := int64(999999)
		err = store.UpdateAssignment(ctx, faceID, &other, false, false)
		if !errors.Is(err, database.ErrConfirmedFaceLocked) {
			t.Errorf("expected ErrConfirmedFaceLocked, got %v", err)
		}

		err = store.UpdateAssignment(ctx, 999999, &p.ID, false, false)
		if !errors.Is(err, database.ErrFaceNotFound) {
			t.Errorf("expected ErrFaceNotFound, got %v", err)
		}

		if err := store.UpdateAssignment(ctx, faceID, &p.ID, true, true); err != nil {
			t.Errorf("force update should succeed, got %v", err)
		}
	})

	t.Run("ApplyRecluster", func(t *testing.T) {
		all, err := store.ListAllFaces(ctx)
		if err != nil {
			t.Fatalf("ListAllFaces failed: %v", err)
		}
		var confirmedID int64
		var unconfirmed []int64
		for _, f := range all {
			if f.Confirmed {
				confirmedID = f.ID
			} else {
				unconfirmed = append(unconfirmed, f.ID)
			}
		}
		if confirmedID == 0 || len(unconfirmed) < 2 {
			t.Fatalf("unexpected fixture state: confirmed=%d unconfirmed=%d", confirmedID, len(unconfirmed))
		}

		result := &database.ReclusterResult{
			ResetUnconfirmed: true,
			NewPersons: []database.NewPersonAssignment{
				{Centroid: testEmbedding(0.7), FaceIDs: append([]int64{confirmedID}, unconfirmed...)},
			},
		}
		outcome, err := store.ApplyRecluster(ctx, result)
		if err != nil {
			t.Fatalf("ApplyRecluster failed: %v", err)
		}
		if len(outcome.PersonsCreated) != 1 {
			t.Fatalf("expected 1 person created, got %d", len(outcome.PersonsCreated))
		}
		if outcome.FacesAssigned != len(unconfirmed) {
			t.Errorf("expected %d faces assigned, got %d", len(unconfirmed), outcome.FacesAssigned)
		}

		// The confirmed face must keep its original person.
		locked, err := store.GetFace(ctx, confirmedID)
		if err != nil {
			t.Fatalf("GetFace failed: %v", err)
		}
		if locked.PersonID == nil || *locked.PersonID == outcome.PersonsCreated[0] {
			t.Error("confirmed face was reassigned by recluster")
		}
	})

	t.Run("StablePersonsAndStats", func(t *testing.T) {
		stable, err := store.ListStablePersons(ctx)
		if err != nil {
			t.Fatalf("ListStablePersons failed: %v", err)
		}
		if len(stable) != 1 {
			t.Fatalf("expected 1 stable person, got %d", len(stable))
		}
		if stable[0].ConfirmedFaces != 1 {
			t.Errorf("expected 1 confirmed face, got %d", stable[0].ConfirmedFaces)
		}

		stats, err := store.PersonStats(ctx)
		if err != nil {
			t.Fatalf("PersonStats failed: %v", err)
		}
		if len(stats) != 2 {
			t.Fatalf("expected 2 persons in stats, got %d", len(stats))
		}
		total := 0
		for _, st := range stats {
			total += st.FaceCount
		}
		if total != 3 {
			t.Errorf("expected 3 assigned faces across stats, got %d", total)
		}
	})

	t.Run("DeleteUnconfirmed", func(t *testing.T) {
		n, err := store.DeleteUnconfirmed(ctx)
		if err != nil {
			t.Fatalf("DeleteUnconfirmed failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 deleted, got %d", n)
		}

		count, err := store.CountFaces(ctx)
		if err != nil {
			t.Fatalf("CountFaces failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 face remaining, got %d", count)
		}
	})
}
