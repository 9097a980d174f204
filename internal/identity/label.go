package identity

import (
	"context"
	"fmt"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/cluster"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

// Confirm assigns a face to a person and marks it confirmed. Re-labeling an
// already confirmed face requires force. The person's centroid is recomputed
// from its confirmed faces afterwards; this is the only path that rewrites a
// stored centroid.
func (s *Service) Confirm(ctx context.Context, faceID, personID int64, force bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	pid := personID
	if err := s.store.UpdateAssignment(ctx, faceID, &pid, true, force); err != nil {
		return err
	}
	return s.refreshCentroid(ctx, personID)
}

// ConfirmAs confirms a face under a person name. Names are matched after
// normalization (lowercase, diacritics folded, dashes as spaces) so "jiri
// novak" and "Jiří Novák" refer to the same person. When no person carries
// the name, one is created with the face embedding as its initial centroid.
// Returns the person the face was confirmed to.
func (s *Service) ConfirmAs(ctx context.Context, faceID int64, name string, force bool) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	face, err := s.store.GetFace(ctx, faceID)
	if err != nil {
		return 0, err
	}

	target, err := s.findPersonByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if target == nil {
		p := &database.Person{Name: &name, Centroid: face.Embedding}
		if err := s.store.CreatePerson(ctx, p); err != nil {
			return 0, fmt.Errorf("creating person %q: %w", name, err)
		}
		target = p
	}

	pid := target.ID
	if err := s.store.UpdateAssignment(ctx, faceID, &pid, true, force); err != nil {
		return 0, err
	}
	if err := s.refreshCentroid(ctx, target.ID); err != nil {
		return 0, err
	}
	return target.ID, nil
}

// Rename names a person. When another person already carries the normalized
// name the two are merged: all faces move to the existing person, confirmed
// ones included, and the renamed person is deleted. Returns the surviving
// person ID.
func (s *Service) Rename(ctx context.Context, personID int64, name string) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.findPersonByName(ctx, name)
	if err != nil {
		return 0, err
	}

	if existing == nil || existing.ID == personID {
		if err := s.store.UpdatePersonName(ctx, personID, &name); err != nil {
			return 0, err
		}
		return personID, nil
	}

	faces, err := s.store.ListByPerson(ctx, personID)
	if err != nil {
		return 0, fmt.Errorf("listing faces of person %d: %w", personID, err)
	}
	for _, f := range faces {
		pid := existing.ID
		if err := s.store.UpdateAssignment(ctx, f.ID, &pid, f.Confirmed, true); err != nil {
			return 0, fmt.Errorf("moving face %d: %w", f.ID, err)
		}
	}
	if err := s.store.DeletePerson(ctx, personID); err != nil {
		return 0, err
	}
	if err := s.refreshCentroid(ctx, existing.ID); err != nil {
		return 0, err
	}
	return existing.ID, nil
}

// DeleteUnconfirmedFaces removes every unconfirmed face from the store.
func (s *Service) DeleteUnconfirmedFaces(ctx context.Context) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.store.DeleteUnconfirmed(ctx)
}

// DeleteUnconfirmedPersons removes persons that have no confirmed face.
// Their member faces keep their rows and embeddings; only the assignment is
// cleared, so a later run can re-cluster them.
func (s *Service) DeleteUnconfirmedPersons(ctx context.Context) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	persons, err := s.store.ListPersons(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing persons: %w", err)
	}
	stable, err := s.store.ListStablePersons(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing stable persons: %w", err)
	}

	keep := make(map[int64]struct{}, len(stable))
	for _, p := range stable {
		keep[p.ID] = struct{}{}
	}

	deleted := 0
	for _, p := range persons {
		if _, ok := keep[p.ID]; ok {
			continue
		}
		if err := s.store.DeletePerson(ctx, p.ID); err != nil {
			return deleted, fmt.Errorf("deleting person %d: %w", p.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

func (s *Service) findPersonByName(ctx context.Context, name string) (*database.Person, error) {
	persons, err := s.store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing persons: %w", err)
	}

	want := NormalizePersonName(name)
	for i := range persons {
		p := &persons[i]
		if p.Name != nil && NormalizePersonName(*p.Name) == want {
			return p, nil
		}
	}
	return nil, nil
}

// refreshCentroid recomputes a person's centroid as the mean of its
// confirmed face embeddings. A person without confirmed faces keeps its
// current centroid.
func (s *Service) refreshCentroid(ctx context.Context, personID int64) error {
	faces, err := s.store.ListByPerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("listing faces of person %d: %w", personID, err)
	}

	var embeddings [][]float32
	for _, f := range faces {
		if f.Confirmed && len(f.Embedding) > 0 {
			embeddings = append(embeddings, f.Embedding)
		}
	}
	if len(embeddings) == 0 {
		return nil
	}

	centroid := cluster.Centroid(embeddings)
	if err := s.store.UpdatePersonCentroid(ctx, personID, centroid); err != nil {
		return fmt.Errorf("updating centroid of person %d: %w", personID, err)
	}
	return nil
}
