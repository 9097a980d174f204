// Package memstore provides an in-memory implementation of the database
// interfaces, used in tests and for small libraries run without Postgres.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

// Store is a mutex-protected in-memory face/person store. The zero value is
// not usable; call New.
type Store struct {
	mu           sync.RWMutex
	faces        map[int64]*database.StoredFace
	persons      map[int64]*database.Person
	processed    map[string]int
	nextFaceID   int64
	nextPersonID int64

	// Err, when set, is returned by every operation. Used in tests to
	// simulate an unavailable backend.
	Err error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		faces:        make(map[int64]*database.StoredFace),
		persons:      make(map[int64]*database.Person),
		processed:    make(map[string]int),
		nextFaceID:   1,
		nextPersonID: 1,
	}
}

func bboxKey(f *database.StoredFace) string {
	return fmt.Sprintf("%s|%.4f,%.4f,%.4f,%.4f", f.ImageID, f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3])
}

// GetFace retrieves a face by ID.
func (s *Store) GetFace(ctx context.Context, id int64) (*database.StoredFace, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.faces[id]
	if !ok {
		return nil, fmt.Errorf("face %d: %w", id, database.ErrFaceNotFound)
	}
	cp := *f
	return &cp, nil
}

func (s *Store) listFaces(filter func(*database.StoredFace) bool) []database.StoredFace {
	out := make([]database.StoredFace, 0)
	for _, f := range s.faces {
		if filter == nil || filter(f) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListUnconfirmed returns all unconfirmed faces ordered by ID.
func (s *Store) ListUnconfirmed(ctx context.Context) ([]database.StoredFace, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listFaces(func(f *database.StoredFace) bool { return !f.Confirmed }), nil
}

// ListUnassigned returns unconfirmed faces with no person, ordered by ID.
func (s *Store) ListUnassigned(ctx context.Context) ([]database.StoredFace, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listFaces(func(f *database.StoredFace) bool { return !f.Confirmed && f.PersonID == nil }), nil
}

// ListByPerson returns all faces assigned to the person, ordered by ID.
func (s *Store) ListByPerson(ctx context.Context, personID int64) ([]database.StoredFace, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listFaces(func(f *database.StoredFace) bool {
		return f.PersonID != nil && *f.PersonID == personID
	}), nil
}

// ListAllFaces returns every face ordered by ID.
func (s *Store) ListAllFaces(ctx context.Context) ([]database.StoredFace, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listFaces(nil), nil
}

// CountFaces returns the total number of faces.
func (s *Store) CountFaces(ctx context.Context) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.faces), nil
}

// IsImageProcessed reports whether extraction already ran for the image.
func (s *Store) IsImageProcessed(ctx context.Context, imageID string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[imageID]
	return ok, nil
}

// MarkImageProcessed records that extraction ran for the image.
func (s *Store) MarkImageProcessed(ctx context.Context, imageID string, faceCount int) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[imageID] = faceCount
	return nil
}

// InsertFaces stores new faces, skipping duplicates by (image, bounding box).
func (s *Store) InsertFaces(ctx context.Context, faces []database.StoredFace) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{}, len(s.faces))
	for _, f := range s.faces {
		existing[bboxKey(f)] = struct{}{}
	}

	inserted := 0
	for i := range faces {
		f := faces[i]
		key := bboxKey(&f)
		if _, dup := existing[key]; dup {
			continue
		}
		existing[key] = struct{}{}
		f.ID = s.nextFaceID
		s.nextFaceID++
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now()
		}
		s.faces[f.ID] = &f
		inserted++
	}
	return inserted, nil
}

// UpdateAssignment sets person and confirmation state for one face.
func (s *Store) UpdateAssignment(ctx context.Context, faceID int64, personID *int64, confirmed, force bool) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.faces[faceID]
	if !ok {
		return fmt.Errorf("face %d: %w", faceID, database.ErrFaceNotFound)
	}
	if f.Confirmed && !force {
		return fmt.Errorf("face %d: %w", faceID, database.ErrConfirmedFaceLocked)
	}
	if personID != nil {
		if _, ok := s.persons[*personID]; !ok {
			return fmt.Errorf("person %d: %w", *personID, database.ErrPersonNotFound)
		}
	}
	f.PersonID = personID
	f.Confirmed = confirmed
	return nil
}

// DeleteUnconfirmed removes every unconfirmed face.
func (s *Store) DeleteUnconfirmed(ctx context.Context) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, f := range s.faces {
		if !f.Confirmed {
			delete(s.faces, id)
			deleted++
		}
	}
	return deleted, nil
}

// GetPerson retrieves a person by ID.
func (s *Store) GetPerson(ctx context.Context, id int64) (*database.Person, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.persons[id]
	if !ok {
		return nil, fmt.Errorf("person %d: %w", id, database.ErrPersonNotFound)
	}
	cp := *p
	return &cp, nil
}

// ListPersons returns all persons ordered by ID.
func (s *Store) ListPersons(ctx context.Context) ([]database.Person, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]database.Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListStablePersons returns persons with at least one confirmed face.
func (s *Store) ListStablePersons(ctx context.Context) ([]database.StablePerson, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	confirmed := make(map[int64]int)
	for _, f := range s.faces {
		if f.Confirmed && f.PersonID != nil {
			confirmed[*f.PersonID]++
		}
	}

	out := make([]database.StablePerson, 0, len(confirmed))
	for id, n := range confirmed {
		p, ok := s.persons[id]
		if !ok {
			continue
		}
		out = append(out, database.StablePerson{Person: *p, ConfirmedFaces: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PersonStats recomputes per-person aggregates from current state.
func (s *Store) PersonStats(ctx context.Context) ([]database.PersonStat, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[int64]*database.PersonStat, len(s.persons))
	images := make(map[int64]map[string]struct{}, len(s.persons))
	scores := make(map[int64]float64, len(s.persons))

	for id, p := range s.persons {
		stats[id] = &database.PersonStat{PersonID: id, Name: p.Name}
		images[id] = make(map[string]struct{})
	}

	for _, f := range s.faces {
		if f.PersonID == nil {
			continue
		}
		st, ok := stats[*f.PersonID]
		if !ok {
			continue
		}
		st.FaceCount++
		if f.Confirmed {
			st.Confirmed++
		} else {
			st.Unconfirmed++
		}
		images[*f.PersonID][f.ImageID] = struct{}{}
		scores[*f.PersonID] += f.DetScore
	}

	out := make([]database.PersonStat, 0, len(stats))
	for id, st := range stats {
		st.ImageCount = len(images[id])
		if st.FaceCount > 0 {
			st.MeanDetScore = scores[id] / float64(st.FaceCount)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonID < out[j].PersonID })
	return out, nil
}

// CreatePerson inserts a person and assigns its ID.
func (s *Store) CreatePerson(ctx context.Context, p *database.Person) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createPersonLocked(p)
	return nil
}

func (s *Store) createPersonLocked(p *database.Person) {
	p.ID = s.nextPersonID
	s.nextPersonID++
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	cp := *p
	s.persons[p.ID] = &cp
}

// UpdatePersonName renames a person.
func (s *Store) UpdatePersonName(ctx context.Context, id int64, name *string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.persons[id]
	if !ok {
		return fmt.Errorf("person %d: %w", id, database.ErrPersonNotFound)
	}
	p.Name = name
	p.UpdatedAt = time.Now()
	return nil
}

// UpdatePersonCentroid persists a new representative embedding.
func (s *Store) UpdatePersonCentroid(ctx context.Context, id int64, centroid []float32) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.persons[id]
	if !ok {
		return fmt.Errorf("person %d: %w", id, database.ErrPersonNotFound)
	}
	p.Centroid = centroid
	p.UpdatedAt = time.Now()
	return nil
}

// DeletePerson removes a person and detaches its faces.
func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[id]; !ok {
		return fmt.Errorf("person %d: %w", id, database.ErrPersonNotFound)
	}
	delete(s.persons, id)
	for _, f := range s.faces {
		if f.PersonID != nil && *f.PersonID == id {
			f.PersonID = nil
		}
	}
	return nil
}

// ApplyRecluster commits a reconciliation result as one atomic batch.
// Validation runs before any mutation so a failed batch leaves the store
// unchanged. Confirmed faces in the result are skipped, never overwritten.
func (s *Store) ApplyRecluster(ctx context.Context, result *database.ReclusterResult) (*database.ReclusterOutcome, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range result.Assignments {
		if _, ok := s.faces[a.FaceID]; !ok {
			return nil, fmt.Errorf("face %d: %w", a.FaceID, database.ErrFaceNotFound)
		}
		if _, ok := s.persons[a.PersonID]; !ok {
			return nil, fmt.Errorf("person %d: %w", a.PersonID, database.ErrPersonNotFound)
		}
	}
	for _, np := range result.NewPersons {
		for _, faceID := range np.FaceIDs {
			if _, ok := s.faces[faceID]; !ok {
				return nil, fmt.Errorf("face %d: %w", faceID, database.ErrFaceNotFound)
			}
		}
	}

	outcome := &database.ReclusterOutcome{}

	if result.ResetUnconfirmed {
		for _, f := range s.faces {
			if !f.Confirmed {
				f.PersonID = nil
			}
		}
	}

	for _, np := range result.NewPersons {
		p := database.Person{Centroid: np.Centroid}
		s.createPersonLocked(&p)
		outcome.PersonsCreated = append(outcome.PersonsCreated, p.ID)
		for _, faceID := range np.FaceIDs {
			f := s.faces[faceID]
			if f.Confirmed {
				continue
			}
			pid := p.ID
			f.PersonID = &pid
			outcome.FacesAssigned++
		}
	}

	for _, a := range result.Assignments {
		f := s.faces[a.FaceID]
		if f.Confirmed {
			continue
		}
		pid := a.PersonID
		f.PersonID = &pid
		outcome.FacesAssigned++
	}

	return outcome, nil
}
