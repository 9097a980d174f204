package database

import "context"

// FaceReader provides read-only access to stored faces.
type FaceReader interface {
	// GetFace retrieves a face by ID, ErrFaceNotFound if missing.
	GetFace(ctx context.Context, id int64) (*StoredFace, error)
	// ListUnconfirmed returns all faces with confirmed = false, regardless of
	// current person assignment, ordered by ascending ID. Input set for a
	// full re-cluster.
	ListUnconfirmed(ctx context.Context) ([]StoredFace, error)
	// ListUnassigned returns unconfirmed faces with no person assignment,
	// ordered by ascending ID. Input set for incremental clustering.
	ListUnassigned(ctx context.Context) ([]StoredFace, error)
	// ListByPerson returns all faces currently assigned to the person,
	// confirmed or not, ordered by ascending ID.
	ListByPerson(ctx context.Context, personID int64) ([]StoredFace, error)
	// ListAllFaces returns every stored face, ordered by ascending ID.
	// Used to build the similarity index.
	ListAllFaces(ctx context.Context) ([]StoredFace, error)
	// CountFaces returns the total number of faces stored.
	CountFaces(ctx context.Context) (int, error)
	// IsImageProcessed reports whether extraction has already run for the
	// image (regardless of whether any faces were found).
	IsImageProcessed(ctx context.Context, imageID string) (bool, error)
}

// FaceWriter provides write access to stored faces. The confirmed-face lock
// is enforced here, at the single write-path choke point, not by callers.
type FaceWriter interface {
	FaceReader

	// InsertFaces stores new faces, skipping any whose (image_id, bbox)
	// already exists. Returns the number actually inserted. Safe to call
	// repeatedly with the same detections.
	InsertFaces(ctx context.Context, faces []StoredFace) (int, error)
	// MarkImageProcessed records that extraction ran for the image.
	MarkImageProcessed(ctx context.Context, imageID string, faceCount int) error
	// UpdateAssignment sets person_id and confirmed for one face. Fails with
	// ErrConfirmedFaceLocked when the face is already confirmed and force is
	// false; only the explicit-labeling path may pass force = true.
	UpdateAssignment(ctx context.Context, faceID int64, personID *int64, confirmed, force bool) error
	// DeleteUnconfirmed bulk-removes every face with confirmed = false and
	// returns the number deleted. Confirmed faces are untouched.
	DeleteUnconfirmed(ctx context.Context) (int64, error)
}

// PersonReader provides read-only access to persons and aggregate statistics.
type PersonReader interface {
	// GetPerson retrieves a person by ID, ErrPersonNotFound if missing.
	GetPerson(ctx context.Context, id int64) (*Person, error)
	// ListPersons returns all persons ordered by ascending ID.
	ListPersons(ctx context.Context) ([]Person, error)
	// ListStablePersons returns persons with at least one confirmed face,
	// ordered by ascending ID. Their centroids anchor reconciliation.
	ListStablePersons(ctx context.Context) ([]StablePerson, error)
	// PersonStats recomputes per-person aggregates from current store state
	// on every call. Results are never cached.
	PersonStats(ctx context.Context) ([]PersonStat, error)
}

// PersonWriter provides write access to persons.
type PersonWriter interface {
	PersonReader

	// CreatePerson inserts a person and fills in its ID.
	CreatePerson(ctx context.Context, p *Person) error
	// UpdatePersonName renames a person (nil clears the name).
	UpdatePersonName(ctx context.Context, id int64, name *string) error
	// UpdatePersonCentroid persists a new representative embedding. Only the
	// labeling path calls this.
	UpdatePersonCentroid(ctx context.Context, id int64, centroid []float32) error
	// DeletePerson removes a person and nulls the person_id of its faces in
	// the same transaction.
	DeletePerson(ctx context.Context, id int64) error
}

// Store is the full face/person repository used by reconciliation.
type Store interface {
	FaceWriter
	PersonWriter

	// ApplyRecluster commits one reconciliation result as a single atomic
	// batch: optional unconfirmed reset, person creations, and face
	// assignments. Confirmed faces are skipped by the write path even if
	// they appear in the result. On error nothing is committed.
	ApplyRecluster(ctx context.Context, result *ReclusterResult) (*ReclusterOutcome, error)
}
