package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

const faceColumns = "id, image_id, bbox, embedding, det_score, person_id, confirmed, model, dim, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFaceRow(scanner rowScanner) (database.StoredFace, error) {
	var (
		face     database.StoredFace
		bbox     pq.Float64Array
		vec      pgvector.Vector
		personID sql.NullInt64
	)

	err := scanner.Scan(
		&face.ID,
		&face.ImageID,
		&bbox,
		&vec,
		&face.DetScore,
		&personID,
		&face.Confirmed,
		&face.Model,
		&face.Dim,
		&face.CreatedAt,
	)
	if err != nil {
		return face, fmt.Errorf("scan face: %w", err)
	}

	face.BBox = []float64(bbox)
	face.Embedding = vec.Slice()
	if personID.Valid {
		face.PersonID = &personID.Int64
	}
	return face, nil
}

func scanFaces(rows *sql.Rows) ([]database.StoredFace, error) {
	var faces []database.StoredFace
	for rows.Next() {
		face, err := scanFaceRow(rows)
		if err != nil {
			return nil, err
		}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

func (s *Store) queryFaces(ctx context.Context, query string, args ...any) ([]database.StoredFace, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()
	return scanFaces(rows)
}

// GetFace retrieves a face by ID.
func (s *Store) GetFace(ctx context.Context, id int64) (*database.StoredFace, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+faceColumns+" FROM faces WHERE id = $1", id)
	face, err := scanFaceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("face %d: %w", id, database.ErrFaceNotFound)
		}
		return nil, err
	}
	return &face, nil
}

// ListUnconfirmed returns all unconfirmed faces ordered by ID.
func (s *Store) ListUnconfirmed(ctx context.Context) ([]database.StoredFace, error) {
	return s.queryFaces(ctx, "SELECT "+faceColumns+" FROM faces WHERE NOT confirmed ORDER BY id")
}

// ListUnassigned returns unconfirmed faces with no person, ordered by ID.
func (s *Store) ListUnassigned(ctx context.Context) ([]database.StoredFace, error) {
	return s.queryFaces(ctx, "SELECT "+faceColumns+" FROM faces WHERE NOT confirmed AND person_id IS NULL ORDER BY id")
}

// ListByPerson returns all faces assigned to the person, ordered by ID.
func (s *Store) ListByPerson(ctx context.Context, personID int64) ([]database.StoredFace, error) {
	return s.queryFaces(ctx, "SELECT "+faceColumns+" FROM faces WHERE person_id = $1 ORDER BY id", personID)
}

// ListAllFaces returns every face ordered by ID.
func (s *Store) ListAllFaces(ctx context.Context) ([]database.StoredFace, error) {
	return s.queryFaces(ctx, "SELECT "+faceColumns+" FROM faces ORDER BY id")
}

// CountFaces returns the total number of faces stored.
func (s *Store) CountFaces(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// IsImageProcessed reports whether extraction already ran for the image.
func (s *Store) IsImageProcessed(ctx context.Context, imageID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(
		ctx, "SELECT EXISTS(SELECT 1 FROM images_processed WHERE image_id = $1)", imageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check image processed: %w", err)
	}
	return exists, nil
}

// MarkImageProcessed records that extraction ran for the image.
func (s *Store) MarkImageProcessed(ctx context.Context, imageID string, faceCount int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO images_processed (image_id, face_count)
		VALUES ($1, $2)
		ON CONFLICT (image_id) DO UPDATE SET face_count = EXCLUDED.face_count, processed_at = NOW()
	`, imageID, faceCount)
	if err != nil {
		return fmt.Errorf("mark image processed: %w", err)
	}
	return nil
}

// InsertFaces stores new faces, skipping duplicates by (image, bounding box).
// Returns the number actually inserted.
func (s *Store) InsertFaces(ctx context.Context, faces []database.StoredFace) (int, error) {
	if len(faces) == 0 {
		return 0, nil
	}

	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for i := range faces {
		face := &faces[i]
		res, err := tx.ExecContext(ctx, `
			INSERT INTO faces (image_id, bbox, embedding, det_score, model, dim)
			VALUES ($1, $2, $3::vector, $4, $5, $6)
			ON CONFLICT (image_id, bbox) DO NOTHING
		`,
			face.ImageID,
			pq.Array(face.BBox),
			pgvector.NewVector(face.Embedding),
			face.DetScore,
			face.Model,
			face.Dim,
		)
		if err != nil {
			return 0, fmt.Errorf("insert face for image %s: %w", face.ImageID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert face rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit face insert: %w", err)
	}
	return inserted, nil
}

// UpdateAssignment sets person and confirmation state for one face. A face
// that is already confirmed is only writable with force.
func (s *Store) UpdateAssignment(ctx context.Context, faceID int64, personID *int64, confirmed, force bool) error {
	res, err := s.pool.Exec(ctx, `
		UPDATE faces SET person_id = $2, confirmed = $3
		WHERE id = $1 AND (NOT confirmed OR $4)
	`, faceID, personID, confirmed, force)
	if err != nil {
		return fmt.Errorf("update face assignment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update face assignment rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Zero rows means the face is missing or locked; look to tell which.
	var locked bool
	err = s.pool.QueryRow(ctx, "SELECT confirmed FROM faces WHERE id = $1", faceID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("face %d: %w", faceID, database.ErrFaceNotFound)
	}
	if err != nil {
		return fmt.Errorf("check face %d: %w", faceID, err)
	}
	return fmt.Errorf("face %d: %w", faceID, database.ErrConfirmedFaceLocked)
}

// DeleteUnconfirmed removes every unconfirmed face.
func (s *Store) DeleteUnconfirmed(ctx context.Context) (int64, error) {
	res, err := s.pool.Exec(ctx, "DELETE FROM faces WHERE NOT confirmed")
	if err != nil {
		return 0, fmt.Errorf("delete unconfirmed faces: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete unconfirmed rows affected: %w", err)
	}
	return n, nil
}
