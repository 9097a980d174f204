package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

func scanPersonRow(scanner rowScanner) (database.Person, error) {
	var (
		p        database.Person
		name     sql.NullString
		centroid pgvector.Vector
	)

	err := scanner.Scan(&p.ID, &name, &centroid, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, fmt.Errorf("scan person: %w", err)
	}

	if name.Valid {
		p.Name = &name.String
	}
	p.Centroid = centroid.Slice()
	return p, nil
}

// GetPerson retrieves a person by ID.
func (s *Store) GetPerson(ctx context.Context, id int64) (*database.Person, error) {
	row := s.pool.QueryRow(ctx, "SELECT id, name, centroid, created_at, updated_at FROM persons WHERE id = $1", id)
	p, err := scanPersonRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("person %d: %w", id, database.ErrPersonNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// ListPersons returns all persons ordered by ID.
func (s *Store) ListPersons(ctx context.Context) ([]database.Person, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, centroid, created_at, updated_at FROM persons ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	var persons []database.Person
	for rows.Next() {
		p, err := scanPersonRow(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return persons, nil
}

// ListStablePersons returns persons with at least one confirmed face,
// ordered by ID.
func (s *Store) ListStablePersons(ctx context.Context) ([]database.StablePerson, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, p.centroid, p.created_at, p.updated_at, COUNT(f.id) AS confirmed_faces
		FROM persons p
		JOIN faces f ON f.person_id = p.id AND f.confirmed
		GROUP BY p.id
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query stable persons: %w", err)
	}
	defer rows.Close()

	var persons []database.StablePerson
	for rows.Next() {
		var (
			sp       database.StablePerson
			name     sql.NullString
			centroid pgvector.Vector
		)
		err := rows.Scan(&sp.ID, &name, &centroid, &sp.CreatedAt, &sp.UpdatedAt, &sp.ConfirmedFaces)
		if err != nil {
			return nil, fmt.Errorf("scan stable person: %w", err)
		}
		if name.Valid {
			sp.Name = &name.String
		}
		sp.Centroid = centroid.Slice()
		persons = append(persons, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stable persons: %w", err)
	}
	return persons, nil
}

// PersonStats recomputes per-person aggregates from current store state.
func (s *Store) PersonStats(ctx context.Context) ([]database.PersonStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name,
		       COUNT(f.id) AS face_count,
		       COUNT(DISTINCT f.image_id) AS image_count,
		       COUNT(f.id) FILTER (WHERE f.confirmed) AS confirmed,
		       COUNT(f.id) FILTER (WHERE NOT f.confirmed) AS unconfirmed,
		       COALESCE(AVG(f.det_score), 0) AS mean_det_score
		FROM persons p
		LEFT JOIN faces f ON f.person_id = p.id
		GROUP BY p.id, p.name
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query person stats: %w", err)
	}
	defer rows.Close()

	var stats []database.PersonStat
	for rows.Next() {
		var (
			st   database.PersonStat
			name sql.NullString
		)
		err := rows.Scan(&st.PersonID, &name, &st.FaceCount, &st.ImageCount, &st.Confirmed, &st.Unconfirmed, &st.MeanDetScore)
		if err != nil {
			return nil, fmt.Errorf("scan person stat: %w", err)
		}
		if name.Valid {
			st.Name = &name.String
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate person stats: %w", err)
	}
	return stats, nil
}

// CreatePerson inserts a person and fills in its generated fields.
func (s *Store) CreatePerson(ctx context.Context, p *database.Person) error {
	var name sql.NullString
	if p.Name != nil {
		name = sql.NullString{String: *p.Name, Valid: true}
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO persons (name, centroid)
		VALUES ($1, $2::vector)
		RETURNING id, created_at, updated_at
	`, name, pgvector.NewVector(p.Centroid)).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

// UpdatePersonName renames a person.
func (s *Store) UpdatePersonName(ctx context.Context, id int64, name *string) error {
	res, err := s.pool.Exec(ctx, "UPDATE persons SET name = $2, updated_at = NOW() WHERE id = $1", id, name)
	if err != nil {
		return fmt.Errorf("update person name: %w", err)
	}
	return requirePersonRow(res, id)
}

// UpdatePersonCentroid persists a new representative embedding.
func (s *Store) UpdatePersonCentroid(ctx context.Context, id int64, centroid []float32) error {
	res, err := s.pool.Exec(ctx,
		"UPDATE persons SET centroid = $2::vector, updated_at = NOW() WHERE id = $1",
		id, pgvector.NewVector(centroid))
	if err != nil {
		return fmt.Errorf("update person centroid: %w", err)
	}
	return requirePersonRow(res, id)
}

// DeletePerson removes a person; its faces keep their rows with person_id
// cleared by the foreign key.
func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	res, err := s.pool.Exec(ctx, "DELETE FROM persons WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return requirePersonRow(res, id)
}

func requirePersonRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("person rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("person %d: %w", id, database.ErrPersonNotFound)
	}
	return nil
}
