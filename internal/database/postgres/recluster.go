package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

// ApplyRecluster commits a reconciliation result in a single transaction.
// Confirmed faces are filtered out by every statement so a stale result can
// never overwrite a manual label.
func (s *Store) ApplyRecluster(ctx context.Context, result *database.ReclusterResult) (*database.ReclusterOutcome, error) {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	outcome := &database.ReclusterOutcome{}

	if result.ResetUnconfirmed {
		if _, err := tx.ExecContext(ctx, "UPDATE faces SET person_id = NULL WHERE NOT confirmed"); err != nil {
			return nil, fmt.Errorf("reset unconfirmed assignments: %w", err)
		}
	}

	for _, np := range result.NewPersons {
		var personID int64
		err := tx.QueryRowContext(ctx,
			"INSERT INTO persons (centroid) VALUES ($1::vector) RETURNING id",
			pgvector.NewVector(np.Centroid),
		).Scan(&personID)
		if err != nil {
			return nil, fmt.Errorf("insert cluster person: %w", err)
		}
		outcome.PersonsCreated = append(outcome.PersonsCreated, personID)

		res, err := tx.ExecContext(ctx,
			"UPDATE faces SET person_id = $1 WHERE id = ANY($2) AND NOT confirmed",
			personID, pq.Array(np.FaceIDs))
		if err != nil {
			return nil, fmt.Errorf("assign faces to person %d: %w", personID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("assign faces rows affected: %w", err)
		}
		outcome.FacesAssigned += int(n)
	}

	byPerson := make(map[int64][]int64)
	var order []int64
	for _, a := range result.Assignments {
		if _, seen := byPerson[a.PersonID]; !seen {
			order = append(order, a.PersonID)
		}
		byPerson[a.PersonID] = append(byPerson[a.PersonID], a.FaceID)
	}
	for _, personID := range order {
		res, err := tx.ExecContext(ctx,
			"UPDATE faces SET person_id = $1 WHERE id = ANY($2) AND NOT confirmed",
			personID, pq.Array(byPerson[personID]))
		if err != nil {
			return nil, fmt.Errorf("assign faces to person %d: %w", personID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("assign faces rows affected: %w", err)
		}
		outcome.FacesAssigned += int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit recluster: %w", err)
	}
	return outcome, nil
}
