package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/repository"
)

type interestRepository struct {
	db *sqlx.DB
}

func NewInterestRepository(db *sqlx.DB) repository.InterestRepository {
	return &interestRepository{db: db}
}

func (r *interestRepository) Create(ctx context.Context, interest *model.DonorInterest) error {
	// The UNIQUE(donor_id, request_id) constraint is the duplicate check;
	// concurrent submissions race safely on it.
	query := `
		INSERT INTO donor_interests (id, donor_id, request_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		interest.ID,
		interest.DonorID,
		interest.RequestID,
		interest.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create donor interest: %w", err)
	}
	return nil
}

func (r *interestRepository) ListDonorIDsByRequest(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT donor_id FROM donor_interests WHERE request_id = $1 ORDER BY donor_id`
	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query, requestID); err != nil {
		return nil, fmt.Errorf("failed to list interested donors: %w", err)
	}
	return ids, nil
}

func (r *interestRepository) ListRequestIDsByDonor(ctx context.Context, donorID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT request_id FROM donor_interests WHERE donor_id = $1 ORDER BY id`
	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query, donorID); err != nil {
		return nil, fmt.Errorf("failed to list donor interests: %w", err)
	}
	return ids, nil
}
