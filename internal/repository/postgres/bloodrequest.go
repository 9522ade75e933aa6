package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/repository"
)

type bloodRequestRepository struct {
	db *sqlx.DB
}

func NewBloodRequestRepository(db *sqlx.DB) repository.BloodRequestRepository {
	return &bloodRequestRepository{db: db}
}

func (r *bloodRequestRepository) Create(ctx context.Context, request *model.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (id, hospital_id, blood_group, city, quantity, is_fulfilled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.HospitalID,
		request.BloodGroup,
		request.City,
		request.Quantity,
		request.IsFulfilled,
		request.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create blood request: %w", err)
	}
	return nil
}

func (r *bloodRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.BloodRequest, error) {
	query := `SELECT * FROM blood_requests WHERE id = $1`
	var request model.BloodRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get blood request: %w", err)
	}
	return &request, nil
}

func (r *bloodRequestRepository) GetOwned(ctx context.Context, id, hospitalID uuid.UUID) (*model.BloodRequest, error) {
	query := `SELECT * FROM blood_requests WHERE id = $1 AND hospital_id = $2`
	var request model.BloodRequest
	if err := r.db.GetContext(ctx, &request, query, id, hospitalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get owned blood request: %w", err)
	}
	return &request, nil
}

func (r *bloodRequestRepository) Update(ctx context.Context, request *model.BloodRequest) error {
	query := `
		UPDATE blood_requests
		SET is_fulfilled = $1, created_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, request.IsFulfilled, request.CreatedAt, request.ID)
	if err != nil {
		return fmt.Errorf("failed to update blood request: %w", err)
	}
	return nil
}

func (r *bloodRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Interest rows are removed by the ON DELETE CASCADE constraint.
	query := `DELETE FROM blood_requests WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete blood request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *bloodRequestRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.BloodRequest, error) {
	query := `SELECT * FROM blood_requests WHERE hospital_id = $1 ORDER BY id`
	requests := []*model.BloodRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, hospitalID); err != nil {
		return nil, fmt.Errorf("failed to list blood requests: %w", err)
	}
	return requests, nil
}

func (r *bloodRequestRepository) ListOpenMatching(ctx context.Context, bloodGroup, city string, createdAfter time.Time) ([]*model.BloodRequest, error) {
	query := `
		SELECT * FROM blood_requests
		WHERE blood_group = $1 AND city = $2 AND is_fulfilled = false AND created_at >= $3
		ORDER BY created_at DESC
	`
	requests := []*model.BloodRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, bloodGroup, city, createdAfter); err != nil {
		return nil, fmt.Errorf("failed to list open blood requests: %w", err)
	}
	return requests, nil
}

func (r *bloodRequestRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.BloodRequest, error) {
	if len(ids) == 0 {
		return []*model.BloodRequest{}, nil
	}
	query := `SELECT * FROM blood_requests WHERE id = ANY($1) ORDER BY id`
	requests := []*model.BloodRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list blood requests by ids: %w", err)
	}
	return requests, nil
}
