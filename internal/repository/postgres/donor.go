package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/repository"
)

type donorRepository struct {
	db *sqlx.DB
}

func NewDonorRepository(db *sqlx.DB) repository.DonorRepository {
	return &donorRepository{db: db}
}

func (r *donorRepository) Create(ctx context.Context, donor *model.Donor) error {
	query := `
		INSERT INTO donors (id, user_id, blood_group, city, contact_number, is_available, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		donor.ID,
		donor.UserID,
		donor.BloodGroup,
		donor.City,
		donor.ContactNumber,
		donor.IsAvailable,
		donor.Latitude,
		donor.Longitude,
		donor.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create donor: %w", err)
	}
	return nil
}

func (r *donorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Donor, error) {
	query := `SELECT * FROM donors WHERE id = $1`
	var donor model.Donor
	if err := r.db.GetContext(ctx, &donor, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get donor: %w", err)
	}
	return &donor, nil
}

func (r *donorRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Donor, error) {
	query := `SELECT * FROM donors WHERE user_id = $1`
	var donor model.Donor
	if err := r.db.GetContext(ctx, &donor, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get donor by user: %w", err)
	}
	return &donor, nil
}

func (r *donorRepository) Update(ctx context.Context, donor *model.Donor) error {
	query := `
		UPDATE donors
		SET blood_group = $1, city = $2, contact_number = $3, is_available = $4, latitude = $5, longitude = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		donor.BloodGroup,
		donor.City,
		donor.ContactNumber,
		donor.IsAvailable,
		donor.Latitude,
		donor.Longitude,
		donor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update donor: %w", err)
	}
	return nil
}

func (r *donorRepository) List(ctx context.Context, filters *model.DonorFilters) ([]*model.Donor, error) {
	query := `SELECT * FROM donors WHERE 1=1`
	args := []interface{}{}

	if filters != nil {
		if filters.BloodGroup != "" {
			args = append(args, filters.BloodGroup)
			query += fmt.Sprintf(" AND blood_group = $%d", len(args))
		}
		if filters.City != "" {
			args = append(args, filters.City)
			query += fmt.Sprintf(" AND city = $%d", len(args))
		}
		if filters.IsAvailable != nil {
			args = append(args, *filters.IsAvailable)
			query += fmt.Sprintf(" AND is_available = $%d", len(args))
		}
	}
	query += " ORDER BY id"

	donors := []*model.Donor{}
	if err := r.db.SelectContext(ctx, &donors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list donors: %w", err)
	}
	return donors, nil
}

func (r *donorRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Donor, error) {
	if len(ids) == 0 {
		return []*model.Donor{}, nil
	}
	query := `SELECT * FROM donors WHERE id = ANY($1) ORDER BY id`
	donors := []*model.Donor{}
	if err := r.db.SelectContext(ctx, &donors, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list donors by ids: %w", err)
	}
	return donors, nil
}

func (r *donorRepository) ListAvailable(ctx context.Context, bloodGroup string) ([]*model.Donor, error) {
	query := `SELECT * FROM donors WHERE is_available = true`
	args := []interface{}{}
	if bloodGroup != "" {
		args = append(args, bloodGroup)
		query += " AND blood_group = $1"
	}
	query += " ORDER BY id"

	donors := []*model.Donor{}
	if err := r.db.SelectContext(ctx, &donors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list available donors: %w", err)
	}
	return donors, nil
}
