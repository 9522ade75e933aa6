package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/repository"
)

type hospitalRepository struct {
	db *sqlx.DB
}

func NewHospitalRepository(db *sqlx.DB) repository.HospitalRepository {
	return &hospitalRepository{db: db}
}

func (r *hospitalRepository) Create(ctx context.Context, hospital *model.Hospital) error {
	query := `
		INSERT INTO hospitals (id, user_id, name, city, address, contact_number, registration_number, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		hospital.ID,
		hospital.UserID,
		hospital.Name,
		hospital.City,
		hospital.Address,
		hospital.ContactNumber,
		hospital.RegistrationNumber,
		hospital.Latitude,
		hospital.Longitude,
		hospital.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create hospital: %w", err)
	}
	return nil
}

func (r *hospitalRepository) Get(ctx context.Context, id uuid.UUID) (*model.Hospital, error) {
	query := `SELECT * FROM hospitals WHERE id = $1`
	var hospital model.Hospital
	if err := r.db.GetContext(ctx, &hospital, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hospital: %w", err)
	}
	return &hospital, nil
}

func (r *hospitalRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Hospital, error) {
	query := `SELECT * FROM hospitals WHERE user_id = $1`
	var hospital model.Hospital
	if err := r.db.GetContext(ctx, &hospital, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hospital by user: %w", err)
	}
	return &hospital, nil
}

func (r *hospitalRepository) Update(ctx context.Context, hospital *model.Hospital) error {
	query := `
		UPDATE hospitals
		SET name = $1, city = $2, address = $3, contact_number = $4, latitude = $5, longitude = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		hospital.Name,
		hospital.City,
		hospital.Address,
		hospital.ContactNumber,
		hospital.Latitude,
		hospital.Longitude,
		hospital.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update hospital: %w", err)
	}
	return nil
}
