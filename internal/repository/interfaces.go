package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/raktseva/raktseva-api/internal/model"
)

// ErrNotFound is returned by lookups when no row matches. ErrDuplicate is
// returned when a storage-level uniqueness constraint rejects a write;
// callers rely on the constraint (not read-then-write) for race safety.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
	}

	DonorRepository interface {
		Create(ctx context.Context, donor *model.Donor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Donor, error)
		GetByUser(ctx context.Context, userID uuid.UUID) (*model.Donor, error)
		Update(ctx context.Context, donor *model.Donor) error
		List(ctx context.Context, filters *model.DonorFilters) ([]*model.Donor, error)
		ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Donor, error)
		// ListAvailable returns available donors ordered by id, optionally
		// filtered by exact blood group. Geo filtering happens above this.
		ListAvailable(ctx context.Context, bloodGroup string) ([]*model.Donor, error)
	}

	HospitalRepository interface {
		Create(ctx context.Context, hospital *model.Hospital) error
		Get(ctx context.Context, id uuid.UUID) (*model.Hospital, error)
		GetByUser(ctx context.Context, userID uuid.UUID) (*model.Hospital, error)
		Update(ctx context.Context, hospital *model.Hospital) error
	}

	BloodRequestRepository interface {
		Create(ctx context.Context, request *model.BloodRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.BloodRequest, error)
		// GetOwned returns the request only if it belongs to the hospital,
		// ErrNotFound otherwise. Existence of foreign requests never leaks.
		GetOwned(ctx context.Context, id, hospitalID uuid.UUID) (*model.BloodRequest, error)
		Update(ctx context.Context, request *model.BloodRequest) error
		// Delete removes the request; interest rows go with it via the
		// storage-level cascade.
		Delete(ctx context.Context, id uuid.UUID) error
		ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.BloodRequest, error)
		// ListOpenMatching returns unfulfilled, unexpired requests matching
		// the blood group and city, most recent first.
		ListOpenMatching(ctx context.Context, bloodGroup, city string, createdAfter time.Time) ([]*model.BloodRequest, error)
		ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.BloodRequest, error)
	}

	InterestRepository interface {
		// Create inserts the (donor, request) pair, returning ErrDuplicate
		// when the uniqueness constraint rejects it.
		Create(ctx context.Context, interest *model.DonorInterest) error
		ListDonorIDsByRequest(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error)
		ListRequestIDsByDonor(ctx context.Context, donorID uuid.UUID) ([]uuid.UUID, error)
	}

	// TokenRepository stores OTP codes and revoked token IDs with TTLs.
	TokenRepository interface {
		StoreOTP(ctx context.Context, email, code string, expiry time.Duration) error
		GetOTP(ctx context.Context, email string) (string, error)
		DeleteOTP(ctx context.Context, email string) error
		RevokeToken(ctx context.Context, tokenID string, until time.Duration) error
		IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	}
)
