package donor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raktseva/raktseva-api/internal/geocode"
	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/repository"
	apperrors "github.com/raktseva/raktseva-api/pkg/errors"
)

type Service struct {
	donors   repository.DonorRepository
	geocoder geocode.Geocoder
}

func NewService(donors repository.DonorRepository, geocoder geocode.Geocoder) *Service {
	return &Service{donors: donors, geocoder: geocoder}
}

// Create builds the donor profile for the account. A second create for
// the same account fails; the user_id uniqueness constraint backs the
// check under concurrent submission.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *model.CreateDonorRequest) (*model.Donor, error) {
	if _, err := s.donors.GetByUser(ctx, userID); err == nil {
		return nil, apperrors.Forbidden("donor profile already exists")
	} else if err != repository.ErrNotFound {
		return nil, fmt.Errorf("failed to check donor profile: %w", err)
	}

	lat, lon := s.geocoder.Lookup(ctx, req.City)

	donor := &model.Donor{
		ID:            uuid.New(),
		UserID:        userID,
		BloodGroup:    req.BloodGroup,
		City:          req.City,
		ContactNumber: req.ContactNumber,
		IsAvailable:   *req.IsAvailable,
		Latitude:      lat,
		Longitude:     lon,
		CreatedAt:     time.Now(),
	}

	if err := s.donors.Create(ctx, donor); err != nil {
		if err == repository.ErrDuplicate {
			return nil, apperrors.Forbidden("donor profile already exists")
		}
		return nil, fmt.Errorf("failed to create donor: %w", err)
	}
	return donor, nil
}

// GetByUser resolves the account's donor profile, NotFound when absent.
func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Donor, error) {
	donor, err := s.donors.GetByUser(ctx, userID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("donor profile", err)
		}
		return nil, fmt.Errorf("failed to get donor profile: %w", err)
	}
	return donor, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Donor, error) {
	donor, err := s.donors.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("donor", err)
		}
		return nil, fmt.Errorf("failed to get donor: %w", err)
	}
	return donor, nil
}

// Update applies partial changes; a city change re-geocodes, and a
// failed geocode clears the stored coordinates rather than keeping
// stale ones.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, req *model.UpdateDonorRequest) (*model.Donor, error) {
	donor, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.BloodGroup != nil {
		donor.BloodGroup = *req.BloodGroup
	}
	if req.City != nil && *req.City != donor.City {
		donor.City = *req.City
		donor.Latitude, donor.Longitude = s.geocoder.Lookup(ctx, donor.City)
	}
	if req.ContactNumber != nil {
		donor.ContactNumber = *req.ContactNumber
	}
	if req.IsAvailable != nil {
		donor.IsAvailable = *req.IsAvailable
	}

	if err := s.donors.Update(ctx, donor); err != nil {
		return nil, fmt.Errorf("failed to update donor: %w", err)
	}
	return donor, nil
}

func (s *Service) List(ctx context.Context, filters *model.DonorFilters) ([]*model.Donor, error) {
	donors, err := s.donors.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list donors: %w", err)
	}
	return donors, nil
}
