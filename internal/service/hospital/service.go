package hospital

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
	hospitals repository.HospitalRepository
	geocoder  geocode.Geocoder
}

func NewService(hospitals repository.HospitalRepository, geocoder geocode.Geocoder) *Service {
	return &Service{hospitals: hospitals, geocoder: geocoder}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *model.CreateHospitalRequest) (*model.Hospital, error) {
	if _, err := s.hospitals.GetByUser(ctx, userID); err == nil {
		return nil, apperrors.Forbidden("hospital profile already exists")
	} else if err != repository.ErrNotFound {
		return nil, fmt.Errorf("failed to check hospital profile: %w", err)
	}

	lat, lon := s.geocoder.Lookup(ctx, req.City)

	hospital := &model.Hospital{
		ID:                 uuid.New(),
		UserID:             userID,
		Name:               req.Name,
		City:               req.City,
		Address:            req.Address,
		ContactNumber:      req.ContactNumber,
		RegistrationNumber: req.RegistrationNumber,
		Latitude:           lat,
		Longitude:          lon,
		CreatedAt:          time.Now(),
	}

	if err := s.hospitals.Create(ctx, hospital); err != nil {
		if err == repository.ErrDuplicate {
			// Either the registration number or the account is taken.
			return nil, apperrors.Conflict("hospital with this registration number or account already exists", err)
		}
		return nil, fmt.Errorf("failed to create hospital: %w", err)
	}
	return hospital, nil
}

// GetByUser resolves the account's hospital profile, NotFound when absent.
func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Hospital, error) {
	hospital, err := s.hospitals.GetByUser(ctx, userID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("hospital profile", err)
		}
		return nil, fmt.Errorf("failed to get hospital profile: %w", err)
	}
	return hospital, nil
}

func (s *Service) Update(ctx context.Context, userID uuid.UUID, req *model.UpdateHospitalRequest) (*model.Hospital, error) {
	hospital, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		hospital.Name = *req.Name
	}
	if req.City != nil && *req.City != hospital.City {
		hospital.City = *req.City
		hospital.Latitude, hospital.Longitude = s.geocoder.Lookup(ctx, hospital.City)
	}
	if req.Address != nil {
		hospital.Address = *req.Address
	}
	if req.ContactNumber != nil {
		hospital.ContactNumber = *req.ContactNumber
	}

	if err := s.hospitals.Update(ctx, hospital); err != nil {
		return nil, fmt.Errorf("failed to update hospital: %w", err)
	}
	return hospital, nil
}
