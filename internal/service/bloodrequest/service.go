package bloodrequest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raktseva/raktseva-api/internal/email"
	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/repository"
	apperrors "github.com/raktseva/raktseva-api/pkg/errors"
	"github.com/raktseva/raktseva-api/pkg/geo"
	"github.com/raktseva/raktseva-api/pkg/metrics"
)

// nearbyRadiusKm bounds the nearby-donor query; exactly at the boundary
// counts as nearby.
const nearbyRadiusKm = 20.0

type Service struct {
	requests  repository.BloodRequestRepository
	donors    repository.DonorRepository
	hospitals repository.HospitalRepository
	interests repository.InterestRepository
	users     repository.UserRepository
	emailSvc  email.Service
	metrics   *metrics.Metrics

	// now is swappable for expiry tests.
	now func() time.Time
}

func NewService(
	requests repository.BloodRequestRepository,
	donors repository.DonorRepository,
	hospitals repository.HospitalRepository,
	interests repository.InterestRepository,
	users repository.UserRepository,
	emailSvc email.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		requests:  requests,
		donors:    donors,
		hospitals: hospitals,
		interests: interests,
		users:     users,
		emailSvc:  emailSvc,
		metrics:   m,
		now:       time.Now,
	}
}

// Create opens a request owned by the hospital. The owner is fixed here
// and never reassigned.
func (s *Service) Create(ctx context.Context, hospital *model.Hospital, req *model.CreateBloodRequestRequest) (*model.BloodRequestResponse, error) {
	if !model.IsValidBloodGroup(req.BloodGroup) {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid blood group %q", req.BloodGroup), nil)
	}
	if req.Quantity < 1 {
		return nil, apperrors.BadRequest("quantity must be a positive integer", nil)
	}

	request := &model.BloodRequest{
		ID:         uuid.New(),
		HospitalID: hospital.ID,
		BloodGroup: req.BloodGroup,
		City:       req.City,
		Quantity:   req.Quantity,
		CreatedAt:  s.now(),
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create blood request: %w", err)
	}
	return s.toResponse(request, hospital), nil
}

// ListMine returns all of the hospital's requests, any state.
func (s *Service) ListMine(ctx context.Context, hospital *model.Hospital) ([]*model.BloodRequestResponse, error) {
	requests, err := s.requests.ListByHospital(ctx, hospital.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blood requests: %w", err)
	}

	out := make([]*model.BloodRequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, s.toResponse(r, hospital))
	}
	return out, nil
}

// AvailableFor is the donor-facing feed: open, unexpired requests in the
// donor's city with the donor's blood group, most recent first. City is
// an exact string match here, unlike the geo-based nearby query.
func (s *Service) AvailableFor(ctx context.Context, donor *model.Donor) ([]*model.BloodRequestResponse, error) {
	cutoff := s.now().Add(-model.RequestExpiryWindow)
	requests, err := s.requests.ListOpenMatching(ctx, donor.BloodGroup, donor.City, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list available requests: %w", err)
	}
	return s.toResponses(ctx, requests)
}

// Fulfill marks the request fulfilled. One-way; fulfilled is terminal.
func (s *Service) Fulfill(ctx context.Context, hospital *model.Hospital, requestID uuid.UUID) error {
	request, err := s.getOwned(ctx, requestID, hospital.ID)
	if err != nil {
		return err
	}
	if request.IsFulfilled {
		return apperrors.InvalidState("request already fulfilled")
	}

	request.IsFulfilled = true
	if err := s.requests.Update(ctx, request); err != nil {
		return fmt.Errorf("failed to fulfill blood request: %w", err)
	}
	return nil
}

// Extend restarts the 48h expiry window by resetting created_at.
func (s *Service) Extend(ctx context.Context, hospital *model.Hospital, requestID uuid.UUID) error {
	request, err := s.getOwned(ctx, requestID, hospital.ID)
	if err != nil {
		return err
	}
	if request.IsFulfilled {
		return apperrors.InvalidState("cannot extend a fulfilled request")
	}

	request.CreatedAt = s.now()
	if err := s.requests.Update(ctx, request); err != nil {
		return fmt.Errorf("failed to extend blood request: %w", err)
	}
	return nil
}

// Cancel deletes the request; interest rows cascade with it.
func (s *Service) Cancel(ctx context.Context, hospital *model.Hospital, requestID uuid.UUID) error {
	request, err := s.getOwned(ctx, requestID, hospital.ID)
	if err != nil {
		return err
	}
	if request.IsFulfilled {
		return apperrors.InvalidState("cannot cancel a fulfilled request")
	}

	if err := s.requests.Delete(ctx, request.ID); err != nil {
		return fmt.Errorf("failed to cancel blood request: %w", err)
	}
	return nil
}

// ExpressInterest records the donor's offer to help. The duplicate check
// rides on the storage uniqueness constraint, so concurrent submissions
// of the same pair cannot both succeed.
func (s *Service) ExpressInterest(ctx context.Context, donor *model.Donor, requestID uuid.UUID) error {
	request, err := s.requests.Get(ctx, requestID)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("blood request", err)
		}
		return fmt.Errorf("failed to get blood request: %w", err)
	}

	// An account that somehow owns the request's hospital profile must
	// not respond to its own request.
	if ownHospital, err := s.hospitals.GetByUser(ctx, donor.UserID); err == nil {
		if ownHospital.ID == request.HospitalID {
			return apperrors.BadRequest("you cannot respond to your own hospital's request", nil)
		}
	} else if err != repository.ErrNotFound {
		return fmt.Errorf("failed to check hospital profile: %w", err)
	}

	interest := &model.DonorInterest{
		ID:        uuid.New(),
		DonorID:   donor.ID,
		RequestID: request.ID,
		CreatedAt: s.now(),
	}
	if err := s.interests.Create(ctx, interest); err != nil {
		if err == repository.ErrDuplicate {
			return apperrors.Conflict("you've already offered to help with this request", err)
		}
		return fmt.Errorf("failed to record interest: %w", err)
	}
	return nil
}

// InterestedDonors lists donors who offered to help with the request,
// ordered by donor id. Only the owning hospital may ask.
func (s *Service) InterestedDonors(ctx context.Context, hospital *model.Hospital, requestID uuid.UUID) ([]*model.DonorPublic, error) {
	request, err := s.requests.Get(ctx, requestID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("blood request", err)
		}
		return nil, fmt.Errorf("failed to get blood request: %w", err)
	}
	if request.HospitalID != hospital.ID {
		return nil, apperrors.Forbidden("you do not have permission to view donors for this request")
	}

	donorIDs, err := s.interests.ListDonorIDsByRequest(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interested donors: %w", err)
	}

	donors, err := s.donors.ListByIDs(ctx, donorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve interested donors: %w", err)
	}

	out := make([]*model.DonorPublic, 0, len(donors))
	for _, d := range donors {
		out = append(out, d.Public())
	}
	return out, nil
}

// MyInterests lists the requests the donor has offered to help with.
func (s *Service) MyInterests(ctx context.Context, donor *model.Donor) ([]*model.BloodRequestResponse, error) {
	requestIDs, err := s.interests.ListRequestIDsByDonor(ctx, donor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}

	requests, err := s.requests.ListByIDs(ctx, requestIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve interest requests: %w", err)
	}
	return s.toResponses(ctx, requests)
}

// NearbyDonors returns available donors within 20 km of the hospital's
// coordinates, optionally filtered by exact blood group. Donors without
// stored coordinates are never nearby; this query ignores the city field
// entirely. An empty bloodGroup means no blood-group filtering.
func (s *Service) NearbyDonors(ctx context.Context, hospital *model.Hospital, bloodGroup string) ([]*model.DonorPublic, error) {
	out := []*model.DonorPublic{}
	if !hospital.HasCoordinates() {
		return out, nil
	}

	donors, err := s.donors.ListAvailable(ctx, bloodGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to list available donors: %w", err)
	}

	for _, d := range donors {
		if !d.HasCoordinates() {
			continue
		}
		dist := geo.Distance(*hospital.Latitude, *hospital.Longitude, *d.Latitude, *d.Longitude)
		if dist <= nearbyRadiusKm {
			out = append(out, d.Public())
		}
	}
	return out, nil
}

// NotifyDonors emails the message, prefixed with the hospital's name, to
// every donor id that resolves. Unknown ids are silently dropped. The
// fan-out is fail-fast and non-transactional: the first delivery failure
// aborts the loop, already-sent messages stay sent.
func (s *Service) NotifyDonors(ctx context.Context, hospital *model.Hospital, req *model.NotifyDonorsRequest) (*model.NotifyDonorsResult, error) {
	donors, err := s.donors.ListByIDs(ctx, req.DonorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve donors: %w", err)
	}
	if len(donors) == 0 {
		return nil, apperrors.NotFound("donors", nil)
	}

	body := fmt.Sprintf("Message from %s:\n\n%s", hospital.Name, req.Message)

	for _, d := range donors {
		user, err := s.users.Get(ctx, d.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve donor account: %w", err)
		}
		if err := s.emailSvc.SendCustom(ctx, user.Email, "Blood Donation Request", body); err != nil {
			if s.metrics != nil {
				s.metrics.NotificationsFailed.Inc()
			}
			return nil, apperrors.Internalf(err, "failed to send message to donor %s", user.Email)
		}
		if s.metrics != nil {
			s.metrics.NotificationsSent.Inc()
		}
	}

	return &model.NotifyDonorsResult{Recipients: len(donors)}, nil
}

func (s *Service) getOwned(ctx context.Context, requestID, hospitalID uuid.UUID) (*model.BloodRequest, error) {
	request, err := s.requests.GetOwned(ctx, requestID, hospitalID)
	if err != nil {
		if err == repository.ErrNotFound {
			// Not-found and not-owned are indistinguishable on purpose.
			return nil, apperrors.NotFound("blood request", err)
		}
		return nil, fmt.Errorf("failed to get blood request: %w", err)
	}
	return request, nil
}

func (s *Service) toResponse(r *model.BloodRequest, hospital *model.Hospital) *model.BloodRequestResponse {
	resp := &model.BloodRequestResponse{
		ID:          r.ID,
		BloodGroup:  r.BloodGroup,
		City:        r.City,
		Quantity:    r.Quantity,
		IsFulfilled: r.IsFulfilled,
		Expired:     r.ExpiredAt(s.now()),
		CreatedAt:   r.CreatedAt,
	}
	if hospital != nil {
		resp.Hospital = hospital.Public()
	}
	return resp
}

// toResponses embeds each request's hospital, deduplicating lookups.
func (s *Service) toResponses(ctx context.Context, requests []*model.BloodRequest) ([]*model.BloodRequestResponse, error) {
	cache := map[uuid.UUID]*model.Hospital{}
	out := make([]*model.BloodRequestResponse, 0, len(requests))

	for _, r := range requests {
		hospital, ok := cache[r.HospitalID]
		if !ok {
			var err error
			hospital, err = s.hospitals.Get(ctx, r.HospitalID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve hospital: %w", err)
			}
			cache[r.HospitalID] = hospital
		}
		out = append(out, s.toResponse(r, hospital))
	}
	return out, nil
}
