package bloodrequest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/repository"
)

// In-memory fakes for the repository interfaces, mirroring the ordering
// and uniqueness guarantees the postgres implementations provide.

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*model.BloodRequest

	// onDelete stands in for the schema's ON DELETE CASCADE.
	onDelete func(uuid.UUID)
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: map[uuid.UUID]*model.BloodRequest{}}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *model.BloodRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) Get(_ context.Context, id uuid.UUID) (*model.BloodRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) GetOwned(_ context.Context, id, hospitalID uuid.UUID) (*model.BloodRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.HospitalID != hospitalID {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) Update(_ context.Context, req *model.BloodRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	if _, ok := r.requests[id]; !ok {
		r.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(r.requests, id)
	r.mu.Unlock()

	if r.onDelete != nil {
		r.onDelete(id)
	}
	return nil
}

func (r *fakeRequestRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID) ([]*model.BloodRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.BloodRequest{}
	for _, req := range r.requests {
		if req.HospitalID == hospitalID {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *fakeRequestRepo) ListOpenMatching(_ context.Context, bloodGroup, city string, createdAfter time.Time) ([]*model.BloodRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.BloodRequest{}
	for _, req := range r.requests {
		if req.BloodGroup == bloodGroup && req.City == city && !req.IsFulfilled && !req.CreatedAt.Before(createdAfter) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRequestRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*model.BloodRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.BloodRequest{}
	for _, id := range ids {
		if req, ok := r.requests[id]; ok {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

type fakeDonorRepo struct {
	mu     sync.Mutex
	donors map[uuid.UUID]*model.Donor
}

func newFakeDonorRepo() *fakeDonorRepo {
	return &fakeDonorRepo{donors: map[uuid.UUID]*model.Donor{}}
}

func (r *fakeDonorRepo) Create(_ context.Context, d *model.Donor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.donors {
		if existing.UserID == d.UserID {
			return repository.ErrDuplicate
		}
	}
	cp := *d
	r.donors[d.ID] = &cp
	return nil
}

func (r *fakeDonorRepo) Get(_ context.Context, id uuid.UUID) (*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.donors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDonorRepo) GetByUser(_ context.Context, userID uuid.UUID) (*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.donors {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeDonorRepo) Update(_ context.Context, d *model.Donor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.donors[d.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *d
	r.donors[d.ID] = &cp
	return nil
}

func (r *fakeDonorRepo) List(_ context.Context, filters *model.DonorFilters) ([]*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Donor{}
	for _, d := range r.donors {
		if filters != nil {
			if filters.BloodGroup != "" && d.BloodGroup != filters.BloodGroup {
				continue
			}
			if filters.City != "" && d.City != filters.City {
				continue
			}
			if filters.IsAvailable != nil && d.IsAvailable != *filters.IsAvailable {
				continue
			}
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *fakeDonorRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Donor{}
	for _, id := range ids {
		if d, ok := r.donors[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *fakeDonorRepo) ListAvailable(_ context.Context, bloodGroup string) ([]*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Donor{}
	for _, d := range r.donors {
		if !d.IsAvailable {
			continue
		}
		if bloodGroup != "" && d.BloodGroup != bloodGroup {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

type fakeHospitalRepo struct {
	mu        sync.Mutex
	hospitals map[uuid.UUID]*model.Hospital
}

func newFakeHospitalRepo() *fakeHospitalRepo {
	return &fakeHospitalRepo{hospitals: map[uuid.UUID]*model.Hospital{}}
}

func (r *fakeHospitalRepo) Create(_ context.Context, h *model.Hospital) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.hospitals {
		if existing.UserID == h.UserID || existing.RegistrationNumber == h.RegistrationNumber {
			return repository.ErrDuplicate
		}
	}
	cp := *h
	r.hospitals[h.ID] = &cp
	return nil
}

func (r *fakeHospitalRepo) Get(_ context.Context, id uuid.UUID) (*model.Hospital, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hospitals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *fakeHospitalRepo) GetByUser(_ context.Context, userID uuid.UUID) (*model.Hospital, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.hospitals {
		if h.UserID == userID {
			cp := *h
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeHospitalRepo) Update(_ context.Context, h *model.Hospital) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hospitals[h.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *h
	r.hospitals[h.ID] = &cp
	return nil
}

type interestKey struct {
	donor, request uuid.UUID
}

type fakeInterestRepo struct {
	mu        sync.Mutex
	interests map[interestKey]*model.DonorInterest
}

func newFakeInterestRepo() *fakeInterestRepo {
	return &fakeInterestRepo{interests: map[interestKey]*model.DonorInterest{}}
}

func (r *fakeInterestRepo) Create(_ context.Context, i *model.DonorInterest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := interestKey{donor: i.DonorID, request: i.RequestID}
	if _, ok := r.interests[key]; ok {
		return repository.ErrDuplicate
	}
	cp := *i
	r.interests[key] = &cp
	return nil
}

func (r *fakeInterestRepo) ListDonorIDsByRequest(_ context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []uuid.UUID{}
	for key := range r.interests {
		if key.request == requestID {
			out = append(out, key.donor)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (r *fakeInterestRepo) ListRequestIDsByDonor(_ context.Context, donorID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []uuid.UUID{}
	for key := range r.interests {
		if key.donor == donorID {
			out = append(out, key.request)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// deleteByRequest mimics the ON DELETE CASCADE the schema provides.
func (r *fakeInterestRepo) deleteByRequest(requestID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.interests {
		if key.request == requestID {
			delete(r.interests, key)
		}
	}
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*model.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

// fakeEmail records sends and can be told to fail for one address.
type fakeEmail struct {
	mu     sync.Mutex
	sent   []string
	failOn string
}

func (f *fakeEmail) SendOTP(_ context.Context, to, _ string) error {
	return f.record(to)
}

func (f *fakeEmail) SendCustom(_ context.Context, to, _, _ string) error {
	return f.record(to)
}

func (f *fakeEmail) record(to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if to == f.failOn {
		return fmt.Errorf("smtp: delivery to %s refused", to)
	}
	f.sent = append(f.sent, to)
	return nil
}
