package bloodrequest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raktseva/raktseva-api/internal/model"
	apperrors "github.com/raktseva/raktseva-api/pkg/errors"
)

type fixture struct {
	svc       *Service
	requests  *fakeRequestRepo
	donors    *fakeDonorRepo
	hospitals *fakeHospitalRepo
	interests *fakeInterestRepo
	users     *fakeUserRepo
	email     *fakeEmail
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		requests:  newFakeRequestRepo(),
		donors:    newFakeDonorRepo(),
		hospitals: newFakeHospitalRepo(),
		interests: newFakeInterestRepo(),
		users:     newFakeUserRepo(),
		email:     &fakeEmail{},
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.requests.onDelete = f.interests.deleteByRequest

	f.svc = NewService(f.requests, f.donors, f.hospitals, f.interests, f.users, f.email, nil)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func ptr(v float64) *float64 { return &v }

func (f *fixture) addHospital(t *testing.T, name, city string, lat, lon *float64) *model.Hospital {
	t.Helper()
	user := &model.User{ID: uuid.New(), Email: name + "@hospital.example.com", Role: model.RoleHospital, IsVerified: true, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), user))

	h := &model.Hospital{
		ID:                 uuid.New(),
		UserID:             user.ID,
		Name:               name,
		City:               city,
		Address:            "1 Main Rd",
		ContactNumber:      "9000000000",
		RegistrationNumber: "REG-" + uuid.New().String(),
		Latitude:           lat,
		Longitude:          lon,
	}
	require.NoError(t, f.hospitals.Create(context.Background(), h))
	return h
}

func (f *fixture) addDonor(t *testing.T, email, bloodGroup, city string, lat, lon *float64) *model.Donor {
	t.Helper()
	user := &model.User{ID: uuid.New(), Email: email, Role: model.RoleDonor, IsVerified: true, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), user))

	d := &model.Donor{
		ID:            uuid.New(),
		UserID:        user.ID,
		BloodGroup:    bloodGroup,
		City:          city,
		ContactNumber: "8000000000",
		IsAvailable:   true,
		Latitude:      lat,
		Longitude:     lon,
	}
	require.NoError(t, f.donors.Create(context.Background(), d))
	return d
}

func (f *fixture) createRequest(t *testing.T, h *model.Hospital, bloodGroup, city string, qty int) *model.BloodRequestResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), h, &model.CreateBloodRequestRequest{
		BloodGroup: bloodGroup,
		City:       city,
		Quantity:   qty,
	})
	require.NoError(t, err)
	return resp
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, h, &model.CreateBloodRequestRequest{BloodGroup: "C+", City: "Chennai", Quantity: 2})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	_, err = f.svc.Create(ctx, h, &model.CreateBloodRequestRequest{BloodGroup: "O+", City: "Chennai", Quantity: 0})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	resp, err := f.svc.Create(ctx, h, &model.CreateBloodRequestRequest{BloodGroup: "O+", City: "Chennai", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "O+", resp.BloodGroup)
	assert.False(t, resp.IsFulfilled)
	assert.False(t, resp.Expired)
	require.NotNil(t, resp.Hospital)
	assert.Equal(t, h.ID, resp.Hospital.ID)
}

func TestAvailableForMatchesGroupAndCity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	donor := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)

	match := f.createRequest(t, h, "O+", "Chennai", 2)
	f.createRequest(t, h, "A+", "Chennai", 2)  // wrong group
	f.createRequest(t, h, "O+", "Mumbai", 2)   // wrong city
	fulfilled := f.createRequest(t, h, "O+", "Chennai", 1)
	require.NoError(t, f.svc.Fulfill(ctx, h, fulfilled.ID))

	feed, err := f.svc.AvailableFor(ctx, donor)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, match.ID, feed[0].ID)
}

func TestAvailableForExcludesExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	donor := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)

	r := f.createRequest(t, h, "O+", "Chennai", 2)

	// Just inside the window.
	f.advance(48 * time.Hour)
	feed, err := f.svc.AvailableFor(ctx, donor)
	require.NoError(t, err)
	assert.Len(t, feed, 1)

	// Just past it.
	f.advance(time.Hour)
	feed, err = f.svc.AvailableFor(ctx, donor)
	require.NoError(t, err)
	assert.Empty(t, feed)

	// Extending restarts the window and revives the request.
	require.NoError(t, f.svc.Extend(ctx, h, r.ID))
	feed, err = f.svc.AvailableFor(ctx, donor)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, r.ID, feed[0].ID)
}

func TestAvailableForOrdersMostRecentFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	donor := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)

	older := f.createRequest(t, h, "O+", "Chennai", 1)
	f.advance(time.Hour)
	newer := f.createRequest(t, h, "O+", "Chennai", 1)

	feed, err := f.svc.AvailableFor(ctx, donor)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, newer.ID, feed[0].ID)
	assert.Equal(t, older.ID, feed[1].ID)
}

func TestFulfillIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	r := f.createRequest(t, h, "O+", "Chennai", 2)

	require.NoError(t, f.svc.Fulfill(ctx, h, r.ID))

	err := f.svc.Fulfill(ctx, h, r.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	err = f.svc.Extend(ctx, h, r.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	err = f.svc.Cancel(ctx, h, r.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestOwnershipCollapsesToNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	other := f.addHospital(t, "Fortis", "Chennai", nil, nil)
	r := f.createRequest(t, owner, "O+", "Chennai", 2)

	for _, op := range []func() error{
		func() error { return f.svc.Fulfill(ctx, other, r.ID) },
		func() error { return f.svc.Extend(ctx, other, r.ID) },
		func() error { return f.svc.Cancel(ctx, other, r.ID) },
	} {
		err := op()
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	}
}

func TestCancelCascadesInterests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	donor := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)
	r := f.createRequest(t, h, "O+", "Chennai", 2)

	require.NoError(t, f.svc.ExpressInterest(ctx, donor, r.ID))

	require.NoError(t, f.svc.Cancel(ctx, h, r.ID))

	err := f.svc.Fulfill(ctx, h, r.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	interests, err := f.svc.MyInterests(ctx, donor)
	require.NoError(t, err)
	assert.Empty(t, interests)
}

func TestExpressInterestStampsCreatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	donor := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)
	r := f.createRequest(t, h, "O+", "Chennai", 2)

	require.NoError(t, f.svc.ExpressInterest(ctx, donor, r.ID))

	stored := f.interests.interests[interestKey{donor: donor.ID, request: r.ID}]
	require.NotNil(t, stored)
	assert.Equal(t, f.now, stored.CreatedAt)
}

func TestExpressInterestDuplicateRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	donor := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)
	r := f.createRequest(t, h, "O+", "Chennai", 2)

	require.NoError(t, f.svc.ExpressInterest(ctx, donor, r.ID))

	err := f.svc.ExpressInterest(ctx, donor, r.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestExpressInterestUnknownRequest(t *testing.T) {
	f := newFixture(t)
	donor := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)

	err := f.svc.ExpressInterest(context.Background(), donor, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestExpressInterestOwnHospitalGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	r := f.createRequest(t, h, "O+", "Chennai", 2)

	// Same account holds both a hospital and a donor profile.
	dualDonor := &model.Donor{
		ID:            uuid.New(),
		UserID:        h.UserID,
		BloodGroup:    "O+",
		City:          "Chennai",
		ContactNumber: "7000000000",
		IsAvailable:   true,
	}
	require.NoError(t, f.donors.Create(ctx, dualDonor))

	err := f.svc.ExpressInterest(ctx, dualDonor, r.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus())
	assert.Equal(t, "you cannot respond to your own hospital's request", appErr.Message)
}

func TestInterestedDonorsOwnershipAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	other := f.addHospital(t, "Fortis", "Chennai", nil, nil)
	r := f.createRequest(t, owner, "O+", "Chennai", 2)

	d1 := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)
	d2 := f.addDonor(t, "d2@example.com", "O+", "Chennai", nil, nil)
	require.NoError(t, f.svc.ExpressInterest(ctx, d1, r.ID))
	require.NoError(t, f.svc.ExpressInterest(ctx, d2, r.ID))

	_, err := f.svc.InterestedDonors(ctx, other, r.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	donors, err := f.svc.InterestedDonors(ctx, owner, r.ID)
	require.NoError(t, err)
	require.Len(t, donors, 2)
	assert.True(t, donors[0].ID.String() < donors[1].ID.String())
}

func TestNearbyDonors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Bangalore", ptr(12.9716), ptr(77.5946))

	near := f.addDonor(t, "near@example.com", "O+", "Bangalore", ptr(12.9717), ptr(77.5947))
	f.addDonor(t, "far@example.com", "O+", "Bangalore", ptr(13.5), ptr(77.6))
	f.addDonor(t, "nocoords@example.com", "O+", "Bangalore", nil, nil)

	unavailable := f.addDonor(t, "off@example.com", "O+", "Bangalore", ptr(12.9716), ptr(77.5946))
	unavailable.IsAvailable = false
	require.NoError(t, f.donors.Update(ctx, unavailable))

	donors, err := f.svc.NearbyDonors(ctx, h, "")
	require.NoError(t, err)
	require.Len(t, donors, 1)
	assert.Equal(t, near.ID, donors[0].ID)
}

func TestNearbyDonorsRadiusBoundaryInclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Bangalore", ptr(12.9716), ptr(77.5946))

	// 0.1798643 degrees of latitude is 20.000 km at R=6371; the donor
	// sits on the radius and still counts.
	atBoundary := f.addDonor(t, "edge@example.com", "O+", "Bangalore", ptr(13.1514643), ptr(77.5946))
	f.addDonor(t, "beyond@example.com", "O+", "Bangalore", ptr(13.1516), ptr(77.5946))

	donors, err := f.svc.NearbyDonors(ctx, h, "")
	require.NoError(t, err)
	require.Len(t, donors, 1)
	assert.Equal(t, atBoundary.ID, donors[0].ID)
}

func TestNearbyDonorsBloodGroupFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Bangalore", ptr(12.9716), ptr(77.5946))

	f.addDonor(t, "opos@example.com", "O+", "Bangalore", ptr(12.9717), ptr(77.5947))
	aneg := f.addDonor(t, "aneg@example.com", "A-", "Bangalore", ptr(12.9718), ptr(77.5948))

	// No filter: both nearby donors qualify regardless of group.
	donors, err := f.svc.NearbyDonors(ctx, h, "")
	require.NoError(t, err)
	assert.Len(t, donors, 2)

	donors, err = f.svc.NearbyDonors(ctx, h, "A-")
	require.NoError(t, err)
	require.Len(t, donors, 1)
	assert.Equal(t, aneg.ID, donors[0].ID)
}

func TestNearbyDonorsHospitalWithoutCoordinates(t *testing.T) {
	f := newFixture(t)
	h := f.addHospital(t, "Apollo", "Bangalore", nil, nil)
	f.addDonor(t, "d@example.com", "O+", "Bangalore", ptr(12.97), ptr(77.59))

	donors, err := f.svc.NearbyDonors(context.Background(), h, "")
	require.NoError(t, err)
	assert.Empty(t, donors)
}

func TestNotifyDonors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	d1 := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)
	d2 := f.addDonor(t, "d2@example.com", "O+", "Chennai", nil, nil)

	res, err := f.svc.NotifyDonors(ctx, h, &model.NotifyDonorsRequest{
		DonorIDs: []uuid.UUID{d1.ID, d2.ID, uuid.New()}, // unknown id dropped
		Message:  "urgent O+ needed",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Recipients)
	assert.ElementsMatch(t, []string{"d1@example.com", "d2@example.com"}, f.email.sent)
}

func TestNotifyDonorsNoneResolve(t *testing.T) {
	f := newFixture(t)
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)

	_, err := f.svc.NotifyDonors(context.Background(), h, &model.NotifyDonorsRequest{
		DonorIDs: []uuid.UUID{uuid.New()},
		Message:  "anyone there",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestNotifyDonorsFailFast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	d1 := f.addDonor(t, "a-first@example.com", "O+", "Chennai", nil, nil)
	d2 := f.addDonor(t, "b-second@example.com", "O+", "Chennai", nil, nil)

	// Donors are notified in id order; make the first one fail.
	ordered, err := f.donors.ListByIDs(ctx, []uuid.UUID{d1.ID, d2.ID})
	require.NoError(t, err)
	firstUser, err := f.users.Get(ctx, ordered[0].UserID)
	require.NoError(t, err)
	f.email.failOn = firstUser.Email

	_, err = f.svc.NotifyDonors(ctx, h, &model.NotifyDonorsRequest{
		DonorIDs: []uuid.UUID{d1.ID, d2.ID},
		Message:  "urgent",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), firstUser.Email)
	// Nothing after the failure was attempted.
	assert.Empty(t, f.email.sent)
}

func TestExpiredDerivationIndependentOfFulfilled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	r := f.createRequest(t, h, "O+", "Chennai", 2)
	require.NoError(t, f.svc.Fulfill(ctx, h, r.ID))

	f.advance(49 * time.Hour)

	mine, err := f.svc.ListMine(ctx, h)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].IsFulfilled)
	assert.True(t, mine[0].Expired)
}

func TestMyInterests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.addHospital(t, "Apollo", "Chennai", nil, nil)
	donor := f.addDonor(t, "d1@example.com", "O+", "Chennai", nil, nil)

	r1 := f.createRequest(t, h, "O+", "Chennai", 1)
	r2 := f.createRequest(t, h, "O+", "Chennai", 3)
	require.NoError(t, f.svc.ExpressInterest(ctx, donor, r1.ID))
	require.NoError(t, f.svc.ExpressInterest(ctx, donor, r2.ID))

	interests, err := f.svc.MyInterests(ctx, donor)
	require.NoError(t, err)
	require.Len(t, interests, 2)
	for _, resp := range interests {
		require.NotNil(t, resp.Hospital)
		assert.Equal(t, "Apollo", resp.Hospital.Name)
	}
}
