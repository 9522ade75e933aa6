package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestExpiryWindow is how long an open request stays visible to donors,
// measured from creation or the last extension.
const RequestExpiryWindow = 48 * time.Hour

// BloodGroups is the fixed set of valid ABO/Rh combinations.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"}

// IsValidBloodGroup reports whether bg is one of the 8 ABO/Rh combinations.
func IsValidBloodGroup(bg string) bool {
	for _, g := range BloodGroups {
		if g == bg {
			return true
		}
	}
	return false
}

type BloodRequest struct {
	ID          uuid.UUID `db:"id" json:"id"`
	HospitalID  uuid.UUID `db:"hospital_id" json:"hospital_id"`
	BloodGroup  string    `db:"blood_group" json:"blood_group"`
	City        string    `db:"city" json:"city"`
	Quantity    int       `db:"quantity" json:"quantity"`
	IsFulfilled bool      `db:"is_fulfilled" json:"is_fulfilled"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ExpiredAt reports whether the request's 48h window had elapsed at the
// given instant. Expiry is always derived, never stored.
func (r *BloodRequest) ExpiredAt(now time.Time) bool {
	return now.Sub(r.CreatedAt) > RequestExpiryWindow
}

// Expired reports whether the request's 48h window has elapsed.
func (r *BloodRequest) Expired() bool {
	return r.ExpiredAt(time.Now())
}

// BloodRequestResponse is the request as serialized to clients, with the
// derived expired flag and the owning hospital's public fields embedded.
type BloodRequestResponse struct {
	ID          uuid.UUID       `json:"id"`
	Hospital    *HospitalPublic `json:"hospital,omitempty"`
	BloodGroup  string          `json:"blood_group"`
	City        string          `json:"city"`
	Quantity    int             `json:"quantity"`
	IsFulfilled bool            `json:"is_fulfilled"`
	Expired     bool            `json:"expired"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CreateBloodRequestRequest struct {
	BloodGroup string `json:"blood_group" binding:"required,bloodgroup"`
	City       string `json:"city" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gte=1"`
}

type NotifyDonorsRequest struct {
	DonorIDs []uuid.UUID `json:"donor_ids" binding:"required,min=1"`
	Message  string      `json:"message" binding:"required,max=500"`
}

type NotifyDonorsResult struct {
	Recipients int `json:"recipients"`
}
