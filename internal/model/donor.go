package model

import (
	"time"

	"github.com/google/uuid"
)

type Donor struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        uuid.UUID `db:"user_id" json:"-"`
	BloodGroup    string    `db:"blood_group" json:"blood_group"`
	City          string    `db:"city" json:"city"`
	ContactNumber string    `db:"contact_number" json:"contact_number"`
	IsAvailable   bool      `db:"is_available" json:"is_available"`
	Latitude      *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64  `db:"longitude" json:"longitude,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// HasCoordinates reports whether geocoding succeeded for this donor.
// Donors without coordinates never appear in geo-based queries.
func (d *Donor) HasCoordinates() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// DonorPublic is the donor as shown to hospitals.
type DonorPublic struct {
	ID          uuid.UUID `json:"id"`
	BloodGroup  string    `json:"blood_group"`
	City        string    `json:"city"`
	IsAvailable bool      `json:"is_available"`
}

func (d *Donor) Public() *DonorPublic {
	return &DonorPublic{
		ID:          d.ID,
		BloodGroup:  d.BloodGroup,
		City:        d.City,
		IsAvailable: d.IsAvailable,
	}
}

// DonorInterest records a donor's offer to help with a specific request.
// The (donor, request) pair is unique at the storage layer.
type DonorInterest struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DonorID   uuid.UUID `db:"donor_id" json:"donor_id"`
	RequestID uuid.UUID `db:"request_id" json:"request_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreateDonorRequest struct {
	BloodGroup    string `json:"blood_group" binding:"required,bloodgroup"`
	City          string `json:"city" binding:"required"`
	ContactNumber string `json:"contact_number" binding:"required,max=15"`
	IsAvailable   *bool  `json:"is_available" binding:"required"`
}

type UpdateDonorRequest struct {
	BloodGroup    *string `json:"blood_group" binding:"omitempty,bloodgroup"`
	City          *string `json:"city"`
	ContactNumber *string `json:"contact_number" binding:"omitempty,max=15"`
	IsAvailable   *bool   `json:"is_available"`
}

type DonorFilters struct {
	BloodGroup  string `form:"blood_group"`
	City        string `form:"city"`
	IsAvailable *bool  `form:"is_available"`
}
