package model

import (
	"time"

	"github.com/google/uuid"
)

type Hospital struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	UserID             uuid.UUID `db:"user_id" json:"-"`
	Name               string    `db:"name" json:"name"`
	City               string    `db:"city" json:"city"`
	Address            string    `db:"address" json:"address"`
	ContactNumber      string    `db:"contact_number" json:"contact_number"`
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	Latitude           *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64  `db:"longitude" json:"longitude,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

func (h *Hospital) HasCoordinates() bool {
	return h.Latitude != nil && h.Longitude != nil
}

// HospitalPublic is the hospital as embedded in request payloads.
type HospitalPublic struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	City string    `json:"city"`
}

func (h *Hospital) Public() *HospitalPublic {
	return &HospitalPublic{ID: h.ID, Name: h.Name, City: h.City}
}

type CreateHospitalRequest struct {
	Name               string `json:"name" binding:"required"`
	City               string `json:"city" binding:"required"`
	Address            string `json:"address" binding:"required"`
	ContactNumber      string `json:"contact_number" binding:"required,max=15"`
	RegistrationNumber string `json:"registration_number" binding:"required"`
}

type UpdateHospitalRequest struct {
	Name          *string `json:"name"`
	City          *string `json:"city"`
	Address       *string `json:"address"`
	ContactNumber *string `json:"contact_number" binding:"omitempty,max=15"`
}
