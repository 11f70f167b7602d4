package models

import (
	"time"

	"gorm.io/datatypes"
)

// User is the profile of a student as maintained by the external identity
// system. This service only reads it.
type User struct {
	ID             uint    `json:"id" gorm:"primaryKey"`
	Email          string  `json:"email" gorm:"not null;uniqueIndex;size:255"`
	FirstName      *string `json:"first_name" gorm:"size:100"`
	LastName       *string `json:"last_name" gorm:"size:100"`
	GraduationYear *int    `json:"graduation_year"`
	SchoolName     *string `json:"school_name" gorm:"size:200"`
	Location       *string `json:"location" gorm:"size:200"`

	EquityEligible  bool `json:"equity_eligible" gorm:"default:false"`
	FirstGeneration bool `json:"first_generation" gorm:"default:false"`

	// Free-form preference blob collected during onboarding. Keys are
	// best-effort; absent keys must never fail mapping.
	Preferences datatypes.JSON `json:"preferences" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the possessive form used in report titles.
func (u *User) DisplayName() string {
	if u.FirstName != nil && *u.FirstName != "" {
		return *u.FirstName + "'s"
	}
	return "Your"
}
