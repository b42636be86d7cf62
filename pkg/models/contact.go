package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is one known person, owned by exactly one user. Every read and
// write is scoped by UserID.
type Contact struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Company   string     `json:"company,omitempty"`
	Title     string     `json:"title,omitempty"`
	Industry  string     `json:"industry,omitempty"`
	Address   string     `json:"address,omitempty"`
	Website   string     `json:"website,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Tags      []string   `json:"tags"`
	EventID   *uuid.UUID `json:"event_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Industry constants. A contact's industry is one of these or unset.
const (
	IndustryTechnology    = "technology"
	IndustryFinance       = "finance"
	IndustryHealthcare    = "healthcare"
	IndustryEducation     = "education"
	IndustryRetail        = "retail"
	IndustryManufacturing = "manufacturing"
	IndustryLegal         = "legal"
	IndustryMarketing     = "marketing"
	IndustryRealEstate    = "real_estate"
	IndustryConsulting    = "consulting"
	IndustryOther         = "other"
)

// ValidIndustries contains all valid industry values.
var ValidIndustries = []string{
	IndustryTechnology,
	IndustryFinance,
	IndustryHealthcare,
	IndustryEducation,
	IndustryRetail,
	IndustryManufacturing,
	IndustryLegal,
	IndustryMarketing,
	IndustryRealEstate,
	IndustryConsulting,
	IndustryOther,
}

// IsValidIndustry checks if the given industry is valid. The empty string is
// valid and means unset.
func IsValidIndustry(industry string) bool {
	if industry == "" {
		return true
	}
	for _, i := range ValidIndustries {
		if i == industry {
			return true
		}
	}
	return false
}
