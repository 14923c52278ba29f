package db

import (
	"time"
)

// Direction is the verdict a user passes on an opportunity.
type Direction string

const (
	DirectionAccept Direction = "accept"
	DirectionReject Direction = "reject"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionAccept || d == DirectionReject
}

// Opportunity categories.
const (
	CategoryClinicalTrial = "clinical_trial"
	CategoryVolunteer     = "volunteer"
	CategoryResearch      = "research"
)

// ValidCategory reports whether c is one of the enumerated categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryClinicalTrial, CategoryVolunteer, CategoryResearch:
		return true
	}
	return false
}

// Opportunity is one catalog entry. Immutable once created: there is no
// update or delete path, so decisions recorded against it can never be
// invalidated by later edits.
type Opportunity struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	Organization string    `gorm:"size:255;not null" json:"organization"`
	Location     string    `gorm:"size:255" json:"location"`
	Category     string    `gorm:"size:32;not null;index" json:"category"`
	Requirements string    `gorm:"type:text" json:"requirements"`
	Compensation string    `gorm:"size:255" json:"compensation,omitempty"`
	URL          string    `gorm:"size:512;not null" json:"url"`
	ImageURL     string    `gorm:"size:512" json:"image_url,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_created_desc_id,priority:1,sort:desc" json:"created_at"`
}

// Swipe is the single current decision for one (user, opportunity) pair.
//
// Composite PK: (UserID, OpportunityID)
//   - Ensures a single row per pair (overwrite guarantee).
//
// Indexes:
//   - idx_user_direction_decided(user_id, direction, updated_at DESC)
//     Optimizes the accepted list, ordered by decision time.
//
// Fields:
//   - UserID: caller-supplied identifier, trusted as-is.
//   - OpportunityID: the opportunity being decided on (FK to opportunities).
//   - Direction: accept or reject.
//   - CreatedAt: when the pair was first decided.
//   - UpdatedAt: when the decision was last replaced. This is the decision
//     timestamp; a re-decide moves it.
type Swipe struct {
	UserID        string    `gorm:"primaryKey;size:64;index:idx_user_direction_decided,priority:1"`
	OpportunityID uint64    `gorm:"primaryKey"`
	Direction     Direction `gorm:"size:8;not null;index:idx_user_direction_decided,priority:2"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime;index:idx_user_direction_decided,priority:3,sort:desc"`

	Opportunity Opportunity `gorm:"foreignKey:OpportunityID;constraint:OnDelete:RESTRICT"`
}
