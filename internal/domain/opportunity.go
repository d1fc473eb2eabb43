package domain

import (
	"strings"
	"time"
)

// Tag is a lightweight label attached to an opportunity.
type Tag struct {
	ID    string
	Name  string
	Color string
}

// Opportunity is a tracked deal. It belongs to exactly one stage at a time;
// moving it is a single-field mutation of StageID, never a copy. The contact
// and owner fields are denormalized display projections owned by the server.
type Opportunity struct {
	ID          string
	PipelineID  string
	StageID     string
	Title       string
	Value       float64
	OwnerUserID string
	OwnerName   string

	ContactID       string
	ContactName     string
	ContactTitle    string
	ContactCompany  string
	ContactEmail    string
	ContactPhone    string
	ContactLocation string
	ContactPicture  string

	Source string
	Notes  string
	Tags   []Tag

	LossReasonID string
	LossNotes    string

	// DisplayOrder is the server-assigned kanban position within a stage.
	// Nil when the server has never assigned one.
	DisplayOrder *int

	CreatedAt time.Time
	UpdatedAt time.Time
	WonAt     *time.Time
	LostAt    *time.Time
}

// DisplayName prefers the contact name over the raw title, matching how the
// server denormalizes card headings.
func (o Opportunity) DisplayName() string {
	if name := strings.TrimSpace(o.ContactName); name != "" {
		return name
	}
	return strings.TrimSpace(o.Title)
}

// Closed reports whether the opportunity sits in a terminal state.
func (o Opportunity) Closed() bool {
	return o.WonAt != nil || o.LostAt != nil
}
