package domain

// DiscardReason explains why a deal was lost. The loss flow requires one.
type DiscardReason struct {
	ID           string
	Name         string
	Description  string
	DisplayOrder int
	IsActive     bool
}
