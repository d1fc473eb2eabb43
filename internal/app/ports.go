package app

import (
	"context"

	"github.com/nexocrm/funil/internal/domain"
)

// KanbanStage is one column of the initial board load. Count is the
// authoritative remote total for the stage, independent of how many
// opportunities are embedded inline.
type KanbanStage struct {
	Stage         domain.Stage
	Count         int
	TotalValue    float64
	Opportunities []domain.Opportunity
}

// KanbanQuery narrows the initial board load.
type KanbanQuery struct {
	Search        string
	LimitPerStage int
}

// ListQuery selects one offset-paginated page of opportunities. StageID narrows
// to a single column (kanban load-more); SortField/SortDirection apply to the
// unfiltered table view only.
type ListQuery struct {
	StageID       string
	Page          int
	Limit         int
	Search        string
	SortField     string
	SortDirection string
}

// OpportunityPage is one authoritative page plus remote pagination facts.
type OpportunityPage struct {
	Opportunities []domain.Opportunity
	Page          int
	Limit         int
	Total         int
	TotalPages    int
}

// MoveRequest carries the stage transition payload. Value and the loss fields
// are only set by the win/loss confirmation flows.
type MoveRequest struct {
	StageID      string
	Value        *float64
	Notes        string
	LossReasonID string
	LossNotes    string
}

// DisplayOrder assigns one opportunity its kanban position within a stage.
type DisplayOrder struct {
	ID    string
	Order int
}

// OpportunityInput carries create/update fields for an opportunity.
type OpportunityInput struct {
	Title       string
	Value       float64
	StageID     string
	ContactID   string
	OwnerUserID string
	Notes       string
	TagIDs      []string
}

// Client names the remote CRM operations this application consumes. The remote
// API is the single source of truth; every mutation round-trips through it.
type Client interface {
	ListPipelines(ctx context.Context) ([]domain.Pipeline, error)
	GetPipeline(ctx context.Context, id string) (domain.Pipeline, error)

	GetKanban(ctx context.Context, pipelineID string, q KanbanQuery) ([]KanbanStage, error)
	ListOpportunities(ctx context.Context, pipelineID string, q ListQuery) (OpportunityPage, error)

	MoveOpportunity(ctx context.Context, id string, req MoveRequest) (domain.Opportunity, error)
	ReorderOpportunities(ctx context.Context, orders []DisplayOrder) error
	CreateOpportunity(ctx context.Context, pipelineID string, in OpportunityInput) (domain.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, in OpportunityInput) (domain.Opportunity, error)

	ListDiscardReasons(ctx context.Context, activeOnly bool) ([]domain.DiscardReason, error)
	SeedDiscardReasons(ctx context.Context) error

	ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error)
	CreateProduct(ctx context.Context, name string, defaultPrice float64) (domain.Product, error)
}
