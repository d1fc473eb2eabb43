package app

import (
	"context"
	"fmt"
	"io"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/nexocrm/funil/internal/domain"
)

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds tuning for the board service.
type ServiceConfig struct {
	// ColumnLimit is the per-stage page size for the kanban load and the
	// per-column load-more fetches.
	ColumnLimit int
}

// Service orchestrates the board flows over the remote client port. It owns
// every network round-trip; Board, Store and Pager stay pure so the state
// machine is testable without a server.
type Service struct {
	client      Client
	clock       Clock
	columnLimit int
	log         *charmLog.Logger
}

// NewService wires the service to a remote client.
func NewService(client Client, cfg ServiceConfig, clock Clock, logger *charmLog.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	if cfg.ColumnLimit <= 0 {
		cfg.ColumnLimit = 20
	}
	return &Service{
		client:      client,
		clock:       clock,
		columnLimit: cfg.ColumnLimit,
		log:         logger,
	}
}

// ListPipelines returns the pipelines visible to the account.
func (s *Service) ListPipelines(ctx context.Context) ([]domain.Pipeline, error) {
	return s.client.ListPipelines(ctx)
}

// LoadBoard performs the initial full board load for one pipeline selection:
// stage registry, store seed and per-stage remote totals. The result is a
// fresh session; the caller invalidates any board it replaces.
func (s *Service) LoadBoard(ctx context.Context, pipelineID, search string) (*Board, error) {
	session := NewSession(pipelineID, search)

	pipeline, err := s.client.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("load pipeline: %w", err)
	}

	columns, err := s.client.GetKanban(ctx, pipelineID, KanbanQuery{
		Search:        session.Search,
		LimitPerStage: s.columnLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("load kanban: %w", err)
	}

	store := NewStore(s.log)
	totals := make(map[string]int, len(columns))
	for _, col := range columns {
		store.Append(col.Opportunities)
		totals[col.Stage.ID] = col.Count
	}

	pager := NewPager(session, store, s.client, s.columnLimit, totals, s.log)
	board := NewBoard(session, pipeline, store, pager, s.log)
	s.log.Info("board loaded",
		"pipeline", pipelineID, "session", session.ID,
		"stages", len(columns), "opportunities", store.Len())
	return board, nil
}

// LoadMore pulls the next page for one column. A zero count with a nil error
// means the trigger was dropped (in flight, complete, or stale).
func (s *Service) LoadMore(ctx context.Context, b *Board, stageID string) (int, error) {
	return b.Pager().LoadNext(ctx, stageID)
}

// Drop classifies a card drop. See Board.Drop.
func (s *Service) Drop(b *Board, oppID, targetStageID string) (DropDecision, error) {
	return b.Drop(oppID, targetStageID)
}

// CommitMove persists an optimistic normal-stage move. The returned reload
// flag tells the caller to throw the board away and load it again: once the
// server disagrees the optimistic state cannot be trusted.
func (s *Service) CommitMove(ctx context.Context, b *Board, oppID, targetStageID string) (reload bool, err error) {
	_, err = s.client.MoveOpportunity(ctx, oppID, MoveRequest{StageID: targetStageID})
	return b.ResolveCommit(err), err
}

// ConfirmWin validates and submits the win dialog. The store is patched only
// after the remote move succeeds; on failure the pending transition stays
// intact so the dialog can retry without re-dragging the card.
func (s *Service) ConfirmWin(ctx context.Context, b *Board, form WinForm) (domain.Opportunity, error) {
	pending, ok := b.Pending()
	if !ok {
		return domain.Opportunity{}, ErrNoPendingTransition
	}
	if err := form.Validate(); err != nil {
		return domain.Opportunity{}, err
	}

	total := form.Total()
	notes := form.Notes
	if notes == "" {
		notes = "Negócio fechado"
	}
	opp, err := s.client.MoveOpportunity(ctx, pending.Opportunity.ID, MoveRequest{
		StageID: pending.TargetStageID,
		Value:   &total,
		Notes:   notes,
	})
	if err != nil {
		return domain.Opportunity{}, err
	}
	b.applyWin(total, s.clock())
	s.log.Info("opportunity won", "id", pending.Opportunity.ID, "value", total)
	return opp, nil
}

// ConfirmLoss validates and submits the loss dialog, with the same
// patch-after-success contract as ConfirmWin.
func (s *Service) ConfirmLoss(ctx context.Context, b *Board, form LossForm) (domain.Opportunity, error) {
	pending, ok := b.Pending()
	if !ok {
		return domain.Opportunity{}, ErrNoPendingTransition
	}
	if err := form.Validate(); err != nil {
		return domain.Opportunity{}, err
	}

	opp, err := s.client.MoveOpportunity(ctx, pending.Opportunity.ID, MoveRequest{
		StageID:      pending.TargetStageID,
		LossReasonID: form.ReasonID,
		LossNotes:    form.Notes,
	})
	if err != nil {
		return domain.Opportunity{}, err
	}
	b.applyLoss(form.ReasonID, form.Notes, s.clock())
	s.log.Info("opportunity lost", "id", pending.Opportunity.ID, "reason", form.ReasonID)
	return opp, nil
}

// CancelPending discards a suspended win/loss move.
func (s *Service) CancelPending(b *Board) {
	b.CancelPending()
}

// Reorder persists new display orders after a same-stage drop. Failures are
// logged only; the server order wins on the next reload.
func (s *Service) Reorder(ctx context.Context, orderedIDs []string) error {
	orders := make([]DisplayOrder, len(orderedIDs))
	for i, id := range orderedIDs {
		orders[i] = DisplayOrder{ID: id, Order: i}
	}
	if err := s.client.ReorderOpportunities(ctx, orders); err != nil {
		s.log.Warn("reorder failed", "err", err)
		return err
	}
	return nil
}

// QuickMove is the non-interactive move used by the MCP surface. Moves into
// the win or loss stage are refused because they require the confirmation
// sub-flow with user-supplied closing data.
func (s *Service) QuickMove(ctx context.Context, pipelineID, oppID, stageID string) (domain.Opportunity, error) {
	pipeline, err := s.client.GetPipeline(ctx, pipelineID)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("load pipeline: %w", err)
	}
	stage, ok := pipeline.StageByID(stageID)
	if !ok {
		return domain.Opportunity{}, ErrUnknownStage
	}
	if stage.Terminal() {
		return domain.Opportunity{}, ErrConfirmationRequired
	}
	return s.client.MoveOpportunity(ctx, oppID, MoveRequest{StageID: stageID})
}

// LoadDiscardReasons loads the active loss reasons, seeding the account
// defaults first when none exist yet.
func (s *Service) LoadDiscardReasons(ctx context.Context) ([]domain.DiscardReason, error) {
	reasons, err := s.client.ListDiscardReasons(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(reasons) > 0 {
		return reasons, nil
	}
	s.log.Info("no discard reasons configured, seeding defaults")
	if err := s.client.SeedDiscardReasons(ctx); err != nil {
		return nil, fmt.Errorf("seed discard reasons: %w", err)
	}
	return s.client.ListDiscardReasons(ctx, true)
}

// ListProducts returns the active product catalog for the win dialog.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.client.ListProducts(ctx, true)
}

// CreateProduct creates a product inline from the win dialog.
func (s *Service) CreateProduct(ctx context.Context, name string) (domain.Product, error) {
	return s.client.CreateProduct(ctx, name, 0)
}

// ListPage fetches one authoritative table page.
func (s *Service) ListPage(ctx context.Context, pipelineID string, state ListState) (OpportunityPage, error) {
	return s.client.ListOpportunities(ctx, pipelineID, state.Query())
}

// CreateOpportunity creates a deal; callers refresh the active view after.
func (s *Service) CreateOpportunity(ctx context.Context, pipelineID string, in OpportunityInput) (domain.Opportunity, error) {
	return s.client.CreateOpportunity(ctx, pipelineID, in)
}

// UpdateOpportunity edits a deal; callers refresh the active view after.
func (s *Service) UpdateOpportunity(ctx context.Context, id string, in OpportunityInput) (domain.Opportunity, error) {
	return s.client.UpdateOpportunity(ctx, id, in)
}
