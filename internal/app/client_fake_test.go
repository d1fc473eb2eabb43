package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nexocrm/funil/internal/domain"
)

// fakeClient is an in-memory Client with scriptable failures and call
// recording, shared by the board flow tests.
type fakeClient struct {
	mu sync.Mutex

	pipelines []domain.Pipeline
	kanban    []KanbanStage
	// stagePages holds load-more pages per stage, keyed by page number.
	stagePages map[string]map[int]OpportunityPage
	// listPages holds table-view pages keyed by page number.
	listPages map[int]OpportunityPage

	reasons  []domain.DiscardReason
	products []domain.Product

	moveErr error
	listErr error
	// onList, when set, runs inside ListOpportunities before it returns,
	// simulating events that happen while a fetch is in flight.
	onList func()

	kanbanCalls  int
	seedCalls    int
	moveCalls    []fakeMove
	listCalls    []ListQuery
	reorderCalls [][]DisplayOrder
}

type fakeMove struct {
	ID  string
	Req MoveRequest
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		stagePages: map[string]map[int]OpportunityPage{},
		listPages:  map[int]OpportunityPage{},
	}
}

func (f *fakeClient) ListPipelines(context.Context) ([]domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipelines, nil
}

func (f *fakeClient) GetPipeline(_ context.Context, id string) (domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pipelines {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Pipeline{}, ErrNotFound
}

func (f *fakeClient) GetKanban(_ context.Context, _ string, _ KanbanQuery) ([]KanbanStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kanbanCalls++
	return f.kanban, nil
}

func (f *fakeClient) ListOpportunities(_ context.Context, _ string, q ListQuery) (OpportunityPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, q)
	if f.onList != nil {
		f.onList()
	}
	if f.listErr != nil {
		return OpportunityPage{}, f.listErr
	}
	if q.StageID != "" {
		pages, ok := f.stagePages[q.StageID]
		if !ok {
			return OpportunityPage{Page: q.Page, Limit: q.Limit}, nil
		}
		page, ok := pages[q.Page]
		if !ok {
			return OpportunityPage{Page: q.Page, Limit: q.Limit}, nil
		}
		return page, nil
	}
	page, ok := f.listPages[q.Page]
	if !ok {
		return OpportunityPage{Page: q.Page, Limit: q.Limit}, nil
	}
	return page, nil
}

func (f *fakeClient) MoveOpportunity(_ context.Context, id string, req MoveRequest) (domain.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls = append(f.moveCalls, fakeMove{ID: id, Req: req})
	if f.moveErr != nil {
		return domain.Opportunity{}, f.moveErr
	}
	return domain.Opportunity{ID: id, StageID: req.StageID}, nil
}

func (f *fakeClient) ReorderOpportunities(_ context.Context, orders []DisplayOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reorderCalls = append(f.reorderCalls, orders)
	return nil
}

func (f *fakeClient) CreateOpportunity(_ context.Context, pipelineID string, in OpportunityInput) (domain.Opportunity, error) {
	return domain.Opportunity{ID: "new", PipelineID: pipelineID, StageID: in.StageID, Title: in.Title}, nil
}

func (f *fakeClient) UpdateOpportunity(_ context.Context, id string, in OpportunityInput) (domain.Opportunity, error) {
	return domain.Opportunity{ID: id, StageID: in.StageID, Title: in.Title}, nil
}

func (f *fakeClient) ListDiscardReasons(context.Context, bool) ([]domain.DiscardReason, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reasons, nil
}

func (f *fakeClient) SeedDiscardReasons(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seedCalls++
	f.reasons = []domain.DiscardReason{
		{ID: "r-seed-1", Name: "Sem interesse", DisplayOrder: 0, IsActive: true},
		{ID: "r-seed-2", Name: "Sem orcamento", DisplayOrder: 1, IsActive: true},
	}
	return nil
}

func (f *fakeClient) ListProducts(context.Context, bool) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products, nil
}

func (f *fakeClient) CreateProduct(_ context.Context, name string, defaultPrice float64) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := domain.Product{ID: fmt.Sprintf("prod-%d", len(f.products)+1), Name: name, DefaultPrice: defaultPrice, IsActive: true}
	f.products = append(f.products, p)
	return p, nil
}

func (f *fakeClient) moves() []fakeMove {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeMove, len(f.moveCalls))
	copy(out, f.moveCalls)
	return out
}

// testOpp builds an opportunity with a creation time offset so created_at
// ordering is deterministic.
func testOpp(id, stageID string, minutesAgo int) domain.Opportunity {
	return domain.Opportunity{
		ID:        id,
		StageID:   stageID,
		Title:     "Deal " + id,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

func ordered(v int) *int { return &v }
