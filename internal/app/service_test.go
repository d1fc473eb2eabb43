package app

import (
	"context"
	"errors"
	"testing"

	"github.com/nexocrm/funil/internal/domain"
)

func TestLoadBoardSeedsStoreAndTotals(t *testing.T) {
	client := newFakeClient()
	_, board := newTestBoard(t, client,
		testOpp("o1", "new", 1), testOpp("o2", "new", 2), testOpp("d1", "in_progress", 3))

	if board.Store().Len() != 3 {
		t.Fatalf("store seeded with %d records, want 3", board.Store().Len())
	}
	if got := board.Pager().RemoteTotal("new"); got != 2 {
		t.Fatalf("RemoteTotal(new) = %d, want 2", got)
	}
	if got := board.Pager().LoadedPages("new"); got != 1 {
		t.Fatalf("LoadedPages starts at %d, want 1", got)
	}
	if len(board.Pipeline().Stages) != 4 {
		t.Fatalf("stage registry has %d stages, want 4", len(board.Pipeline().Stages))
	}
}

func TestLoadDiscardReasonsSeedsWhenEmpty(t *testing.T) {
	client := newFakeClient()
	svc := NewService(client, ServiceConfig{}, nil, nil)

	reasons, err := svc.LoadDiscardReasons(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if client.seedCalls != 1 {
		t.Fatalf("seed calls = %d, want 1", client.seedCalls)
	}
	if len(reasons) == 0 {
		t.Fatal("no reasons after seeding")
	}

	// A populated account is never re-seeded.
	if _, err := svc.LoadDiscardReasons(context.Background()); err != nil {
		t.Fatal(err)
	}
	if client.seedCalls != 1 {
		t.Fatalf("seed calls = %d after second load, want 1", client.seedCalls)
	}
}

func TestQuickMoveRefusesTerminalStages(t *testing.T) {
	client := newFakeClient()
	client.pipelines = []domain.Pipeline{testPipeline()}
	svc := NewService(client, ServiceConfig{}, nil, nil)

	if _, err := svc.QuickMove(context.Background(), "p1", "o1", "won"); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("QuickMove into win stage = %v, want ErrConfirmationRequired", err)
	}
	if _, err := svc.QuickMove(context.Background(), "p1", "o1", "lost"); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("QuickMove into loss stage = %v, want ErrConfirmationRequired", err)
	}
	if len(client.moves()) != 0 {
		t.Fatal("refused moves still reached the network")
	}

	if _, err := svc.QuickMove(context.Background(), "p1", "o1", "in_progress"); err != nil {
		t.Fatalf("QuickMove into normal stage = %v", err)
	}
	if _, err := svc.QuickMove(context.Background(), "p1", "o1", "ghost"); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("QuickMove onto unknown stage = %v, want ErrUnknownStage", err)
	}
}

func TestReorderSendsSequentialOrders(t *testing.T) {
	client := newFakeClient()
	svc := NewService(client, ServiceConfig{}, nil, nil)

	if err := svc.Reorder(context.Background(), []string{"b", "a", "c"}); err != nil {
		t.Fatal(err)
	}
	if len(client.reorderCalls) != 1 {
		t.Fatalf("reorder calls = %d", len(client.reorderCalls))
	}
	orders := client.reorderCalls[0]
	want := []DisplayOrder{{ID: "b", Order: 0}, {ID: "a", Order: 1}, {ID: "c", Order: 2}}
	for i := range want {
		if orders[i] != want[i] {
			t.Fatalf("orders = %+v, want %+v", orders, want)
		}
	}
}

func TestListPageQueriesExactlyOnePage(t *testing.T) {
	client := newFakeClient()
	client.listPages[2] = OpportunityPage{
		Opportunities: []domain.Opportunity{testOpp("o9", "new", 1)},
		Page:          2, Limit: 25, Total: 30, TotalPages: 2,
	}
	svc := NewService(client, ServiceConfig{}, nil, nil)

	state := NewListState(25).ToggleSort("value").WithPage(2, 2)
	page, err := svc.ListPage(context.Background(), "p1", state)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 30 || len(page.Opportunities) != 1 {
		t.Fatalf("page = %+v", page)
	}
	q := client.listCalls[0]
	if q.StageID != "" || q.Page != 2 || q.Limit != 25 || q.SortField != "value" || q.SortDirection != "asc" {
		t.Fatalf("query = %+v", q)
	}
}

func TestCreateProductDefaultsPriceToZero(t *testing.T) {
	client := newFakeClient()
	svc := NewService(client, ServiceConfig{}, nil, nil)

	p, err := svc.CreateProduct(context.Background(), "Plano Anual")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Plano Anual" || p.DefaultPrice != 0 {
		t.Fatalf("product = %+v", p)
	}
}
