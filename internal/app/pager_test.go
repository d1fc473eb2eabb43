package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nexocrm/funil/internal/domain"
	"pgregory.net/rapid"
)

func newTestPager(t rapid.TB, client *fakeClient, totals map[string]int, seed []domain.Opportunity) (*Pager, *Store) {
	t.Helper()
	store := NewStore(nil)
	store.Append(seed)
	session := NewSession("p1", "")
	return NewPager(session, store, client, 2, totals, nil), store
}

func TestPagerHasMore(t *testing.T) {
	client := newFakeClient()
	pager, store := newTestPager(t, client,
		map[string]int{"new": 3, "done": 1},
		[]domain.Opportunity{testOpp("o1", "new", 1), testOpp("o2", "new", 2), testOpp("d1", "done", 3)},
	)

	if !pager.HasMore("new") {
		t.Fatal("HasMore(new) = false with 2 of 3 loaded")
	}
	if pager.HasMore("done") {
		t.Fatal("HasMore(done) = true with all records loaded")
	}
	if pager.HasMore("ghost") {
		t.Fatal("HasMore for an unknown stage must be false")
	}

	store.Append([]domain.Opportunity{testOpp("o3", "new", 3)})
	if pager.HasMore("new") {
		t.Fatal("HasMore(new) = true once countLoaded == remoteTotal")
	}
	// Level-triggered: a completed column never fetches again however often
	// the trigger is evaluated.
	n, err := pager.LoadNext(context.Background(), "new")
	if err != nil || n != 0 {
		t.Fatalf("LoadNext on a complete column = (%d, %v), want (0, nil)", n, err)
	}
	if len(client.listCalls) != 0 {
		t.Fatalf("complete column issued %d fetches, want 0", len(client.listCalls))
	}
}

func TestPagerLoadNextAppendsAndAdvances(t *testing.T) {
	client := newFakeClient()
	client.stagePages["new"] = map[int]OpportunityPage{
		2: {Opportunities: []domain.Opportunity{testOpp("o3", "new", 3), testOpp("o4", "new", 4)}, Total: 5},
		3: {Opportunities: []domain.Opportunity{testOpp("o5", "new", 5)}, Total: 5},
	}
	pager, store := newTestPager(t, client,
		map[string]int{"new": 5},
		[]domain.Opportunity{testOpp("o1", "new", 1), testOpp("o2", "new", 2)},
	)

	n, err := pager.LoadNext(context.Background(), "new")
	if err != nil || n != 2 {
		t.Fatalf("first LoadNext = (%d, %v), want (2, nil)", n, err)
	}
	if got := pager.LoadedPages("new"); got != 2 {
		t.Fatalf("LoadedPages = %d, want 2", got)
	}

	n, err = pager.LoadNext(context.Background(), "new")
	if err != nil || n != 1 {
		t.Fatalf("second LoadNext = (%d, %v), want (1, nil)", n, err)
	}
	if store.CountByStage("new") != 5 {
		t.Fatalf("loaded %d of 5 records", store.CountByStage("new"))
	}
	if pager.HasMore("new") {
		t.Fatal("HasMore after loading everything")
	}

	// Pages were requested strictly in increasing order.
	for i, call := range client.listCalls {
		if want := i + 2; call.Page != want {
			t.Fatalf("fetch %d requested page %d, want %d", i, call.Page, want)
		}
	}
}

func TestPagerDropsReentrantLoads(t *testing.T) {
	client := newFakeClient()
	pager, _ := newTestPager(t, client,
		map[string]int{"new": 10, "other": 5},
		[]domain.Opportunity{testOpp("o1", "new", 1), testOpp("x1", "other", 2)},
	)

	page, ok := pager.begin("new")
	if !ok || page != 2 {
		t.Fatalf("begin = (%d, %v), want (2, true)", page, ok)
	}
	// A second trigger while one load is in flight is dropped, not queued.
	if _, ok := pager.begin("new"); ok {
		t.Fatal("begin succeeded while a load was in flight")
	}
	// Columns page independently: another stage may still start.
	if _, ok := pager.begin("other"); !ok {
		t.Fatal("in-flight state leaked across stages")
	}
}

func TestPagerFailureLeavesCursorForRetry(t *testing.T) {
	client := newFakeClient()
	client.listErr = errors.New("boom")
	pager, _ := newTestPager(t, client,
		map[string]int{"new": 4},
		[]domain.Opportunity{testOpp("o1", "new", 1)},
	)

	if _, err := pager.LoadNext(context.Background(), "new"); err == nil {
		t.Fatal("LoadNext swallowed the transport error")
	}
	if got := pager.LoadedPages("new"); got != 1 {
		t.Fatalf("LoadedPages advanced to %d on failure", got)
	}
	if pager.InFlight("new") {
		t.Fatal("in-flight flag not cleared on failure")
	}

	// The next visibility trigger retries the same page.
	client.mu.Lock()
	client.listErr = nil
	client.stagePages["new"] = map[int]OpportunityPage{
		2: {Opportunities: []domain.Opportunity{testOpp("o2", "new", 2)}, Total: 4},
	}
	client.mu.Unlock()

	if n, err := pager.LoadNext(context.Background(), "new"); err != nil || n != 1 {
		t.Fatalf("retry = (%d, %v), want (1, nil)", n, err)
	}
	if client.listCalls[0].Page != 2 || client.listCalls[1].Page != 2 {
		t.Fatalf("retry requested pages %d then %d, want 2 twice", client.listCalls[0].Page, client.listCalls[1].Page)
	}
}

func TestPagerDiscardsStaleSessionResponse(t *testing.T) {
	client := newFakeClient()
	client.stagePages["new"] = map[int]OpportunityPage{
		2: {Opportunities: []domain.Opportunity{testOpp("late", "new", 9)}, Total: 3},
	}
	pager, store := newTestPager(t, client,
		map[string]int{"new": 3},
		[]domain.Opportunity{testOpp("o1", "new", 1)},
	)

	// Pipeline switches while the fetch is in flight: the response lands
	// after invalidation and must not reach the store.
	client.onList = pager.Invalidate
	if n, err := pager.LoadNext(context.Background(), "new"); n != 0 || !errors.Is(err, ErrStaleSession) {
		t.Fatalf("mid-flight invalidation = (%d, %v), want (0, ErrStaleSession)", n, err)
	}
	if store.Len() != 1 {
		t.Fatalf("stale response mutated the store: %d records", store.Len())
	}

	// Once invalidated, further triggers are dropped before fetching.
	client.onList = nil
	calls := len(client.listCalls)
	if n, err := pager.LoadNext(context.Background(), "new"); n != 0 || err != nil {
		t.Fatalf("LoadNext on invalidated pager = (%d, %v), want (0, nil)", n, err)
	}
	if len(client.listCalls) != calls {
		t.Fatal("invalidated pager still issued a fetch")
	}
}

func TestPagerMonotonicPagesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 12).Draw(t, "total")
		limit := 2

		// Fabricate the remote dataset for one stage.
		client := newFakeClient()
		all := make([]domain.Opportunity, total)
		for i := range all {
			all[i] = testOpp(fmt.Sprintf("o%d", i), "new", i)
		}
		pages := map[int]OpportunityPage{}
		for p := 1; p*limit < total+limit; p++ {
			lo := (p - 1) * limit
			hi := min(lo+limit, total)
			if lo >= hi {
				break
			}
			pages[p] = OpportunityPage{Opportunities: all[lo:hi], Total: total}
		}
		client.stagePages["new"] = pages

		seed := all[:min(limit, total)]
		pager, store := newTestPager(t, client, map[string]int{"new": total}, seed)

		steps := rapid.IntRange(0, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if !pager.HasMore("new") {
				break
			}
			if _, err := pager.LoadNext(context.Background(), "new"); err != nil {
				t.Fatalf("LoadNext: %v", err)
			}
		}

		if store.CountByStage("new") > total {
			t.Fatalf("loaded %d of %d", store.CountByStage("new"), total)
		}
		last := 1
		for _, call := range client.listCalls {
			if call.Page <= last {
				t.Fatalf("page %d requested after page %d", call.Page, last)
			}
			last = call.Page
		}
	})
}
