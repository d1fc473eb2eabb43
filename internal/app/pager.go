package app

import (
	"context"
	"io"
	"sync"

	charmLog "github.com/charmbracelet/log"
)

// Pager owns one pagination cursor per stage of a board session. The first
// page of every stage arrives inline with the kanban load, so every cursor
// starts at page 1. Columns page fully independently; the only ordering
// guarantee is per stage: page N+1 is never requested before page N's records
// were appended.
type Pager struct {
	mu       sync.Mutex
	session  Session
	store    *Store
	client   Client
	limit    int
	pages    map[string]int
	totals   map[string]int
	inflight map[string]bool
	// invalid is set when the session was replaced; late responses for an
	// invalidated pager are dropped instead of appended.
	invalid bool
	log     *charmLog.Logger
}

// NewPager builds the per-stage cursors for one session. totals carries the
// authoritative remote count per stage from the kanban response.
func NewPager(session Session, store *Store, client Client, limit int, totals map[string]int, logger *charmLog.Logger) *Pager {
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	if limit <= 0 {
		limit = 20
	}
	pages := make(map[string]int, len(totals))
	t := make(map[string]int, len(totals))
	for stageID, total := range totals {
		pages[stageID] = 1
		t[stageID] = total
	}
	return &Pager{
		session:  session,
		store:    store,
		client:   client,
		limit:    limit,
		pages:    pages,
		totals:   t,
		inflight: make(map[string]bool),
		log:      logger,
	}
}

// HasMore reports whether a stage still has unloaded records. Safe to evaluate
// repeatedly; the trigger is level-based, not edge-based.
func (p *Pager) HasMore(stageID string) bool {
	p.mu.Lock()
	total, known := p.totals[stageID]
	p.mu.Unlock()
	if !known {
		return false
	}
	return p.store.CountByStage(stageID) < total
}

// RemoteTotal returns the authoritative remote count for a stage.
func (p *Pager) RemoteTotal(stageID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totals[stageID]
}

// LoadedPages returns how many pages have been loaded for a stage.
func (p *Pager) LoadedPages(stageID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pages[stageID]
}

// InFlight reports whether a load is currently running for a stage.
func (p *Pager) InFlight(stageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight[stageID]
}

// Invalidate marks the pager stale. Any load that completes afterwards is
// discarded without touching the store.
func (p *Pager) Invalidate() {
	p.mu.Lock()
	p.invalid = true
	p.mu.Unlock()
}

// begin claims the next page for a stage. A second concurrent call for the
// same stage is dropped, not queued: the visibility trigger fires again.
func (p *Pager) begin(stageID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.invalid || p.inflight[stageID] {
		return 0, false
	}
	total, known := p.totals[stageID]
	if !known {
		return 0, false
	}
	if p.store.CountByStage(stageID) >= total {
		return 0, false
	}
	p.inflight[stageID] = true
	return p.pages[stageID] + 1, true
}

// LoadNext fetches and appends the next page for one stage. It returns the
// number of records appended, zero when the call was dropped (already in
// flight, nothing more to load, or the session went stale). On failure the
// cursor is left unchanged so the next trigger retries the same page.
func (p *Pager) LoadNext(ctx context.Context, stageID string) (int, error) {
	page, ok := p.begin(stageID)
	if !ok {
		return 0, nil
	}

	result, err := p.client.ListOpportunities(ctx, p.session.PipelineID, ListQuery{
		StageID: stageID,
		Page:    page,
		Limit:   p.limit,
		Search:  p.session.Search,
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, stageID)

	if err != nil {
		p.log.Warn("pager: page load failed", "stage", stageID, "page", page, "err", err)
		return 0, err
	}
	if p.invalid {
		p.log.Debug("pager: dropping stale page", "stage", stageID, "page", page, "session", p.session.ID)
		return 0, ErrStaleSession
	}

	added := p.store.Append(result.Opportunities)
	p.pages[stageID] = page
	if result.Total > 0 {
		// The remote total is authoritative and may drift between pages.
		p.totals[stageID] = result.Total
	}
	return added, nil
}
