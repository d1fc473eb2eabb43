package app

import (
	"fmt"
	"io"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/nexocrm/funil/internal/domain"
)

// Phase is the board controller's drag/drop state. Modeling the flow as a
// tagged state instead of boolean flags keeps illegal combinations (two
// pending confirmations, a commit during a confirmation) unrepresentable.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseCommitting
	PhaseAwaitingConfirmation
)

// String implements fmt.Stringer for log lines.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhaseCommitting:
		return "committing"
	case PhaseAwaitingConfirmation:
		return "awaiting-confirmation"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// DropDecision classifies what a drop requires next.
type DropDecision int

const (
	// DropIgnored means nothing changed: invalid target or same stage.
	DropIgnored DropDecision = iota
	// DropCommitted means the store was patched optimistically and the remote
	// move must now be confirmed.
	DropCommitted
	// DropAwaitWin suspends the move until the win dialog is confirmed.
	DropAwaitWin
	// DropAwaitLoss suspends the move until the loss dialog is confirmed.
	DropAwaitLoss
)

// PendingTransition is the at-most-one-per-board move awaiting confirmation.
// While it exists the store still shows the opportunity in its source stage.
type PendingTransition struct {
	Opportunity   domain.Opportunity
	TargetStageID string
}

// Board coordinates one session's stage registry, store and pager through the
// drag/drop state machine. It is pure state: the network round-trips live in
// Service, which reports their outcome back via ResolveCommit and the win/loss
// apply methods.
type Board struct {
	mu       sync.Mutex
	session  Session
	pipeline domain.Pipeline
	store    *Store
	pager    *Pager
	phase    Phase
	dragID   string
	pending  *PendingTransition
	log      *charmLog.Logger
}

// NewBoard assembles a board for one session.
func NewBoard(session Session, pipeline domain.Pipeline, store *Store, pager *Pager, logger *charmLog.Logger) *Board {
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Board{
		session:  session,
		pipeline: pipeline,
		store:    store,
		pager:    pager,
		phase:    PhaseIdle,
		log:      logger,
	}
}

// Session returns the immutable session value the board is keyed to.
func (b *Board) Session() Session { return b.session }

// Pipeline returns the loaded pipeline with its ordered stage registry.
func (b *Board) Pipeline() domain.Pipeline { return b.pipeline }

// Store returns the session's opportunity store.
func (b *Board) Store() *Store { return b.store }

// Pager returns the session's per-column pager.
func (b *Board) Pager() *Pager { return b.pager }

// Phase returns the controller phase.
func (b *Board) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Pending returns a copy of the pending transition, if any.
func (b *Board) Pending() (PendingTransition, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return PendingTransition{}, false
	}
	return *b.pending, true
}

// Invalidate marks the whole session stale: the pager drops late pages and
// callers discard the board. Called when the active pipeline changes.
func (b *Board) Invalidate() {
	b.pager.Invalidate()
}

// BeginDrag picks up a card. Only valid from idle.
func (b *Board) BeginDrag(oppID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.phase == PhaseAwaitingConfirmation {
		return ErrPendingTransition
	}
	if _, ok := b.store.Get(oppID); !ok {
		return ErrNotFound
	}
	b.phase = PhaseDragging
	b.dragID = oppID
	return nil
}

// CancelDrag puts the card back without any mutation.
func (b *Board) CancelDrag() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.phase == PhaseDragging {
		b.phase = PhaseIdle
		b.dragID = ""
	}
}

// Dragging returns the id of the card being carried, if any.
func (b *Board) Dragging() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.phase != PhaseDragging {
		return "", false
	}
	return b.dragID, true
}

// Drop classifies the destination stage and either patches the store
// optimistically (normal stage) or suspends the move behind a confirmation
// dialog (win/loss stage). The store is never touched on the win/loss paths
// until the dialog confirms.
func (b *Board) Drop(oppID, targetStageID string) (DropDecision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.phase == PhaseAwaitingConfirmation {
		return DropIgnored, ErrPendingTransition
	}
	b.phase = PhaseIdle
	b.dragID = ""

	opp, ok := b.store.Get(oppID)
	if !ok {
		b.log.Warn("board: drop for unknown opportunity", "id", oppID)
		return DropIgnored, ErrNotFound
	}
	target, ok := b.pipeline.StageByID(targetStageID)
	if !ok {
		b.log.Warn("board: drop onto unknown stage", "stage", targetStageID)
		return DropIgnored, ErrUnknownStage
	}
	if opp.StageID == targetStageID {
		return DropIgnored, nil
	}

	switch {
	case target.IsWinStage:
		b.pending = &PendingTransition{Opportunity: opp, TargetStageID: targetStageID}
		b.phase = PhaseAwaitingConfirmation
		return DropAwaitWin, nil
	case target.IsLossStage:
		b.pending = &PendingTransition{Opportunity: opp, TargetStageID: targetStageID}
		b.phase = PhaseAwaitingConfirmation
		return DropAwaitLoss, nil
	default:
		// Optimistic: the UI reflects the move with zero latency; the remote
		// confirmation follows via ResolveCommit.
		b.store.PatchStage(oppID, targetStageID, Patch{ClearClosed: true})
		b.phase = PhaseCommitting
		return DropCommitted, nil
	}
}

// ResolveCommit closes the optimistic-commit path. On failure the board needs
// a full authoritative reload rather than a fine-grained rollback, because
// further optimistic moves may have happened in between.
func (b *Board) ResolveCommit(err error) (reload bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.phase == PhaseCommitting {
		b.phase = PhaseIdle
	}
	if err != nil {
		b.log.Error("board: stage move rejected, scheduling reload", "err", err)
		return true
	}
	return false
}

// CancelPending discards the pending transition. The store was never mutated
// on this path, so there is nothing to compensate.
func (b *Board) CancelPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	if b.phase == PhaseAwaitingConfirmation {
		b.phase = PhaseIdle
	}
}

// applyWin commits a confirmed win into the store and clears the pending
// transition. Called by Service only after the remote move succeeded.
func (b *Board) applyWin(total float64, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return
	}
	won := now.UTC()
	b.store.PatchStage(b.pending.Opportunity.ID, b.pending.TargetStageID, Patch{
		Value: &total,
		WonAt: &won,
	})
	b.pending = nil
	b.phase = PhaseIdle
}

// applyLoss commits a confirmed loss into the store and clears the pending
// transition. Called by Service only after the remote move succeeded.
func (b *Board) applyLoss(reasonID, notes string, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return
	}
	lost := now.UTC()
	b.store.PatchStage(b.pending.Opportunity.ID, b.pending.TargetStageID, Patch{
		LostAt:       &lost,
		LossReasonID: &reasonID,
		LossNotes:    &notes,
	})
	b.pending = nil
	b.phase = PhaseIdle
}
