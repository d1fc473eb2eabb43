package tui

import "time"

// restoreDelays spaces the scroll reapply attempts after a board reload. Column
// heights settle over a few frames as pages land, so a single attempt tends to
// clamp against a still-shrunken column.
var restoreDelays = []time.Duration{0, 16 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}

// scrollKeeper tracks per-column scroll offsets across board reloads.
type scrollKeeper struct {
	offsets    map[string]int
	pending    map[string]int
	attempt    int
	revealRows int
}

func newScrollKeeper(revealRows int) *scrollKeeper {
	if revealRows < 0 {
		revealRows = 0
	}
	return &scrollKeeper{
		offsets:    map[string]int{},
		revealRows: revealRows,
	}
}

// Offset returns the saved offset for one column.
func (s *scrollKeeper) Offset(stageID string) int {
	return s.offsets[stageID]
}

// SetOffset records the current offset for one column.
func (s *scrollKeeper) SetOffset(stageID string, offset int) {
	if offset < 0 {
		offset = 0
	}
	s.offsets[stageID] = offset
}

// Snapshot captures the current offsets so they survive a full reload.
func (s *scrollKeeper) Snapshot() {
	s.pending = make(map[string]int, len(s.offsets))
	for stageID, offset := range s.offsets {
		s.pending[stageID] = offset
	}
	s.attempt = 0
}

// NextDelay returns the wait before the next restore attempt, or false when
// restore is done.
func (s *scrollKeeper) NextDelay() (time.Duration, bool) {
	if s.pending == nil || s.attempt >= len(restoreDelays) {
		return 0, false
	}
	return restoreDelays[s.attempt], true
}

// Restore reapplies pending offsets clamped against the current per-column row
// counts. Offsets get a small reveal allowance past the last loaded row so the
// load-more trigger stays visible. Returns true while more attempts remain.
func (s *scrollKeeper) Restore(rowsByStage map[string]int) bool {
	if s.pending == nil {
		return false
	}
	for stageID, want := range s.pending {
		rows := rowsByStage[stageID]
		maxOffset := rows - 1 + s.revealRows
		if maxOffset < 0 {
			maxOffset = 0
		}
		s.offsets[stageID] = clamp(want, 0, maxOffset)
	}
	s.attempt++
	if s.attempt >= len(restoreDelays) {
		s.pending = nil
		return false
	}
	return true
}

// Reset drops all saved offsets, for stale sessions and pipeline switches.
func (s *scrollKeeper) Reset() {
	s.offsets = map[string]int{}
	s.pending = nil
	s.attempt = 0
}
