package app

import (
	"io"
	"sort"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/nexocrm/funil/internal/domain"
)

// Patch carries the optional field merges applied alongside a stage rewrite.
type Patch struct {
	Value        *float64
	WonAt        *time.Time
	LostAt       *time.Time
	LossReasonID *string
	LossNotes    *string
	// ClearClosed resets won/lost marks when a deal returns to a normal stage.
	ClearClosed bool
}

// Store is the single source of truth for all currently-loaded opportunities
// across every column of one board session. It never touches the network; the
// pager and board feed it. Mutations take a mutex because bubbletea commands
// deliver network continuations from their own goroutines.
type Store struct {
	mu   sync.RWMutex
	byID map[string]domain.Opportunity
	// order preserves append order so ByStage ties break deterministically.
	order []string
	log   *charmLog.Logger
}

// NewStore constructs an empty store.
func NewStore(logger *charmLog.Logger) *Store {
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Store{
		byID: make(map[string]domain.Opportunity),
		log:  logger,
	}
}

// Append adds page-load records, dropping any id already present. Duplicate
// appends are logged, never duplicated. Returns how many records were added.
func (s *Store) Append(records []domain.Opportunity) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, rec := range records {
		if rec.ID == "" {
			s.log.Warn("store: dropping record without id")
			continue
		}
		if _, ok := s.byID[rec.ID]; ok {
			s.log.Debug("store: duplicate append dropped", "id", rec.ID)
			continue
		}
		s.byID[rec.ID] = rec
		s.order = append(s.order, rec.ID)
		added++
	}
	return added
}

// PatchStage rewrites one record's stage and merges the optional extras.
// A missing id is a logged anomaly and a no-op.
func (s *Store) PatchStage(id, stageID string, patch Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		s.log.Warn("store: patch for unknown opportunity", "id", id, "stage", stageID)
		return false
	}
	rec.StageID = stageID
	if patch.Value != nil {
		rec.Value = *patch.Value
	}
	if patch.WonAt != nil {
		rec.WonAt = patch.WonAt
		rec.LostAt = nil
	}
	if patch.LostAt != nil {
		rec.LostAt = patch.LostAt
		rec.WonAt = nil
	}
	if patch.LossReasonID != nil {
		rec.LossReasonID = *patch.LossReasonID
	}
	if patch.LossNotes != nil {
		rec.LossNotes = *patch.LossNotes
	}
	if patch.ClearClosed {
		rec.WonAt = nil
		rec.LostAt = nil
	}
	s.byID[id] = rec
	return true
}

// Replace swaps one record in place, keeping its append position. Used after
// an authoritative server response for a single opportunity.
func (s *Store) Replace(rec domain.Opportunity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[rec.ID]; !ok {
		return false
	}
	s.byID[rec.ID] = rec
	return true
}

// Get returns one record by id.
func (s *Store) Get(id string) (domain.Opportunity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	return rec, ok
}

// Len reports how many records are loaded across all stages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// CountByStage reports how many loaded records sit in one stage.
func (s *Store) CountByStage(stageID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, id := range s.order {
		if s.byID[id].StageID == stageID {
			n++
		}
	}
	return n
}

// ByStage returns a deterministically ordered view of one column: by
// DisplayOrder ascending when every member has one, otherwise by CreatedAt
// descending. Ties break on append order so the view is stable across
// re-renders triggered by unrelated column updates.
func (s *Store) ByStage(stageID string) []domain.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Opportunity, 0, 8)
	for _, id := range s.order {
		if rec := s.byID[id]; rec.StageID == stageID {
			out = append(out, rec)
		}
	}

	allOrdered := len(out) > 0
	for _, rec := range out {
		if rec.DisplayOrder == nil {
			allOrdered = false
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if allOrdered {
			return *out[i].DisplayOrder < *out[j].DisplayOrder
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// All returns every loaded record in append order.
func (s *Store) All() []domain.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Opportunity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
