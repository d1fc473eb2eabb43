package app

import (
	"strings"

	"github.com/google/uuid"
)

// Session identifies one board load: a pipeline plus the search filter active
// when it was loaded. It is an immutable value replaced wholesale on pipeline
// switch or filter change; every piece of board state (store, pager, board) is
// keyed to it, and responses carrying a stale session id are discarded.
type Session struct {
	ID         string
	PipelineID string
	Search     string
}

// NewSession mints a session for one pipeline selection.
func NewSession(pipelineID, search string) Session {
	return Session{
		ID:         uuid.NewString(),
		PipelineID: pipelineID,
		Search:     strings.TrimSpace(search),
	}
}
