package domain

import "strings"

// Stage is one step of a pipeline. At most one stage of a pipeline carries the
// win flag and at most one the loss flag; a stage is never both.
type Stage struct {
	ID          string
	PipelineID  string
	Name        string
	Color       string
	Position    int
	IsWinStage  bool
	IsLossStage bool
}

// NewStage constructs a validated stage value.
func NewStage(id, pipelineID, name, color string, position int) (Stage, error) {
	id = strings.TrimSpace(id)
	pipelineID = strings.TrimSpace(pipelineID)
	name = strings.TrimSpace(name)
	if id == "" || pipelineID == "" {
		return Stage{}, ErrInvalidID
	}
	if name == "" {
		return Stage{}, ErrInvalidName
	}
	if position < 0 {
		return Stage{}, ErrInvalidStage
	}
	return Stage{
		ID:         id,
		PipelineID: pipelineID,
		Name:       name,
		Color:      color,
		Position:   position,
	}, nil
}

// Terminal reports whether the stage closes a deal either way.
func (s Stage) Terminal() bool {
	return s.IsWinStage || s.IsLossStage
}
