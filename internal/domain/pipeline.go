package domain

// Pipeline is a named, ordered sequence of stages through which opportunities
// progress. Stages are ordered by Position ascending.
type Pipeline struct {
	ID          string
	Name        string
	Description string
	Stages      []Stage
}

// StageByID resolves one stage of the pipeline.
func (p Pipeline) StageByID(id string) (Stage, bool) {
	for _, s := range p.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// WinStage returns the designated win stage, if the pipeline has one.
func (p Pipeline) WinStage() (Stage, bool) {
	for _, s := range p.Stages {
		if s.IsWinStage {
			return s, true
		}
	}
	return Stage{}, false
}

// LossStage returns the designated loss stage, if the pipeline has one.
func (p Pipeline) LossStage() (Stage, bool) {
	for _, s := range p.Stages {
		if s.IsLossStage {
			return s, true
		}
	}
	return Stage{}, false
}
