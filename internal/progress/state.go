// Package progress tracks the stage lifecycle of an agent run and mirrors it
// into a GitHub comment that evolves as the run advances.
package progress

import (
	"github.com/lucasilverentand/repo-agents/internal/model"
)

// State is the progress-comment state for one run. Update operations return a
// new State; existing values are never mutated, so every transition can be
// rendered and synced independently.
type State struct {
	AgentName string
	RunID     int64
	RunURL    string

	Stages       map[model.Stage]model.StageStatus
	CurrentStage model.Stage
	Error        string
	FinalComment string
}

// NewState builds the initial progress state. Validation is marked success
// up front: a comment only exists once the pipeline has already passed. The
// context stage is skipped when the agent gathers no repository context.
func NewState(agentName string, runID int64, runURL string, hasContext bool) *State {
	stages := map[model.Stage]model.StageStatus{
		model.StageValidation: model.StageStatusSuccess,
		model.StageContext:    model.StageStatusPending,
		model.StageAgent:      model.StageStatusPending,
		model.StageOutputs:    model.StageStatusPending,
		model.StageComplete:   model.StageStatusPending,
	}
	if !hasContext {
		stages[model.StageContext] = model.StageStatusSkipped
	}

	s := &State{
		AgentName: agentName,
		RunID:     runID,
		RunURL:    runURL,
		Stages:    stages,
	}
	s.CurrentStage = firstActionableStage(stages)
	return s
}

// firstActionableStage returns the earliest stage that is neither finished
// nor skipped.
func firstActionableStage(stages map[model.Stage]model.StageStatus) model.Stage {
	for _, st := range model.StageOrder {
		status := stages[st]
		if status == model.StageStatusSkipped || status == model.StageStatusSuccess {
			continue
		}
		return st
	}
	return model.StageComplete
}

// Update returns a copy of s with the given stage transition applied.
//
//	running → the stage becomes current
//	success → currentStage advances past any skipped stages
//	failed  → currentStage becomes the failed sink and the error is recorded
func (s *State) Update(stage model.Stage, status model.StageStatus, errMsg string) *State {
	next := s.clone()
	next.Stages[stage] = status

	switch status {
	case model.StageStatusRunning:
		next.CurrentStage = stage
	case model.StageStatusSuccess:
		next.CurrentStage = advanceFrom(next.Stages, stage)
	case model.StageStatusFailed:
		next.CurrentStage = model.StageFailed
		next.Error = errMsg
	}
	return next
}

// advanceFrom walks StageOrder from the stage after the one just completed,
// passing over skipped stages.
func advanceFrom(stages map[model.Stage]model.StageStatus, completed model.Stage) model.Stage {
	stage := completed
	for {
		next, ok := model.NextStage(stage)
		if !ok {
			return model.StageComplete
		}
		if stages[next] != model.StageStatusSkipped {
			return next
		}
		stage = next
	}
}

// SetFinalComment replaces the stage table with the agent's closing text.
// Rendering thereafter shows only the final comment.
func (s *State) SetFinalComment(text string) *State {
	next := s.clone()
	next.FinalComment = text
	next.CurrentStage = model.StageComplete
	return next
}

func (s *State) clone() *State {
	stages := make(map[model.Stage]model.StageStatus, len(s.Stages))
	for k, v := range s.Stages {
		stages[k] = v
	}
	clone := *s
	clone.Stages = stages
	return &clone
}
