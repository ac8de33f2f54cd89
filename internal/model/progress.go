package model

import "fmt"

// Stage is one phase of an agent run as reported to the progress comment.
type Stage string

const (
	StageValidation Stage = "validation"
	StageContext    Stage = "context"
	StageAgent      Stage = "agent"
	StageOutputs    Stage = "outputs"
	StageComplete   Stage = "complete"
	// StageFailed is a sink reachable from any stage; it never appears in
	// StageOrder.
	StageFailed Stage = "failed"
)

// StageOrder is the fixed progression of a run. failed is excluded: it is a
// currentStage value, not a step.
var StageOrder = []Stage{
	StageValidation,
	StageContext,
	StageAgent,
	StageOutputs,
	StageComplete,
}

// StageStatus is the per-stage status shown in the progress table.
type StageStatus string

const (
	StageStatusPending StageStatus = "pending"
	StageStatusRunning StageStatus = "running"
	StageStatusSuccess StageStatus = "success"
	StageStatusFailed  StageStatus = "failed"
	StageStatusSkipped StageStatus = "skipped"
)

var terminalStageStatuses = map[StageStatus]bool{
	StageStatusSuccess: true,
	StageStatusFailed:  true,
	StageStatusSkipped: true,
}

// pending may jump straight to success: validation is marked success at
// comment creation, after the pipeline has already proven it.
var validStageStatusTransitions = map[StageStatus]map[StageStatus]bool{
	StageStatusPending: {
		StageStatusRunning: true,
		StageStatusSuccess: true,
		StageStatusFailed:  true,
		StageStatusSkipped: true,
	},
	StageStatusRunning: {
		StageStatusSuccess: true,
		StageStatusFailed:  true,
	},
}

func IsStageStatusTerminal(s StageStatus) bool {
	return terminalStageStatuses[s]
}

func ValidateStageStatusTransition(from, to StageStatus) error {
	if IsStageStatusTerminal(from) {
		return fmt.Errorf("cannot transition from terminal stage status %q", from)
	}
	allowed, ok := validStageStatusTransitions[from]
	if !ok {
		return fmt.Errorf("unknown stage status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid stage status transition: %q → %q", from, to)
	}
	return nil
}

// NextStage returns the stage following s in StageOrder. ok is false when s is
// the last stage or not part of the order.
func NextStage(s Stage) (Stage, bool) {
	for i, st := range StageOrder {
		if st == s && i+1 < len(StageOrder) {
			return StageOrder[i+1], true
		}
	}
	return "", false
}

func IsValidStage(s Stage) bool {
	if s == StageFailed {
		return true
	}
	for _, st := range StageOrder {
		if st == s {
			return true
		}
	}
	return false
}
