package validation

import (
	"fmt"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

// Label gating is OR-based on both sides: one matching trigger label admits
// the run, one matching skip label rejects it.
//
// The two checks deliberately differ when the event payload is unreadable:
// trigger labels fail closed, skip labels fail open. The asymmetry is
// inherited behavior; both paths surface as OutcomeUnknown with different
// policies so the difference stays visible rather than buried in error
// handling.

// TriggerLabelPolicy resolves unreadable payloads to deny.
const TriggerLabelPolicy = FailClosed

// SkipLabelPolicy resolves unreadable payloads to allow.
const SkipLabelPolicy = FailOpen

// CheckTriggerLabels requires at least one configured trigger label on the
// issue. Only issues events are gated; every other event bypasses the check.
func CheckTriggerLabels(def *model.AgentDefinition, eventName string, payload *githubapi.EventPayload, payloadErr error) Outcome {
	if len(def.TriggerLabels) == 0 {
		return Allow()
	}
	if eventName != "issues" {
		return Allow()
	}
	if payloadErr != nil {
		return Unknown(fmt.Errorf("trigger labels: %w", payloadErr))
	}

	present := payload.ItemLabels()
	matched := intersectLabels(present, def.TriggerLabels)
	if len(matched) == 0 {
		return Deny("issue has none of the trigger labels %v (present: %v)", def.TriggerLabels, present)
	}
	out := Allow()
	out.MatchedLabels = matched
	return out
}

// CheckSkipLabels rejects the run when the issue or pull request carries any
// configured skip label. Applies to issues and pull_request events.
func CheckSkipLabels(def *model.AgentDefinition, eventName string, payload *githubapi.EventPayload, payloadErr error) Outcome {
	if len(def.SkipLabels) == 0 {
		return Allow()
	}
	if eventName != "issues" && eventName != "pull_request" {
		return Allow()
	}
	if payloadErr != nil {
		return Unknown(fmt.Errorf("skip labels: %w", payloadErr))
	}

	matched := intersectLabels(payload.ItemLabels(), def.SkipLabels)
	if len(matched) > 0 {
		out := Deny("item carries skip label(s) %v", matched)
		out.MatchedLabels = matched
		return out
	}
	return Allow()
}

func intersectLabels(present, configured []string) []string {
	set := make(map[string]bool, len(present))
	for _, l := range present {
		set[l] = true
	}
	var matched []string
	for _, l := range configured {
		if set[l] {
			matched = append(matched, l)
		}
	}
	return matched
}
