package dedup

import (
	"fmt"
	"time"

	"github.com/lucasilverentand/repo-agents/internal/model"
)

// Decision is the result of a dedup lookup.
type Decision struct {
	Duplicate bool
	Reason    string
	// Record is the prior record that matched, when Duplicate is true.
	Record *model.DeduplicationRecord
}

func notDuplicate() Decision {
	return Decision{}
}

func duplicateOf(r model.DeduplicationRecord) Decision {
	return Decision{
		Duplicate: true,
		Reason:    fmt.Sprintf("already processed at %s", r.Timestamp),
		Record:    &r,
	}
}

// CheckEvent looks for a prior record with the same composite key and event
// type inside the configured window. Event dedup is off unless explicitly
// enabled.
func CheckEvent(state model.DeduplicationState, cfg model.EventDedupConfig, agentName string, facts EventFacts, now time.Time) Decision {
	if !cfg.Enabled {
		return notDuplicate()
	}

	key := BuildEventKey(agentName, ParseKeyFields(cfg.KeyFields), facts)
	window := DefaultWindow
	if cfg.Window != "" {
		window = ParseTimeWindow(cfg.Window)
	}

	for _, r := range state.Records {
		if r.Key != key || r.EventType != facts.EventType {
			continue
		}
		if inWindow(r, now, window) {
			return duplicateOf(r)
		}
	}
	return notDuplicate()
}

// CheckAction looks for a prior record of the same action inside the window.
// Config may be global or overridden per action type. match "exact" compares
// the serialized details; match "similar" compares only the target issue/PR
// number so differently-detailed actions against the same item still count as
// duplicates.
func CheckAction(state model.DeduplicationState, cfg model.ActionDedupConfig, agentName, actionType string, details map[string]any, now time.Time) Decision {
	enabled, window, match := resolveActionConfig(cfg, actionType)
	if !enabled {
		return notDuplicate()
	}

	key := BuildActionKey(agentName, actionType, details)

	for _, r := range state.Records {
		if r.AgentName != agentName || r.ActionType != actionType {
			continue
		}
		if !inWindow(r, now, window) {
			continue
		}
		switch match {
		case model.MatchSimilar:
			if target, ok := actionTarget(details); ok {
				if prior, ok := actionTarget(r.Details); ok && prior == target {
					return duplicateOf(r)
				}
			}
		default: // exact
			if r.Key == key {
				return duplicateOf(r)
			}
		}
	}
	return notDuplicate()
}

func resolveActionConfig(cfg model.ActionDedupConfig, actionType string) (enabled bool, window time.Duration, match model.MatchMode) {
	enabled = cfg.Enabled
	window = DefaultWindow
	if cfg.Window != "" {
		window = ParseTimeWindow(cfg.Window)
	}
	match = cfg.Match
	if match == "" {
		match = model.MatchExact
	}

	if ov, ok := cfg.PerType[actionType]; ok {
		if ov.Enabled != nil {
			enabled = *ov.Enabled
		}
		if ov.Window != "" {
			window = ParseTimeWindow(ov.Window)
		}
		if ov.Match != "" {
			match = ov.Match
		}
	}
	return enabled, window, match
}

// actionTarget extracts the issue or PR number an action aims at.
func actionTarget(details map[string]any) (int, bool) {
	for _, field := range []string{"issue_number", "pr_number"} {
		switch v := details[field].(type) {
		case int:
			return v, true
		case float64: // decoded JSON numbers
			return int(v), true
		}
	}
	return 0, false
}

func inWindow(r model.DeduplicationRecord, now time.Time, window time.Duration) bool {
	ts := r.Time()
	if ts.IsZero() {
		return false
	}
	return now.Sub(ts) < window
}

// NewEventRecord builds the record persisted after an event is processed.
func NewEventRecord(agentName string, cfg model.EventDedupConfig, facts EventFacts, now time.Time) model.DeduplicationRecord {
	return model.DeduplicationRecord{
		Key:         BuildEventKey(agentName, ParseKeyFields(cfg.KeyFields), facts),
		Timestamp:   now.UTC().Format(time.RFC3339),
		AgentName:   agentName,
		EventType:   facts.EventType,
		IssueNumber: facts.IssueNumber,
	}
}

// NewActionRecord builds the record persisted after an action is applied.
func NewActionRecord(agentName, actionType string, details map[string]any, now time.Time) model.DeduplicationRecord {
	rec := model.DeduplicationRecord{
		Key:        BuildActionKey(agentName, actionType, details),
		Timestamp:  now.UTC().Format(time.RFC3339),
		AgentName:  agentName,
		ActionType: actionType,
		Details:    details,
	}
	if target, ok := actionTarget(details); ok {
		rec.IssueNumber = target
	}
	return rec
}

// Cleanup drops records older than maxAge and stamps last_cleanup. maxAge <= 0
// selects DefaultMaxRecordAge. The input state is not mutated.
func Cleanup(state model.DeduplicationState, maxAge time.Duration, now time.Time) model.DeduplicationState {
	if maxAge <= 0 {
		maxAge = DefaultMaxRecordAge
	}
	kept := make([]model.DeduplicationRecord, 0, len(state.Records))
	for _, r := range state.Records {
		ts := r.Time()
		if !ts.IsZero() && now.Sub(ts) <= maxAge {
			kept = append(kept, r)
		}
	}
	out := state
	out.Records = kept
	out.LastCleanup = now.UTC().Format(time.RFC3339)
	return out
}

// Append returns state with the record added. Records are append-only.
func Append(state model.DeduplicationState, rec model.DeduplicationRecord) model.DeduplicationState {
	out := state
	out.Records = append(append([]model.DeduplicationRecord{}, state.Records...), rec)
	if out.SchemaVersion == "" {
		out.SchemaVersion = model.DedupSchemaVersion
	}
	return out
}
