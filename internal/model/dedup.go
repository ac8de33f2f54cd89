package model

import "time"

// DedupSchemaVersion is the schema_version written to the persisted artifact.
const DedupSchemaVersion = "1.0.0"

// DeduplicationRecord is one processed event or action. Records are
// append-only; nothing ever mutates an existing record.
type DeduplicationRecord struct {
	Key         string         `json:"key"`
	Timestamp   string         `json:"timestamp"`
	AgentName   string         `json:"agent_name"`
	ActionType  string         `json:"action_type,omitempty"`
	EventType   string         `json:"event_type,omitempty"`
	IssueNumber int            `json:"issue_number,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// Time parses the record timestamp. A zero time is returned for records with
// unparseable timestamps, which places them outside every dedup window.
func (r DeduplicationRecord) Time() time.Time {
	t, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DeduplicationState is the persisted dedup artifact. The core only transforms
// it; an artifact-persistence collaborator moves it between runs.
type DeduplicationState struct {
	SchemaVersion string                `json:"schema_version"`
	Records       []DeduplicationRecord `json:"records"`
	LastCleanup   string                `json:"last_cleanup,omitempty"`
}

// NewDeduplicationState returns an empty state at the current schema version.
func NewDeduplicationState() DeduplicationState {
	return DeduplicationState{
		SchemaVersion: DedupSchemaVersion,
		Records:       []DeduplicationRecord{},
	}
}
