package dedup

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeyFieldKind enumerates what a configured key field contributes to the
// event dedup key. Anything not recognized is a literal token, so agents can
// pin custom discriminators into the key.
type KeyFieldKind int

const (
	KeyFieldEventType KeyFieldKind = iota
	KeyFieldIssueNumber
	KeyFieldAction
	KeyFieldLiteral
)

// KeyField is one parsed key-field specifier.
type KeyField struct {
	Kind    KeyFieldKind
	Literal string
}

// DefaultKeyFields is the key composition used when the agent configures
// none: [event_type, issue_number, action].
var DefaultKeyFields = []KeyField{
	{Kind: KeyFieldEventType},
	{Kind: KeyFieldIssueNumber},
	{Kind: KeyFieldAction},
}

// ParseKeyFields maps configured field names onto key-field kinds.
func ParseKeyFields(names []string) []KeyField {
	if len(names) == 0 {
		return DefaultKeyFields
	}
	fields := make([]KeyField, 0, len(names))
	for _, name := range names {
		switch name {
		case "event_type":
			fields = append(fields, KeyField{Kind: KeyFieldEventType})
		case "issue_number":
			fields = append(fields, KeyField{Kind: KeyFieldIssueNumber})
		case "action":
			fields = append(fields, KeyField{Kind: KeyFieldAction})
		default:
			fields = append(fields, KeyField{Kind: KeyFieldLiteral, Literal: name})
		}
	}
	return fields
}

// EventFacts are the per-event inputs the key builder draws from.
type EventFacts struct {
	EventType   string
	Action      string
	IssueNumber int
}

// BuildEventKey composes the event dedup key, prefixed by the agent name.
// Default fields for issue #123 opened produce
// "agent:event:issues:issue:123:action:opened".
func BuildEventKey(agentName string, fields []KeyField, facts EventFacts) string {
	if len(fields) == 0 {
		fields = DefaultKeyFields
	}
	parts := []string{agentName}
	for _, f := range fields {
		switch f.Kind {
		case KeyFieldEventType:
			parts = append(parts, "event:"+facts.EventType)
		case KeyFieldIssueNumber:
			parts = append(parts, fmt.Sprintf("issue:%d", facts.IssueNumber))
		case KeyFieldAction:
			parts = append(parts, "action:"+facts.Action)
		case KeyFieldLiteral:
			parts = append(parts, f.Literal)
		}
	}
	return strings.Join(parts, ":")
}

// BuildActionKey composes the action dedup key:
// agentName:action:<type>:<JSON(details)>. Go's JSON encoder sorts map keys,
// so equal details always serialize identically.
func BuildActionKey(agentName, actionType string, details map[string]any) string {
	serialized, err := json.Marshal(details)
	if err != nil {
		// Details came from decoded JSON; re-encoding cannot realistically
		// fail, but an empty object keeps the key stable if it does.
		serialized = []byte("{}")
	}
	return fmt.Sprintf("%s:action:%s:%s", agentName, actionType, serialized)
}
