package dedup

import "testing"

func TestBuildEventKey(t *testing.T) {
	facts := EventFacts{EventType: "issues", Action: "opened", IssueNumber: 123}

	t.Run("default fields", func(t *testing.T) {
		got := BuildEventKey("agent", nil, facts)
		want := "agent:event:issues:issue:123:action:opened"
		if got != want {
			t.Errorf("BuildEventKey = %q, want %q", got, want)
		}
	})

	t.Run("configured subset", func(t *testing.T) {
		fields := ParseKeyFields([]string{"event_type", "issue_number"})
		got := BuildEventKey("agent", fields, facts)
		want := "agent:event:issues:issue:123"
		if got != want {
			t.Errorf("BuildEventKey = %q, want %q", got, want)
		}
	})

	t.Run("unrecognized names become literals", func(t *testing.T) {
		fields := ParseKeyFields([]string{"issue_number", "nightly"})
		got := BuildEventKey("agent", fields, facts)
		want := "agent:issue:123:nightly"
		if got != want {
			t.Errorf("BuildEventKey = %q, want %q", got, want)
		}
	})
}

func TestBuildActionKey(t *testing.T) {
	t.Run("details serialize deterministically", func(t *testing.T) {
		a := BuildActionKey("agent", "add-comment", map[string]any{"issue_number": 5, "body": "hi"})
		b := BuildActionKey("agent", "add-comment", map[string]any{"body": "hi", "issue_number": 5})
		if a != b {
			t.Errorf("key order changed the action key: %q vs %q", a, b)
		}
	})

	t.Run("shape", func(t *testing.T) {
		got := BuildActionKey("agent", "add-label", map[string]any{"label": "bug"})
		want := `agent:action:add-label:{"label":"bug"}`
		if got != want {
			t.Errorf("BuildActionKey = %q, want %q", got, want)
		}
	})

	t.Run("nil details", func(t *testing.T) {
		got := BuildActionKey("agent", "close-issue", nil)
		want := "agent:action:close-issue:null"
		if got != want {
			t.Errorf("BuildActionKey = %q, want %q", got, want)
		}
	})
}
