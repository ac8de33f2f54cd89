package githubapi

import (
	"os"
	"path/filepath"
	"testing"
)

func writePayload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return path
}

func TestLoadEventPayload(t *testing.T) {
	path := writePayload(t, `{
		"action": "opened",
		"issue": {"number": 123, "title": "crash on start", "labels": [{"name": "bug"}, {"name": "approved"}]},
		"sender": {"login": "alice"},
		"repository": {"full_name": "acme/widgets"}
	}`)

	p, err := LoadEventPayload(path)
	if err != nil {
		t.Fatalf("LoadEventPayload: %v", err)
	}
	if p.Action != "opened" {
		t.Errorf("Action = %q, want opened", p.Action)
	}
	if p.Sender == nil || p.Sender.Login != "alice" {
		t.Errorf("Sender = %+v, want alice", p.Sender)
	}
	if p.Repository == nil || p.Repository.FullName != "acme/widgets" {
		t.Errorf("Repository = %+v, want acme/widgets", p.Repository)
	}

	n, ok := p.ItemNumber()
	if !ok || n != 123 {
		t.Errorf("ItemNumber = (%d, %v), want (123, true)", n, ok)
	}
	labels := p.ItemLabels()
	if len(labels) != 2 || labels[0] != "bug" || labels[1] != "approved" {
		t.Errorf("ItemLabels = %v, want [bug approved]", labels)
	}
}

func TestLoadEventPayloadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadEventPayload(filepath.Join(t.TempDir(), "absent.json")); err == nil {
			t.Error("LoadEventPayload on missing file succeeded")
		}
	})
	t.Run("malformed JSON", func(t *testing.T) {
		path := writePayload(t, "{not json")
		if _, err := LoadEventPayload(path); err == nil {
			t.Error("LoadEventPayload on malformed file succeeded")
		}
	})
}

func TestItemNumberPrefersIssue(t *testing.T) {
	p := &EventPayload{
		Issue:       &IssueRef{Number: 1},
		PullRequest: &PullRequestRef{Number: 2},
	}
	if n, ok := p.ItemNumber(); !ok || n != 1 {
		t.Errorf("ItemNumber = (%d, %v), want the issue number", n, ok)
	}
}

func TestItemHelpersOnEmptyPayload(t *testing.T) {
	var p *EventPayload
	if _, ok := p.ItemNumber(); ok {
		t.Error("nil payload reported an item number")
	}
	if labels := p.ItemLabels(); labels != nil {
		t.Errorf("nil payload labels = %v, want nil", labels)
	}

	empty := &EventPayload{}
	if _, ok := empty.ItemNumber(); ok {
		t.Error("empty payload reported an item number")
	}
}
