package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucasilverentand/repo-agents/internal/validation"
)

func TestRecordAppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	l, err := NewLogger(path, 0)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.Close()

	entries := []Entry{
		{AgentName: "triage", Actor: "alice", Repository: "acme/widgets", EventName: "issues", Allowed: true},
		{AgentName: "triage", Actor: "dependabot[bot]", Repository: "acme/widgets", EventName: "issues",
			Allowed: false, FailingCheck: "bot_actor", Reason: "bot actors are not allowed",
			Checks: []validation.CheckStatus{{Name: "bot_actor", Ran: true, Outcome: validation.OutcomeDenied}}},
	}
	for _, e := range entries {
		if err := l.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var decoded []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		decoded = append(decoded, e)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d entries, want 2", len(decoded))
	}
	if decoded[0].Timestamp.IsZero() {
		t.Error("zero timestamp not stamped on write")
	}
	if decoded[1].FailingCheck != "bot_actor" {
		t.Errorf("FailingCheck = %q, want bot_actor", decoded[1].FailingCheck)
	}
	if len(decoded[1].Checks) != 1 || decoded[1].Checks[0].Outcome != validation.OutcomeDenied {
		t.Errorf("Checks = %+v, want the denied bot_actor status", decoded[1].Checks)
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decisions.jsonl")

	// A threshold small enough that the second entry forces rotation.
	l, err := NewLogger(path, 200)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.Close()

	entry := Entry{AgentName: "triage", Actor: "alice", Repository: "acme/widgets", EventName: "issues", Allowed: true}
	for i := 0; i < 3; i++ {
		if err := l.Record(entry); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	archived, err := filepath.Glob(filepath.Join(dir, "archive", "decisions.*.jsonl"))
	if err != nil {
		t.Fatalf("glob archive: %v", err)
	}
	if len(archived) == 0 {
		t.Error("no archived log after exceeding the size threshold")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("active log missing after rotation: %v", err)
	}
}
