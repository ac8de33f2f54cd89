package validation

import (
	"errors"
	"testing"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

func issuePayload(labels ...string) *githubapi.EventPayload {
	ls := make([]githubapi.Label, len(labels))
	for i, l := range labels {
		ls[i] = githubapi.Label{Name: l}
	}
	return &githubapi.EventPayload{Issue: &githubapi.IssueRef{Number: 1, Labels: ls}}
}

func prPayload(labels ...string) *githubapi.EventPayload {
	ls := make([]githubapi.Label, len(labels))
	for i, l := range labels {
		ls[i] = githubapi.Label{Name: l}
	}
	return &githubapi.EventPayload{PullRequest: &githubapi.PullRequestRef{Number: 2, Labels: ls}}
}

func TestCheckTriggerLabels(t *testing.T) {
	def := &model.AgentDefinition{
		Name:          "agent",
		TriggerLabels: []string{"approved", "agent-assigned"},
	}

	t.Run("no match is denied", func(t *testing.T) {
		out := CheckTriggerLabels(def, "issues", issuePayload("bug"), nil)
		if out.Kind != OutcomeDenied {
			t.Fatalf("Kind = %v, want denied", out.Kind)
		}
	})

	t.Run("one match suffices (OR, not AND)", func(t *testing.T) {
		out := CheckTriggerLabels(def, "issues", issuePayload("bug", "approved"), nil)
		if out.Kind != OutcomeAllowed {
			t.Fatalf("Kind = %v, want allowed", out.Kind)
		}
		if len(out.MatchedLabels) != 1 || out.MatchedLabels[0] != "approved" {
			t.Errorf("MatchedLabels = %v, want [approved]", out.MatchedLabels)
		}
	})

	t.Run("bypassed for non-issues events", func(t *testing.T) {
		for _, event := range []string{"pull_request", "schedule", "workflow_dispatch"} {
			out := CheckTriggerLabels(def, event, nil, errors.New("unread"))
			if out.Kind != OutcomeAllowed {
				t.Errorf("event %s: Kind = %v, want allowed", event, out.Kind)
			}
		}
	})

	t.Run("unreadable payload is unknown (fail-closed policy)", func(t *testing.T) {
		out := CheckTriggerLabels(def, "issues", nil, errors.New("no payload"))
		if out.Kind != OutcomeUnknown {
			t.Fatalf("Kind = %v, want unknown", out.Kind)
		}
		if out.Resolve(TriggerLabelPolicy) {
			t.Error("unknown trigger-label outcome must resolve to deny")
		}
	})

	t.Run("no configured labels always passes", func(t *testing.T) {
		bare := &model.AgentDefinition{Name: "agent"}
		out := CheckTriggerLabels(bare, "issues", nil, errors.New("no payload"))
		if out.Kind != OutcomeAllowed {
			t.Errorf("Kind = %v, want allowed", out.Kind)
		}
	})
}

func TestCheckSkipLabels(t *testing.T) {
	def := &model.AgentDefinition{
		Name:       "agent",
		SkipLabels: []string{"agent-failure"},
	}

	t.Run("matching skip label on PR denies with audit labels", func(t *testing.T) {
		out := CheckSkipLabels(def, "pull_request", prPayload("agent-failure"), nil)
		if out.Kind != OutcomeDenied {
			t.Fatalf("Kind = %v, want denied", out.Kind)
		}
		if len(out.MatchedLabels) != 1 || out.MatchedLabels[0] != "agent-failure" {
			t.Errorf("MatchedLabels = %v, want [agent-failure]", out.MatchedLabels)
		}
	})

	t.Run("applies to issues too", func(t *testing.T) {
		out := CheckSkipLabels(def, "issues", issuePayload("agent-failure"), nil)
		if out.Kind != OutcomeDenied {
			t.Fatalf("Kind = %v, want denied", out.Kind)
		}
	})

	t.Run("no skip label passes", func(t *testing.T) {
		out := CheckSkipLabels(def, "pull_request", prPayload("bug"), nil)
		if out.Kind != OutcomeAllowed {
			t.Fatalf("Kind = %v, want allowed", out.Kind)
		}
	})

	t.Run("bypassed for other events", func(t *testing.T) {
		out := CheckSkipLabels(def, "schedule", nil, errors.New("unread"))
		if out.Kind != OutcomeAllowed {
			t.Fatalf("Kind = %v, want allowed", out.Kind)
		}
	})

	t.Run("unreadable payload is unknown (fail-open policy)", func(t *testing.T) {
		out := CheckSkipLabels(def, "issues", nil, errors.New("no payload"))
		if out.Kind != OutcomeUnknown {
			t.Fatalf("Kind = %v, want unknown", out.Kind)
		}
		if !out.Resolve(SkipLabelPolicy) {
			t.Error("unknown skip-label outcome must resolve to allow")
		}
	})
}
