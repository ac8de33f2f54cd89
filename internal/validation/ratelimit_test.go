package validation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

func newRateLimitCheckAt(client githubapi.Client, now time.Time) *RateLimitCheck {
	c := NewRateLimitCheck(client, testLogger())
	c.now = func() time.Time { return now }
	return c
}

func TestRateLimitCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	def := &model.AgentDefinition{
		Name:             "agent",
		WorkflowFile:     "agent.yml",
		RateLimitMinutes: 10,
	}
	vctx := testContext()

	t.Run("no prior success allows", func(t *testing.T) {
		client := &fakeClient{runs: []githubapi.WorkflowRun{
			{Conclusion: "failure", CreatedAt: now.Add(-time.Minute)},
		}}
		out := newRateLimitCheckAt(client, now).Check(context.Background(), def, vctx)
		if out.Kind != OutcomeAllowed {
			t.Fatalf("Kind = %v, want allowed", out.Kind)
		}
	})

	t.Run("recent success denies with remaining minutes", func(t *testing.T) {
		client := &fakeClient{runs: []githubapi.WorkflowRun{
			successRunAt(now.Add(-3 * time.Minute)),
		}}
		out := newRateLimitCheckAt(client, now).Check(context.Background(), def, vctx)
		if out.Kind != OutcomeDenied {
			t.Fatalf("Kind = %v, want denied", out.Kind)
		}
		if !strings.Contains(out.Reason, "7m") {
			t.Errorf("Reason = %q, want 7m remaining", out.Reason)
		}
	})

	t.Run("latest success wins over older ones", func(t *testing.T) {
		client := &fakeClient{runs: []githubapi.WorkflowRun{
			successRunAt(now.Add(-time.Hour)),
			successRunAt(now.Add(-2 * time.Minute)),
			{Conclusion: "failure", CreatedAt: now.Add(-time.Minute)},
		}}
		out := newRateLimitCheckAt(client, now).Check(context.Background(), def, vctx)
		if out.Kind != OutcomeDenied {
			t.Fatalf("Kind = %v, want denied", out.Kind)
		}
	})

	t.Run("elapsed interval allows", func(t *testing.T) {
		client := &fakeClient{runs: []githubapi.WorkflowRun{
			successRunAt(now.Add(-11 * time.Minute)),
		}}
		out := newRateLimitCheckAt(client, now).Check(context.Background(), def, vctx)
		if out.Kind != OutcomeAllowed {
			t.Fatalf("Kind = %v, want allowed", out.Kind)
		}
	})

	t.Run("default interval when unset", func(t *testing.T) {
		bare := &model.AgentDefinition{Name: "agent", WorkflowFile: "agent.yml"}
		client := &fakeClient{runs: []githubapi.WorkflowRun{
			successRunAt(now.Add(-4 * time.Minute)),
		}}
		out := newRateLimitCheckAt(client, now).Check(context.Background(), bare, vctx)
		if out.Kind != OutcomeDenied {
			t.Fatalf("Kind = %v, want denied under %dm default", out.Kind, DefaultRateLimitMinutes)
		}
	})

	t.Run("lookup failure is unknown and resolves open", func(t *testing.T) {
		client := &fakeClient{runsErr: errors.New("api down")}
		out := newRateLimitCheckAt(client, now).Check(context.Background(), def, vctx)
		if out.Kind != OutcomeUnknown {
			t.Fatalf("Kind = %v, want unknown", out.Kind)
		}
		if !out.Resolve(RateLimitPolicy) {
			t.Error("unknown rate-limit outcome must resolve to allow")
		}
	})
}
