package validation

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/model"
	"github.com/lucasilverentand/repo-agents/internal/output"
)

func writeEventFile(t *testing.T, payload *githubapi.EventPayload) string {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return path
}

func newTestPipeline(client githubapi.Client) *Pipeline {
	return NewPipeline(client, output.DefaultRegistry(), testLogger())
}

func checkByName(t *testing.T, result Result, name string) CheckStatus {
	t.Helper()
	for _, c := range result.Status.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not recorded; got %+v", name, result.Status.Checks)
	return CheckStatus{}
}

func TestPipelineAllowsAuthorizedActor(t *testing.T) {
	def := &model.AgentDefinition{Name: "triage", WorkflowFile: "triage.yml"}
	vctx := testContext()
	vctx.EventPath = writeEventFile(t, issuePayload("bug"))

	client := &fakeClient{permission: githubapi.PermissionWrite}
	result := newTestPipeline(client).Run(context.Background(), def, vctx)

	if !result.Allowed {
		t.Fatalf("Allowed = false, reason %q", result.Reason)
	}
	if result.Permission != "write" {
		t.Errorf("Permission = %q, want write", result.Permission)
	}
	auth := checkByName(t, result, CheckNameAuthorization)
	if !auth.Ran || auth.Outcome != OutcomeAllowed {
		t.Errorf("authorization status = %+v, want ran+allowed", auth)
	}
}

func TestPipelineShortCircuitsOnBotActor(t *testing.T) {
	def := &model.AgentDefinition{Name: "triage", WorkflowFile: "triage.yml"}
	vctx := testContext()
	vctx.Actor = "dependabot[bot]"

	// A client whose every call panics proves no network check ran.
	result := newTestPipeline(&panicClient{}).Run(context.Background(), def, vctx)

	if result.Allowed {
		t.Fatal("Allowed = true, want denied")
	}
	if result.FailingCheck != CheckNameBotActor {
		t.Errorf("FailingCheck = %q, want %q", result.FailingCheck, CheckNameBotActor)
	}
	if len(result.Status.Checks) != 1 {
		t.Errorf("Checks = %d entries, want 1 (short circuit)", len(result.Status.Checks))
	}
}

// panicClient fails the test if any gate reaches the API after a short circuit.
type panicClient struct{ githubapi.Client }

func TestPipelineTriggerLabelDeny(t *testing.T) {
	def := &model.AgentDefinition{
		Name:          "triage",
		WorkflowFile:  "triage.yml",
		TriggerLabels: []string{"approved"},
	}
	vctx := testContext()
	vctx.EventPath = writeEventFile(t, issuePayload("bug"))

	result := newTestPipeline(&panicClient{}).Run(context.Background(), def, vctx)

	if result.Allowed {
		t.Fatal("Allowed = true, want denied")
	}
	if result.FailingCheck != CheckNameTriggerLabels {
		t.Errorf("FailingCheck = %q, want %q", result.FailingCheck, CheckNameTriggerLabels)
	}
}

func TestPipelineMissingPayloadFailsTriggerGateClosed(t *testing.T) {
	def := &model.AgentDefinition{
		Name:          "triage",
		WorkflowFile:  "triage.yml",
		TriggerLabels: []string{"approved"},
	}
	vctx := testContext() // no EventPath

	result := newTestPipeline(&panicClient{}).Run(context.Background(), def, vctx)

	if result.Allowed {
		t.Fatal("Allowed = true, want denied")
	}
	trigger := checkByName(t, result, CheckNameTriggerLabels)
	if !trigger.Defaulted {
		t.Errorf("trigger status = %+v, want Defaulted (policy decided)", trigger)
	}
	if result.Reason == "" {
		t.Error("denial must carry a reason")
	}
}

func TestPipelineSkipsInapplicableGates(t *testing.T) {
	def := &model.AgentDefinition{Name: "triage", WorkflowFile: "triage.yml"}
	vctx := testContext()
	vctx.EventPath = writeEventFile(t, issuePayload("bug"))

	client := &fakeClient{permission: githubapi.PermissionAdmin}
	result := newTestPipeline(client).Run(context.Background(), def, vctx)

	if !result.Allowed {
		t.Fatalf("Allowed = false, reason %q", result.Reason)
	}
	for _, name := range []string{CheckNameMaxOpenPRs, CheckNameBlockingIssues} {
		c := checkByName(t, result, name)
		if c.Ran {
			t.Errorf("check %s ran, want skipped", name)
		}
	}
}

func TestPipelineFailOpenGatesDoNotBlock(t *testing.T) {
	def := &model.AgentDefinition{
		Name:         "impl",
		WorkflowFile: "impl.yml",
		MaxOpenPRs:   1,
		Outputs:      []string{"pull-request"},
	}
	def.PreFlight.CheckBlockingIssues = true
	vctx := testContext()
	vctx.EventPath = writeEventFile(t, issuePayload("bug"))

	client := &fakeClient{
		permission:  githubapi.PermissionWrite,
		runsErr:     errors.New("runs api down"),
		openPRsErr:  errors.New("search api down"),
		blockersErr: errors.New("dependencies api down"),
	}
	result := newTestPipeline(client).Run(context.Background(), def, vctx)

	if !result.Allowed {
		t.Fatalf("Allowed = false, reason %q; fail-open gates must not block", result.Reason)
	}
	for _, name := range []string{CheckNameRateLimit, CheckNameMaxOpenPRs, CheckNameBlockingIssues} {
		c := checkByName(t, result, name)
		if !c.Ran || !c.Defaulted {
			t.Errorf("check %s status = %+v, want ran+defaulted", name, c)
		}
	}
}

func TestPipelineBackpressureDeny(t *testing.T) {
	def := &model.AgentDefinition{
		Name:         "impl",
		WorkflowFile: "impl.yml",
		MaxOpenPRs:   1,
		Outputs:      []string{"pull-request"},
	}
	vctx := testContext()
	vctx.EventPath = writeEventFile(t, issuePayload("bug"))

	client := &fakeClient{permission: githubapi.PermissionWrite, openPRs: 1}
	result := newTestPipeline(client).Run(context.Background(), def, vctx)

	if result.Allowed {
		t.Fatal("Allowed = true, want denied")
	}
	if result.FailingCheck != CheckNameMaxOpenPRs {
		t.Errorf("FailingCheck = %q, want %q", result.FailingCheck, CheckNameMaxOpenPRs)
	}
}
