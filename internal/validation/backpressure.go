package validation

import (
	"context"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
	"github.com/lucasilverentand/repo-agents/internal/output"
)

// InProgressLabel marks PRs opened by agents and still in flight. The open-PR
// cap counts PRs carrying it.
const InProgressLabel = "implementation-in-progress"

// BackpressurePolicy is fail-open: a search failure never blocks the run.
const BackpressurePolicy = FailOpen

// BackpressureCheck caps concurrently open, agent-created PRs. It only
// applies when max_open_prs is set and the agent's output set includes a
// PR-creating handler. A denial here is silent by design: the event fires
// again once a PR closes, so no comment is posted.
type BackpressureCheck struct {
	client   githubapi.Client
	registry *output.Registry
	logger   *logging.Logger
}

func NewBackpressureCheck(client githubapi.Client, registry *output.Registry, logger *logging.Logger) *BackpressureCheck {
	return &BackpressureCheck{client: client, registry: registry, logger: logger}
}

// Applies reports whether the gate is configured for this agent.
func (c *BackpressureCheck) Applies(def *model.AgentDefinition) bool {
	return def.MaxOpenPRs > 0 && c.registry.CreatesPullRequest(def.Outputs)
}

func (c *BackpressureCheck) Check(ctx context.Context, def *model.AgentDefinition, vctx model.ValidationContext) Outcome {
	open, err := c.client.CountOpenPRs(ctx, vctx.Repository, InProgressLabel)
	if err != nil {
		c.logger.Warnf("backpressure pr_count_failed repo=%s err=%v", vctx.Repository, err)
		return Unknown(err)
	}
	if open >= def.MaxOpenPRs {
		return Deny("%d agent PR(s) open (limit %d); retried after one closes", open, def.MaxOpenPRs)
	}
	return Allow()
}
