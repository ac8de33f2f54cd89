package validation

import (
	"context"
	"time"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

// DefaultRateLimitMinutes spaces successful runs when the agent does not set
// rate_limit_minutes.
const DefaultRateLimitMinutes = 5

// RateLimitPolicy is fail-open: a workflow-history lookup failure never blocks
// the run.
const RateLimitPolicy = FailOpen

// RateLimitCheck enforces minimum spacing between successful runs of the
// agent's workflow file.
type RateLimitCheck struct {
	client githubapi.Client
	logger *logging.Logger
	now    func() time.Time
}

func NewRateLimitCheck(client githubapi.Client, logger *logging.Logger) *RateLimitCheck {
	return &RateLimitCheck{client: client, logger: logger, now: time.Now}
}

func (c *RateLimitCheck) Check(ctx context.Context, def *model.AgentDefinition, vctx model.ValidationContext) Outcome {
	minutes := def.RateLimitMinutes
	if minutes <= 0 {
		minutes = DefaultRateLimitMinutes
	}

	runs, err := c.client.RecentWorkflowRuns(ctx, vctx.Repository, def.WorkflowFile)
	if err != nil {
		c.logger.Warnf("rate_limit run_history_failed workflow=%s err=%v", def.WorkflowFile, err)
		return Unknown(err)
	}

	var lastSuccess time.Time
	for _, run := range runs {
		if run.Conclusion != "success" {
			continue
		}
		if run.CreatedAt.After(lastSuccess) {
			lastSuccess = run.CreatedAt
		}
	}
	if lastSuccess.IsZero() {
		return Allow()
	}

	elapsed := c.now().Sub(lastSuccess)
	limit := time.Duration(minutes) * time.Minute
	if elapsed < limit {
		remaining := (limit - elapsed).Round(time.Minute)
		if remaining < time.Minute {
			remaining = time.Minute
		}
		return Deny("rate limited: last successful run %s ago, %s remaining of the %dm interval",
			elapsed.Round(time.Minute), remaining, minutes)
	}
	return Allow()
}
