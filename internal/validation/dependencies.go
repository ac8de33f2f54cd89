package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

// DependencyPolicy is fail-open: if the blocked-by list cannot be fetched the
// run proceeds.
const DependencyPolicy = FailOpen

// DependencyCheck blocks the run while the triggering issue has open
// blocked-by dependencies. It only applies when pre_flight.check_blocking_issues
// is set and the event carries an issue number.
type DependencyCheck struct {
	client githubapi.Client
	logger *logging.Logger
}

func NewDependencyCheck(client githubapi.Client, logger *logging.Logger) *DependencyCheck {
	return &DependencyCheck{client: client, logger: logger}
}

// Applies reports whether the gate is configured and the event is issue-bound.
func (c *DependencyCheck) Applies(def *model.AgentDefinition, payload *githubapi.EventPayload) bool {
	if !def.PreFlight.CheckBlockingIssues {
		return false
	}
	_, ok := payload.ItemNumber()
	return ok
}

func (c *DependencyCheck) Check(ctx context.Context, vctx model.ValidationContext, payload *githubapi.EventPayload) Outcome {
	number, ok := payload.ItemNumber()
	if !ok {
		return Allow()
	}

	blockers, err := c.client.BlockedByIssues(ctx, vctx.Repository, number)
	if err != nil {
		c.logger.Warnf("blocking_issues lookup_failed repo=%s issue=%d err=%v", vctx.Repository, number, err)
		return Unknown(err)
	}

	var open []string
	for _, b := range blockers {
		if b.State == "open" {
			open = append(open, fmt.Sprintf("#%d (%s)", b.Number, b.Title))
		}
	}
	if len(open) > 0 {
		return Deny("issue #%d is blocked by open issue(s): %s", number, strings.Join(open, ", "))
	}
	return Allow()
}
