package validation

import (
	"context"
	"errors"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
	"github.com/lucasilverentand/repo-agents/internal/output"
)

// Check names as they appear in audit records.
const (
	CheckNameBotActor       = "bot_actor"
	CheckNameTriggerLabels  = "trigger_labels"
	CheckNameSkipLabels     = "skip_labels"
	CheckNameAuthorization  = "authorization"
	CheckNameRateLimit      = "rate_limit"
	CheckNameMaxOpenPRs     = "max_open_prs"
	CheckNameBlockingIssues = "blocking_issues"
)

// ErrNoEventPayload is the payload error used when the context names no event
// file at all.
var ErrNoEventPayload = errors.New("no event payload path in validation context")

// CheckStatus is the audit record of one gate.
type CheckStatus struct {
	Name    string      `json:"name"`
	Ran     bool        `json:"ran"`
	Outcome OutcomeKind `json:"outcome,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	// Defaulted is set when the outcome was Unknown and the gate's failure
	// policy decided the answer.
	Defaulted bool          `json:"defaulted,omitempty"`
	Policy    FailurePolicy `json:"policy,omitempty"`
}

// Status records which checks ran and how each resolved.
type Status struct {
	Checks []CheckStatus `json:"checks"`
}

// Result is the pipeline's aggregate decision.
type Result struct {
	Allowed      bool   `json:"allowed"`
	Reason       string `json:"reason,omitempty"`
	FailingCheck string `json:"failing_check,omitempty"`
	// Permission is the repository permission that granted access, when
	// authorization resolved via rule 3 or 4.
	Permission string `json:"permission,omitempty"`
	Status     Status `json:"status"`
}

// Pipeline runs the admission gates in a fixed order: the no-network checks
// first (bot guard, label gates), then the network-bound ones (authorization,
// rate limit, backpressure, dependency gate). The first deny short-circuits
// so a cheap rejection never spends API calls.
type Pipeline struct {
	auth         *AuthorizationCheck
	rateLimit    *RateLimitCheck
	backpressure *BackpressureCheck
	dependencies *DependencyCheck
	logger       *logging.Logger
}

func NewPipeline(client githubapi.Client, registry *output.Registry, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		auth:         NewAuthorizationCheck(client, logger),
		rateLimit:    NewRateLimitCheck(client, logger),
		backpressure: NewBackpressureCheck(client, registry, logger),
		dependencies: NewDependencyCheck(client, logger),
		logger:       logger,
	}
}

// Run evaluates every gate for the given agent and context. Gates run
// strictly sequentially; there is no parallelism to cancel, so the only
// suspension points are the client calls themselves.
func (p *Pipeline) Run(ctx context.Context, def *model.AgentDefinition, vctx model.ValidationContext) Result {
	var payload *githubapi.EventPayload
	payloadErr := ErrNoEventPayload
	if vctx.EventPath != "" {
		payload, payloadErr = githubapi.LoadEventPayload(vctx.EventPath)
	}

	result := Result{Allowed: true}

	type step struct {
		name   string
		policy FailurePolicy
		// applies short-circuits to a skipped audit entry without running.
		applies bool
		run     func() Outcome
	}

	steps := []step{
		{
			name: CheckNameBotActor, policy: FailClosed, applies: true,
			run: func() Outcome { return CheckBotActor(vctx.Actor, def.AllowBotTriggers) },
		},
		{
			name: CheckNameTriggerLabels, policy: TriggerLabelPolicy, applies: true,
			run: func() Outcome { return CheckTriggerLabels(def, vctx.EventName, payload, payloadErrFor(payload, payloadErr)) },
		},
		{
			name: CheckNameSkipLabels, policy: SkipLabelPolicy, applies: true,
			run: func() Outcome { return CheckSkipLabels(def, vctx.EventName, payload, payloadErrFor(payload, payloadErr)) },
		},
		{
			name: CheckNameAuthorization, policy: AuthorizationPolicy, applies: true,
			run: func() Outcome { return p.auth.Check(ctx, def, vctx) },
		},
		{
			name: CheckNameRateLimit, policy: RateLimitPolicy, applies: true,
			run: func() Outcome { return p.rateLimit.Check(ctx, def, vctx) },
		},
		{
			name: CheckNameMaxOpenPRs, policy: BackpressurePolicy, applies: p.backpressure.Applies(def),
			run: func() Outcome { return p.backpressure.Check(ctx, def, vctx) },
		},
		{
			name: CheckNameBlockingIssues, policy: DependencyPolicy, applies: payload != nil && p.dependencies.Applies(def, payload),
			run: func() Outcome { return p.dependencies.Check(ctx, vctx, payload) },
		},
	}

	for _, s := range steps {
		if !s.applies {
			result.Status.Checks = append(result.Status.Checks, CheckStatus{Name: s.name, Ran: false})
			continue
		}

		out := s.run()
		status := CheckStatus{
			Name:    s.name,
			Ran:     true,
			Outcome: out.Kind,
			Reason:  out.Reason,
			Policy:  s.policy,
		}
		if out.Kind == OutcomeUnknown {
			status.Defaulted = true
			if out.Err != nil {
				status.Reason = out.Err.Error()
			}
		}
		result.Status.Checks = append(result.Status.Checks, status)

		if s.name == CheckNameAuthorization && out.Permission != "" {
			result.Permission = out.Permission
		}

		if !out.Resolve(s.policy) {
			result.Allowed = false
			result.FailingCheck = s.name
			result.Reason = status.Reason
			if result.Reason == "" {
				result.Reason = "check " + s.name + " could not be determined (fail-closed)"
			}
			p.logger.Infof("validation denied agent=%s actor=%s check=%s reason=%s",
				def.Name, vctx.Actor, s.name, result.Reason)
			return result
		}
	}

	p.logger.Infof("validation allowed agent=%s actor=%s event=%s", def.Name, vctx.Actor, vctx.EventName)
	return result
}

// payloadErrFor hides the missing-payload sentinel when a payload was loaded.
func payloadErrFor(payload *githubapi.EventPayload, err error) error {
	if payload != nil {
		return nil
	}
	return err
}
