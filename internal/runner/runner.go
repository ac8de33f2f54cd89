// Package runner drives one agent run end to end: admission pipeline, event
// deduplication, progress reporting, and dedup-record persistence. Agent
// execution itself stays behind the AgentExecutor interface.
package runner

import (
	"context"
	"time"

	"github.com/lucasilverentand/repo-agents/internal/audit"
	"github.com/lucasilverentand/repo-agents/internal/dedup"
	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
	"github.com/lucasilverentand/repo-agents/internal/output"
	"github.com/lucasilverentand/repo-agents/internal/progress"
	"github.com/lucasilverentand/repo-agents/internal/statefile"
	"github.com/lucasilverentand/repo-agents/internal/validation"
)

// cleanupInterval decides when a run also compacts the dedup state.
const cleanupInterval = 24 * time.Hour

// AgentExecutor runs the agent once admission has passed. The summary, when
// non-empty, replaces the progress table as the final comment.
type AgentExecutor interface {
	Execute(ctx context.Context, def *model.AgentDefinition, payload *githubapi.EventPayload) (summary string, err error)
}

// ContextGatherer is optionally implemented by executors that collect
// repository context before the agent stage.
type ContextGatherer interface {
	GatherContext(ctx context.Context, def *model.AgentDefinition, payload *githubapi.EventPayload) error
}

// NoopExecutor satisfies AgentExecutor without doing anything; the validate
// subcommand uses it to exercise the full lifecycle.
type NoopExecutor struct{}

func (NoopExecutor) Execute(context.Context, *model.AgentDefinition, *githubapi.EventPayload) (string, error) {
	return "", nil
}

// Options wires a Runner. Client and Logger are required; everything else has
// a usable default.
type Options struct {
	Client   githubapi.Client
	Registry *output.Registry
	Logger   *logging.Logger
	Executor AgentExecutor
	// StatePath locates the dedup artifact; empty disables dedup entirely.
	StatePath string
	// AuditLog, when set, receives one entry per run.
	AuditLog *audit.Logger
}

type Runner struct {
	client   githubapi.Client
	registry *output.Registry
	pipeline *validation.Pipeline
	executor AgentExecutor
	logger   *logging.Logger

	statePath string
	auditLog  *audit.Logger
	now       func() time.Time
}

func New(opts Options) *Runner {
	registry := opts.Registry
	if registry == nil {
		registry = output.DefaultRegistry()
	}
	executor := opts.Executor
	if executor == nil {
		executor = NoopExecutor{}
	}
	return &Runner{
		client:    opts.Client,
		registry:  registry,
		pipeline:  validation.NewPipeline(opts.Client, registry, opts.Logger),
		executor:  executor,
		logger:    opts.Logger,
		statePath: opts.StatePath,
		auditLog:  opts.AuditLog,
		now:       time.Now,
	}
}

// Report summarizes one run for the caller.
type Report struct {
	Result       validation.Result
	Deduplicated bool
	DedupReason  string
	Executed     bool
	Summary      string
	CommentID    int64
}

// Run validates and, if admitted, executes the agent. A denial or a suppressed
// duplicate is not an error; only execution and persistence failures are.
func (r *Runner) Run(ctx context.Context, def *model.AgentDefinition, vctx model.ValidationContext) (*Report, error) {
	report := &Report{}

	report.Result = r.pipeline.Run(ctx, def, vctx)
	defer r.writeAudit(def, vctx, report)

	if !report.Result.Allowed {
		return report, nil
	}

	var payload *githubapi.EventPayload
	if vctx.EventPath != "" {
		var err error
		payload, err = githubapi.LoadEventPayload(vctx.EventPath)
		if err != nil {
			// The pipeline already applied its payload policies; from here a
			// missing payload only means no labels/issue number to work with.
			r.logger.Warnf("run payload_unreadable agent=%s path=%s err=%v", def.Name, vctx.EventPath, err)
		}
	}

	facts := eventFacts(vctx, payload)

	var state model.DeduplicationState
	if r.statePath != "" {
		var err error
		state, err = statefile.Load(r.statePath, r.logger)
		if err != nil {
			// Dedup fails open: an unreadable state never blocks the run.
			r.logger.Warnf("run state_load_failed path=%s err=%v", r.statePath, err)
			state = model.NewDeduplicationState()
		}
		if d := dedup.CheckEvent(state, def.Deduplication.Events, def.Name, facts, r.now()); d.Duplicate {
			report.Deduplicated = true
			report.DedupReason = d.Reason
			r.logger.Infof("run deduplicated agent=%s key=%s reason=%s", def.Name, d.Record.Key, d.Reason)
			return report, nil
		}
	}

	summary, execErr := r.executeWithProgress(ctx, def, vctx, payload, report)
	if execErr != nil {
		return report, execErr
	}
	report.Executed = true
	report.Summary = summary

	if r.statePath != "" {
		state = dedup.Append(state, dedup.NewEventRecord(def.Name, def.Deduplication.Events, facts, r.now()))
		if cleanupDue(state, r.now()) {
			state = dedup.Cleanup(state, dedup.DefaultMaxRecordAge, r.now())
		}
		if err := statefile.Save(r.statePath, state); err != nil {
			return report, err
		}
	}
	return report, nil
}

// executeWithProgress drives the stage lifecycle, mirroring each transition
// into the progress comment when the event has an issue to comment on.
func (r *Runner) executeWithProgress(ctx context.Context, def *model.AgentDefinition, vctx model.ValidationContext, payload *githubapi.EventPayload, report *Report) (string, error) {
	gatherer, hasContext := r.executor.(ContextGatherer)

	st := progress.NewState(def.Name, vctx.RunID, vctx.RunURL(), hasContext)

	issueNumber, reporting := payload.ItemNumber()
	sync := func() {
		if !reporting {
			return
		}
		id, err := progress.Sync(ctx, r.client, vctx.Repository, issueNumber, st)
		if err != nil {
			// Reporting failures must not fail the run.
			r.logger.Warnf("progress sync_failed agent=%s issue=%d err=%v", def.Name, issueNumber, err)
			return
		}
		report.CommentID = id
	}
	sync()

	if hasContext {
		st = st.Update(model.StageContext, model.StageStatusRunning, "")
		sync()
		if err := gatherer.GatherContext(ctx, def, payload); err != nil {
			st = st.Update(model.StageContext, model.StageStatusFailed, err.Error())
			sync()
			return "", err
		}
		st = st.Update(model.StageContext, model.StageStatusSuccess, "")
		sync()
	}

	st = st.Update(model.StageAgent, model.StageStatusRunning, "")
	sync()
	summary, err := r.executor.Execute(ctx, def, payload)
	if err != nil {
		st = st.Update(model.StageAgent, model.StageStatusFailed, err.Error())
		sync()
		return "", err
	}
	st = st.Update(model.StageAgent, model.StageStatusSuccess, "")

	st = st.Update(model.StageOutputs, model.StageStatusRunning, "")
	sync()
	st = st.Update(model.StageOutputs, model.StageStatusSuccess, "")

	st = st.Update(model.StageComplete, model.StageStatusSuccess, "")
	if summary != "" {
		st = st.SetFinalComment(summary)
	}
	sync()

	return summary, nil
}

func (r *Runner) writeAudit(def *model.AgentDefinition, vctx model.ValidationContext, report *Report) {
	if r.auditLog == nil {
		return
	}
	entry := audit.Entry{
		AgentName:    def.Name,
		Actor:        vctx.Actor,
		Repository:   vctx.Repository.String(),
		EventName:    vctx.EventName,
		RunID:        vctx.RunID,
		Allowed:      report.Result.Allowed && !report.Deduplicated,
		Reason:       report.Result.Reason,
		FailingCheck: report.Result.FailingCheck,
		Checks:       report.Result.Status.Checks,
	}
	if report.Deduplicated {
		entry.Reason = report.DedupReason
	}
	if err := r.auditLog.Record(entry); err != nil {
		r.logger.Warnf("audit record_failed agent=%s err=%v", def.Name, err)
	}
}

func eventFacts(vctx model.ValidationContext, payload *githubapi.EventPayload) dedup.EventFacts {
	facts := dedup.EventFacts{EventType: vctx.EventName}
	if payload != nil {
		facts.Action = payload.Action
		if n, ok := payload.ItemNumber(); ok {
			facts.IssueNumber = n
		}
	}
	return facts
}

func cleanupDue(state model.DeduplicationState, now time.Time) bool {
	if state.LastCleanup == "" {
		return true
	}
	last, err := time.Parse(time.RFC3339, state.LastCleanup)
	if err != nil {
		return true
	}
	return now.Sub(last) >= cleanupInterval
}
