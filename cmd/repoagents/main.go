package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lucasilverentand/repo-agents/internal/audit"
	"github.com/lucasilverentand/repo-agents/internal/dedup"
	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
	"github.com/lucasilverentand/repo-agents/internal/progress"
	"github.com/lucasilverentand/repo-agents/internal/runner"
	"github.com/lucasilverentand/repo-agents/internal/statefile"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "validate":
		runValidate(os.Args[2:])
	case "dedup":
		runDedup(os.Args[2:])
	case "progress":
		runProgress(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "version":
		fmt.Printf("repoagents %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: repoagents <command> [options]

commands:
  validate   run the admission pipeline for one agent and event
  dedup      dedup state operations (cleanup)
  progress   progress comment operations (render)
  watch      validate deliveries from a local events directory
  version    print version`)
}

// runValidate evaluates the admission pipeline (and event dedup, when a state
// file is given). Exit code 0 = allowed, 1 = denied/deduplicated, 2 = error.
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	agentPath := fs.String("agent", "", "path to the agent markdown file (required)")
	actor := fs.String("actor", "", "triggering actor login (required)")
	repository := fs.String("repository", "", "owner/repo (required)")
	eventName := fs.String("event", "", "event name, e.g. issues (required)")
	eventPath := fs.String("payload", "", "path to the event payload JSON")
	runID := fs.Int64("run-id", 0, "hosting workflow run id")
	serverURL := fs.String("server-url", "https://github.com", "GitHub server URL")
	token := fs.String("token", os.Getenv("GITHUB_TOKEN"), "API token (defaults to GITHUB_TOKEN)")
	statePath := fs.String("state", "", "path to the dedup state artifact")
	auditPath := fs.String("audit-log", "", "path to the decision log (JSONL)")
	logLevel := fs.String("log-level", "info", "debug|info|warn|error")
	_ = fs.Parse(args)

	if *agentPath == "" || *actor == "" || *repository == "" || *eventName == "" {
		fmt.Fprintln(os.Stderr, "usage: repoagents validate --agent <file> --actor <login> --repository <owner/repo> --event <name> [options]")
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(*logLevel))

	def, err := model.LoadAgentDefinition(*agentPath)
	if err != nil {
		fatal(err)
	}
	repo, err := model.ParseRepository(*repository)
	if err != nil {
		fatal(err)
	}

	vctx := model.ValidationContext{
		Actor:      *actor,
		Repository: repo,
		EventName:  *eventName,
		EventPath:  *eventPath,
		RunID:      *runID,
		ServerURL:  *serverURL,
	}

	opts := runner.Options{
		Client:    githubapi.NewRESTClient(*token),
		Logger:    logger,
		StatePath: *statePath,
	}
	if *auditPath != "" {
		auditLog, err := audit.NewLogger(*auditPath, 0)
		if err != nil {
			fatal(err)
		}
		defer auditLog.Close()
		opts.AuditLog = auditLog
	}

	report, err := runner.New(opts).Run(context.Background(), def, vctx)
	if err != nil {
		fatal(err)
	}

	out, _ := json.MarshalIndent(report.Result, "", "  ")
	fmt.Println(string(out))

	if !report.Result.Allowed || report.Deduplicated {
		os.Exit(1)
	}
}

func runDedup(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: repoagents dedup <cleanup> [options]")
		os.Exit(2)
	}
	switch args[0] {
	case "cleanup":
		runDedupCleanup(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown dedup subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "usage: repoagents dedup <cleanup> [options]")
		os.Exit(2)
	}
}

func runDedupCleanup(args []string) {
	fs := flag.NewFlagSet("dedup cleanup", flag.ExitOnError)
	statePath := fs.String("state", "", "path to the dedup state artifact (required)")
	maxAge := fs.Duration("max-age", dedup.DefaultMaxRecordAge, "drop records older than this")
	logLevel := fs.String("log-level", "info", "debug|info|warn|error")
	_ = fs.Parse(args)

	if *statePath == "" {
		fmt.Fprintln(os.Stderr, "usage: repoagents dedup cleanup --state <file> [--max-age 168h]")
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(*logLevel))
	state, err := statefile.Load(*statePath, logger)
	if err != nil {
		fatal(err)
	}

	before := len(state.Records)
	state = dedup.Cleanup(state, *maxAge, time.Now())
	if err := statefile.Save(*statePath, state); err != nil {
		fatal(err)
	}
	fmt.Printf("cleanup complete: %d record(s) dropped, %d kept\n", before-len(state.Records), len(state.Records))
}

func runProgress(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: repoagents progress <render> [options]")
		os.Exit(2)
	}
	switch args[0] {
	case "render":
		runProgressRender(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown progress subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "usage: repoagents progress <render> [options]")
		os.Exit(2)
	}
}

// runProgressRender prints the comment body for a given stage snapshot;
// useful when adjusting the comment layout without touching GitHub.
func runProgressRender(args []string) {
	fs := flag.NewFlagSet("progress render", flag.ExitOnError)
	agentName := fs.String("agent-name", "agent", "agent name in the header")
	runID := fs.Int64("run-id", 0, "workflow run id in the marker")
	runURL := fs.String("run-url", "", "footer link target")
	stage := fs.String("stage", "", "stage to mark running (validation|context|agent|outputs|complete)")
	hasContext := fs.Bool("has-context", true, "whether the context stage applies")
	final := fs.String("final", "", "final comment text (drops the stage table)")
	_ = fs.Parse(args)

	st := progress.NewState(*agentName, *runID, *runURL, *hasContext)
	if *stage != "" {
		s := model.Stage(*stage)
		if !model.IsValidStage(s) {
			fatal(fmt.Errorf("invalid stage %q", *stage))
		}
		st = st.Update(s, model.StageStatusRunning, "")
	}
	if *final != "" {
		st = st.SetFinalComment(*final)
	}
	fmt.Print(progress.Format(st))
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	eventsDir := fs.String("events-dir", "", "directory of delivery JSON files (required)")
	agentsDir := fs.String("agents-dir", "", "directory of agent markdown files (required)")
	statePath := fs.String("state", "", "path to the dedup state artifact")
	auditPath := fs.String("audit-log", "", "path to the decision log (JSONL)")
	token := fs.String("token", os.Getenv("GITHUB_TOKEN"), "API token (defaults to GITHUB_TOKEN)")
	serverURL := fs.String("server-url", "https://github.com", "GitHub server URL")
	rescan := fs.Int("rescan-interval", 10, "rescan interval in seconds")
	logLevel := fs.String("log-level", "info", "debug|info|warn|error")
	_ = fs.Parse(args)

	if *eventsDir == "" || *agentsDir == "" {
		fmt.Fprintln(os.Stderr, "usage: repoagents watch --events-dir <dir> --agents-dir <dir> [options]")
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(*logLevel))

	opts := runner.Options{
		// Watch mode revalidates the same actors repeatedly; cache the
		// membership lookups.
		Client:    githubapi.NewCachedClient(githubapi.NewRESTClient(*token), 0),
		Logger:    logger,
		StatePath: *statePath,
	}
	if *auditPath != "" {
		auditLog, err := audit.NewLogger(*auditPath, 0)
		if err != nil {
			fatal(err)
		}
		defer auditLog.Close()
		opts.AuditLog = auditLog
	}

	w := runner.NewWatcher(runner.WatcherConfig{
		EventsDir:         *eventsDir,
		AgentsDir:         *agentsDir,
		StatePath:         *statePath,
		RescanIntervalSec: *rescan,
		ServerURL:         *serverURL,
	}, runner.New(opts), logger)

	if err := w.Run(); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "repoagents: %v\n", err)
	os.Exit(2)
}
