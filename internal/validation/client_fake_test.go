package validation

import (
	"context"
	"io"
	"time"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

// fakeClient implements the subset of githubapi.Client the gates touch. The
// embedded interface keeps the struct compiling as the interface grows; an
// unexpectedly called method panics, which is what a test wants.
type fakeClient struct {
	githubapi.Client

	permission    githubapi.Permission
	permissionErr error

	orgMembers map[string]bool
	orgErr     error

	teamMembers map[string]bool // "team/user"
	teamErr     error

	openPRs    int
	openPRsErr error

	runs    []githubapi.WorkflowRun
	runsErr error

	blockers    []githubapi.BlockedByIssue
	blockersErr error
}

func (f *fakeClient) RepositoryPermission(ctx context.Context, repo model.RepositoryRef, user string) (githubapi.Permission, error) {
	if f.permissionErr != nil {
		return githubapi.PermissionNone, f.permissionErr
	}
	if f.permission == "" {
		return githubapi.PermissionNone, nil
	}
	return f.permission, nil
}

func (f *fakeClient) IsOrgMember(ctx context.Context, org, user string) (bool, error) {
	if f.orgErr != nil {
		return false, f.orgErr
	}
	return f.orgMembers[user], nil
}

func (f *fakeClient) IsTeamMember(ctx context.Context, org, team, user string) (bool, error) {
	if f.teamErr != nil {
		return false, f.teamErr
	}
	return f.teamMembers[team+"/"+user], nil
}

func (f *fakeClient) CountOpenPRs(ctx context.Context, repo model.RepositoryRef, label string) (int, error) {
	if f.openPRsErr != nil {
		return 0, f.openPRsErr
	}
	return f.openPRs, nil
}

func (f *fakeClient) RecentWorkflowRuns(ctx context.Context, repo model.RepositoryRef, workflowFile string) ([]githubapi.WorkflowRun, error) {
	if f.runsErr != nil {
		return nil, f.runsErr
	}
	return f.runs, nil
}

func (f *fakeClient) BlockedByIssues(ctx context.Context, repo model.RepositoryRef, issueNumber int) ([]githubapi.BlockedByIssue, error) {
	if f.blockersErr != nil {
		return nil, f.blockersErr
	}
	return f.blockers, nil
}

func testLogger() *logging.Logger {
	return logging.New(io.Discard, logging.LevelError)
}

func testContext() model.ValidationContext {
	return model.ValidationContext{
		Actor:      "alice",
		Repository: model.RepositoryRef{Owner: "acme", Name: "widgets"},
		EventName:  "issues",
		RunID:      42,
		ServerURL:  "https://github.com",
	}
}

func successRunAt(t time.Time) githubapi.WorkflowRun {
	return githubapi.WorkflowRun{Conclusion: "success", CreatedAt: t}
}
