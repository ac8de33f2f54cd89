// Package githubapi wraps the GitHub REST API behind the narrow capability set
// the admission pipeline needs. Gates depend on the Client interface; the
// go-github implementation lives in RESTClient.
package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v58/github"

	"github.com/lucasilverentand/repo-agents/internal/model"
)

// Permission is a collaborator's effective repository permission.
type Permission string

const (
	PermissionAdmin Permission = "admin"
	PermissionWrite Permission = "write"
	PermissionRead  Permission = "read"
	PermissionNone  Permission = "none"
)

// WorkflowRun is a completed run of the agent's workflow file.
type WorkflowRun struct {
	Conclusion string
	CreatedAt  time.Time
}

// IssueComment is an existing comment on an issue or pull request.
type IssueComment struct {
	ID   int64
	Body string
}

// BlockedByIssue is one entry of an issue's blocked-by dependency list.
type BlockedByIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
}

// Client is the GitHub capability set consumed by the pipeline and the
// progress-comment protocol. Implementations must be safe for sequential use;
// the pipeline never calls concurrently.
type Client interface {
	RepositoryPermission(ctx context.Context, repo model.RepositoryRef, user string) (Permission, error)
	IsOrgMember(ctx context.Context, org, user string) (bool, error)
	IsTeamMember(ctx context.Context, org, team, user string) (bool, error)
	CountOpenPRs(ctx context.Context, repo model.RepositoryRef, label string) (int, error)
	RecentWorkflowRuns(ctx context.Context, repo model.RepositoryRef, workflowFile string) ([]WorkflowRun, error)
	ListIssueComments(ctx context.Context, repo model.RepositoryRef, issueNumber, page int) (comments []IssueComment, hasMore bool, err error)
	CreateIssueComment(ctx context.Context, repo model.RepositoryRef, issueNumber int, body string) (int64, error)
	UpdateIssueComment(ctx context.Context, repo model.RepositoryRef, commentID int64, body string) error
	BlockedByIssues(ctx context.Context, repo model.RepositoryRef, issueNumber int) ([]BlockedByIssue, error)
}

// RESTClient implements Client on the go-github SDK.
type RESTClient struct {
	gh *github.Client
}

// NewRESTClient builds a client authenticated with token. An empty token
// yields an unauthenticated client, useful only against public repositories.
func NewRESTClient(token string) *RESTClient {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &RESTClient{gh: gh}
}

// NewRESTClientWith wraps an existing go-github client (tests, enterprise
// base URLs).
func NewRESTClientWith(gh *github.Client) *RESTClient {
	return &RESTClient{gh: gh}
}

func (c *RESTClient) RepositoryPermission(ctx context.Context, repo model.RepositoryRef, user string) (Permission, error) {
	level, _, err := c.gh.Repositories.GetPermissionLevel(ctx, repo.Owner, repo.Name, user)
	if err != nil {
		return PermissionNone, fmt.Errorf("get permission level for %s on %s: %w", user, repo, err)
	}
	switch p := level.GetPermission(); p {
	case "admin", "write", "read", "none":
		return Permission(p), nil
	default:
		// maintain/triage map onto write/read in the collaborator API; anything
		// unrecognized is treated as no access.
		return PermissionNone, nil
	}
}

func (c *RESTClient) IsOrgMember(ctx context.Context, org, user string) (bool, error) {
	member, resp, err := c.gh.Organizations.IsMember(ctx, org, user)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("check org membership %s in %s: %w", user, org, err)
	}
	return member, nil
}

func (c *RESTClient) IsTeamMember(ctx context.Context, org, team, user string) (bool, error) {
	membership, resp, err := c.gh.Teams.GetTeamMembershipBySlug(ctx, org, team, user)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("check team membership %s in %s/%s: %w", user, org, team, err)
	}
	return membership.GetState() == "active", nil
}

func (c *RESTClient) CountOpenPRs(ctx context.Context, repo model.RepositoryRef, label string) (int, error) {
	query := fmt.Sprintf("repo:%s is:pr is:open", repo)
	if label != "" {
		query += fmt.Sprintf(" label:%q", label)
	}
	result, _, err := c.gh.Search.Issues(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("search open PRs in %s: %w", repo, err)
	}
	return result.GetTotal(), nil
}

func (c *RESTClient) RecentWorkflowRuns(ctx context.Context, repo model.RepositoryRef, workflowFile string) ([]WorkflowRun, error) {
	runs, _, err := c.gh.Actions.ListWorkflowRunsByFileName(ctx, repo.Owner, repo.Name, workflowFile, &github.ListWorkflowRunsOptions{
		Status:      "completed",
		ListOptions: github.ListOptions{PerPage: 50},
	})
	if err != nil {
		return nil, fmt.Errorf("list workflow runs for %s in %s: %w", workflowFile, repo, err)
	}
	out := make([]WorkflowRun, 0, len(runs.WorkflowRuns))
	for _, r := range runs.WorkflowRuns {
		out = append(out, WorkflowRun{
			Conclusion: r.GetConclusion(),
			CreatedAt:  r.GetCreatedAt().Time,
		})
	}
	return out, nil
}

func (c *RESTClient) ListIssueComments(ctx context.Context, repo model.RepositoryRef, issueNumber, page int) ([]IssueComment, bool, error) {
	comments, resp, err := c.gh.Issues.ListComments(ctx, repo.Owner, repo.Name, issueNumber, &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{Page: page, PerPage: 100},
	})
	if err != nil {
		return nil, false, fmt.Errorf("list comments on %s#%d: %w", repo, issueNumber, err)
	}
	out := make([]IssueComment, 0, len(comments))
	for _, cm := range comments {
		out = append(out, IssueComment{ID: cm.GetID(), Body: cm.GetBody()})
	}
	return out, resp.NextPage != 0, nil
}

func (c *RESTClient) CreateIssueComment(ctx context.Context, repo model.RepositoryRef, issueNumber int, body string) (int64, error) {
	created, _, err := c.gh.Issues.CreateComment(ctx, repo.Owner, repo.Name, issueNumber, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return 0, fmt.Errorf("create comment on %s#%d: %w", repo, issueNumber, err)
	}
	return created.GetID(), nil
}

func (c *RESTClient) UpdateIssueComment(ctx context.Context, repo model.RepositoryRef, commentID int64, body string) error {
	_, _, err := c.gh.Issues.EditComment(ctx, repo.Owner, repo.Name, commentID, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("update comment %d on %s: %w", commentID, repo, err)
	}
	return nil
}

// BlockedByIssues queries the issue-dependencies endpoint. go-github has no
// typed wrapper for it yet, so this goes through the generic request path.
func (c *RESTClient) BlockedByIssues(ctx context.Context, repo model.RepositoryRef, issueNumber int) ([]BlockedByIssue, error) {
	u := fmt.Sprintf("repos/%s/%s/issues/%d/dependencies/blocked_by", repo.Owner, repo.Name, issueNumber)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build blocked-by request for %s#%d: %w", repo, issueNumber, err)
	}
	var blockers []BlockedByIssue
	if _, err := c.gh.Do(ctx, req, &blockers); err != nil {
		return nil, fmt.Errorf("fetch blocked-by list for %s#%d: %w", repo, issueNumber, err)
	}
	return blockers, nil
}
