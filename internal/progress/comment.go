package progress

import (
	"context"
	"strings"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

// maxCommentPages bounds the linear scan in FindComment. The API offers no
// server-side marker search, so the client pages and scans bodies itself.
const maxCommentPages = 10

// FindComment returns the id of this run's progress comment on the issue, or
// found=false when none exists yet.
func FindComment(ctx context.Context, client githubapi.Client, repo model.RepositoryRef, issueNumber int, runID int64, agentName string) (id int64, found bool, err error) {
	marker := Marker(runID, agentName)
	for page := 1; page <= maxCommentPages; page++ {
		comments, hasMore, err := client.ListIssueComments(ctx, repo, issueNumber, page)
		if err != nil {
			return 0, false, err
		}
		for _, c := range comments {
			if strings.Contains(c.Body, marker) {
				return c.ID, true, nil
			}
		}
		if !hasMore {
			break
		}
	}
	return 0, false, nil
}

// Sync upserts the rendered state into the issue's progress comment and
// returns the comment id. API failures propagate; callers decide whether a
// reporting failure should fail the run (it should not).
func Sync(ctx context.Context, client githubapi.Client, repo model.RepositoryRef, issueNumber int, s *State) (int64, error) {
	body := Format(s)

	id, found, err := FindComment(ctx, client, repo, issueNumber, s.RunID, s.AgentName)
	if err != nil {
		return 0, err
	}
	if !found {
		return client.CreateIssueComment(ctx, repo, issueNumber, body)
	}
	if err := client.UpdateIssueComment(ctx, repo, id, body); err != nil {
		return 0, err
	}
	return id, nil
}

// SyncTo updates a known comment id directly, skipping the scan. Used once
// the comment has been created for a run.
func SyncTo(ctx context.Context, client githubapi.Client, repo model.RepositoryRef, commentID int64, s *State) error {
	return client.UpdateIssueComment(ctx, repo, commentID, Format(s))
}
