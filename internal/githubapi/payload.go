package githubapi

import (
	"encoding/json"
	"fmt"
	"os"
)

// EventPayload is the subset of a GitHub webhook/event payload the gates read.
// The same shape serves both the Actions event file (GITHUB_EVENT_PATH) and
// watch-mode delivery files.
type EventPayload struct {
	Action      string          `json:"action,omitempty"`
	Issue       *IssueRef       `json:"issue,omitempty"`
	PullRequest *PullRequestRef `json:"pull_request,omitempty"`
	Sender      *UserRef        `json:"sender,omitempty"`
	Repository  *RepositoryInfo `json:"repository,omitempty"`
}

type IssueRef struct {
	Number int     `json:"number"`
	Title  string  `json:"title,omitempty"`
	Labels []Label `json:"labels,omitempty"`
}

type PullRequestRef struct {
	Number int     `json:"number"`
	Title  string  `json:"title,omitempty"`
	Labels []Label `json:"labels,omitempty"`
}

type Label struct {
	Name string `json:"name"`
}

type UserRef struct {
	Login string `json:"login"`
}

type RepositoryInfo struct {
	FullName string `json:"full_name"`
}

// LoadEventPayload reads and decodes the event JSON at path.
func LoadEventPayload(path string) (*EventPayload, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event payload: %w", err)
	}
	var payload EventPayload
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil, fmt.Errorf("parse event payload %s: %w", path, err)
	}
	return &payload, nil
}

// ItemNumber returns the issue or pull request number the event refers to.
func (p *EventPayload) ItemNumber() (int, bool) {
	if p == nil {
		return 0, false
	}
	if p.Issue != nil {
		return p.Issue.Number, true
	}
	if p.PullRequest != nil {
		return p.PullRequest.Number, true
	}
	return 0, false
}

// ItemLabels returns the label names on the event's issue or pull request.
func (p *EventPayload) ItemLabels() []string {
	if p == nil {
		return nil
	}
	var labels []Label
	switch {
	case p.Issue != nil:
		labels = p.Issue.Labels
	case p.PullRequest != nil:
		labels = p.PullRequest.Labels
	default:
		return nil
	}
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names
}
