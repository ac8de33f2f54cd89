package model

import "fmt"

// ValidationContext carries the per-run facts every gate reads. It is created
// once per run and never mutated.
type ValidationContext struct {
	Actor      string
	Repository RepositoryRef
	EventName  string
	EventPath  string
	RunID      int64
	ServerURL  string
}

// RunURL returns the browser URL of the hosting workflow run.
func (c ValidationContext) RunURL() string {
	server := c.ServerURL
	if server == "" {
		server = "https://github.com"
	}
	return fmt.Sprintf("%s/%s/actions/runs/%d", server, c.Repository, c.RunID)
}
