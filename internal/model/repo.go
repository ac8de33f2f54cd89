package model

import (
	"fmt"
	"strings"
)

// RepositoryRef identifies a GitHub repository as owner + name.
type RepositoryRef struct {
	Owner string
	Name  string
}

// ParseRepository parses an "owner/repo" slug.
func ParseRepository(s string) (RepositoryRef, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepositoryRef{}, fmt.Errorf("invalid repository %q (expected owner/repo)", s)
	}
	return RepositoryRef{Owner: parts[0], Name: parts[1]}, nil
}

func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// IsZero reports whether the ref has not been populated.
func (r RepositoryRef) IsZero() bool {
	return r.Owner == "" && r.Name == ""
}
