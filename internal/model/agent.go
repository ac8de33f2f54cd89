// Package model defines the data structures for agent policy, run context,
// progress tracking, and the persisted deduplication artifact.
package model

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// MatchMode selects how action deduplication compares two actions.
type MatchMode string

const (
	MatchExact   MatchMode = "exact"
	MatchSimilar MatchMode = "similar"
)

var validMatchModes = map[MatchMode]bool{
	MatchExact:   true,
	MatchSimilar: true,
}

var windowRegex = regexp.MustCompile(`^(\d+)([hdwm])$`)

// AgentDefinition is the declarative policy for one agent. It is parsed from
// the YAML frontmatter of the agent's markdown file and immutable for the
// duration of a run.
type AgentDefinition struct {
	Name             string   `yaml:"name"`
	WorkflowFile     string   `yaml:"workflow_file"`
	AllowedUsers     []string `yaml:"allowed_users"`
	AllowedActors    []string `yaml:"allowed_actors"`
	AllowedTeams     []string `yaml:"allowed_teams"`
	AllowBotTriggers bool     `yaml:"allow_bot_triggers"`
	TriggerLabels    []string `yaml:"trigger_labels"`
	SkipLabels       []string `yaml:"skip_labels"`
	RateLimitMinutes int      `yaml:"rate_limit_minutes"`
	MaxOpenPRs       int      `yaml:"max_open_prs"`
	Outputs          []string `yaml:"outputs"`

	PreFlight     PreFlightConfig     `yaml:"pre_flight"`
	Deduplication DeduplicationConfig `yaml:"deduplication"`
}

type PreFlightConfig struct {
	CheckBlockingIssues bool `yaml:"check_blocking_issues"`
}

type DeduplicationConfig struct {
	Events  EventDedupConfig  `yaml:"events"`
	Actions ActionDedupConfig `yaml:"actions"`
}

// EventDedupConfig controls event-level duplicate suppression.
// KeyFields lists the fields composing the dedup key; recognized values are
// "event_type", "issue_number" and "action", anything else is a literal token.
type EventDedupConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Window    string   `yaml:"window"`
	KeyFields []string `yaml:"key_fields"`
}

// ActionDedupConfig controls action-level duplicate suppression. PerType
// overrides the global settings for a single action type.
type ActionDedupConfig struct {
	Enabled bool                          `yaml:"enabled"`
	Window  string                        `yaml:"window"`
	Match   MatchMode                     `yaml:"match"`
	PerType map[string]ActionTypeOverride `yaml:"per_type"`
}

type ActionTypeOverride struct {
	Enabled *bool     `yaml:"enabled"`
	Window  string    `yaml:"window"`
	Match   MatchMode `yaml:"match"`
}

// Validate checks the definition once at load time so the gates never have to
// re-validate configuration shapes at check-execution time.
func (d *AgentDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("agent definition missing name")
	}
	if d.RateLimitMinutes < 0 {
		return fmt.Errorf("rate_limit_minutes must not be negative: %d", d.RateLimitMinutes)
	}
	if d.MaxOpenPRs < 0 {
		return fmt.Errorf("max_open_prs must not be negative: %d", d.MaxOpenPRs)
	}
	if w := d.Deduplication.Events.Window; w != "" && !windowRegex.MatchString(w) {
		return fmt.Errorf("deduplication.events.window %q: expected <n><h|d|w|m>", w)
	}
	if w := d.Deduplication.Actions.Window; w != "" && !windowRegex.MatchString(w) {
		return fmt.Errorf("deduplication.actions.window %q: expected <n><h|d|w|m>", w)
	}
	if m := d.Deduplication.Actions.Match; m != "" && !validMatchModes[m] {
		return fmt.Errorf("deduplication.actions.match %q: expected exact or similar", m)
	}
	for typ, ov := range d.Deduplication.Actions.PerType {
		if ov.Window != "" && !windowRegex.MatchString(ov.Window) {
			return fmt.Errorf("deduplication.actions.per_type[%s].window %q: expected <n><h|d|w|m>", typ, ov.Window)
		}
		if ov.Match != "" && !validMatchModes[ov.Match] {
			return fmt.Errorf("deduplication.actions.per_type[%s].match %q: expected exact or similar", typ, ov.Match)
		}
	}
	return nil
}

// LoadAgentDefinition reads the YAML frontmatter of a markdown agent file.
// The markdown body (the agent prompt) belongs to the execution side and is
// ignored here. Name defaults to the file basename, workflow_file to
// "<name>.yml".
func LoadAgentDefinition(path string) (*AgentDefinition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent file: %w", err)
	}

	front, err := extractFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("agent file %s: %w", path, err)
	}

	var def AgentDefinition
	if err := yaml.Unmarshal(front, &def); err != nil {
		return nil, fmt.Errorf("parse agent frontmatter: %w", err)
	}

	if def.Name == "" {
		base := filepath.Base(path)
		def.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if def.WorkflowFile == "" {
		def.WorkflowFile = def.Name + ".yml"
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", def.Name, err)
	}
	return &def, nil
}

func extractFrontmatter(content []byte) ([]byte, error) {
	trimmed := bytes.TrimLeft(content, "\uFEFF")
	if !bytes.HasPrefix(trimmed, []byte("---\n")) && !bytes.HasPrefix(trimmed, []byte("---\r\n")) {
		return nil, fmt.Errorf("missing frontmatter fence")
	}
	rest := trimmed[bytes.IndexByte(trimmed, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, fmt.Errorf("unterminated frontmatter fence")
	}
	return rest[:end+1], nil
}
