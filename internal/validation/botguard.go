package validation

import "strings"

// Named automation accounts denied in addition to the [bot] suffix. Matching
// is case-insensitive.
var knownBotActors = []string{
	"github-actions",
	"dependabot",
	"renovate",
	"greenkeeper",
	"snyk-bot",
	"codecov",
	"semantic-release-bot",
}

// CheckBotActor rejects automated actors so an agent's own GitHub-authored
// mutation (a label add, a comment) cannot re-trigger it. allowBots is the
// agent's allow_bot_triggers override. Deterministic, no I/O.
func CheckBotActor(actor string, allowBots bool) Outcome {
	if allowBots {
		return Allow()
	}
	lower := strings.ToLower(actor)
	if strings.HasSuffix(lower, "[bot]") {
		return Deny("actor %q is a bot account; set allow_bot_triggers to permit bot-initiated runs", actor)
	}
	for _, bot := range knownBotActors {
		if lower == bot {
			return Deny("actor %q is a known automation account; set allow_bot_triggers to permit bot-initiated runs", actor)
		}
	}
	return Allow()
}
