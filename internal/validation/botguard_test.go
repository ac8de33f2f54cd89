package validation

import "testing"

func TestCheckBotActor(t *testing.T) {
	tests := []struct {
		actor     string
		allowBots bool
		want      OutcomeKind
	}{
		{"github-actions[bot]", false, OutcomeDenied},
		{"DEPENDABOT[BOT]", false, OutcomeDenied},
		{"renovate", false, OutcomeDenied},
		{"Codecov", false, OutcomeDenied},
		{"semantic-release-bot", false, OutcomeDenied},
		{"robot-user", false, OutcomeAllowed},
		{"alice", false, OutcomeAllowed},
		{"github-actions[bot]", true, OutcomeAllowed},
		{"dependabot", true, OutcomeAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.actor, func(t *testing.T) {
			out := CheckBotActor(tt.actor, tt.allowBots)
			if out.Kind != tt.want {
				t.Errorf("CheckBotActor(%q, %v) = %v, want %v", tt.actor, tt.allowBots, out.Kind, tt.want)
			}
			if out.Kind == OutcomeDenied && out.Reason == "" {
				t.Error("denial must carry a reason")
			}
		})
	}
}
