package progress

import (
	"fmt"
	"strings"

	"github.com/lucasilverentand/repo-agents/internal/model"
)

// Stage names and status emoji as rendered in the comment table.
var stageTitles = map[model.Stage]string{
	model.StageValidation: "Validation",
	model.StageContext:    "Context",
	model.StageAgent:      "Agent",
	model.StageOutputs:    "Outputs",
	model.StageComplete:   "Complete",
}

var statusEmoji = map[model.StageStatus]string{
	model.StageStatusPending: "⏳",
	model.StageStatusRunning: "🔄",
	model.StageStatusSuccess: "✅",
	model.StageStatusFailed:  "❌",
	model.StageStatusSkipped: "⏭️",
}

// Marker is the hidden identity line that lets a later step find this run's
// comment among all comments on the issue.
func Marker(runID int64, agentName string) string {
	return fmt.Sprintf("<!-- repo-agents-progress:%d:%s -->", runID, agentName)
}

// Format renders the comment body. The marker always leads; once a final
// comment is set the stage table is dropped entirely.
func Format(s *State) string {
	var b strings.Builder
	b.WriteString(Marker(s.RunID, s.AgentName))
	b.WriteString("\n\n")

	if s.FinalComment != "" {
		b.WriteString(s.FinalComment)
		b.WriteString("\n")
		return b.String()
	}

	switch s.CurrentStage {
	case model.StageFailed:
		fmt.Fprintf(&b, "### ❌ %s failed\n\n", s.AgentName)
	case model.StageComplete:
		fmt.Fprintf(&b, "### ✅ %s complete\n\n", s.AgentName)
	default:
		fmt.Fprintf(&b, "### 🤖 %s running\n\n", s.AgentName)
	}

	b.WriteString("| Stage | Status |\n")
	b.WriteString("|-------|--------|\n")
	for _, stage := range model.StageOrder {
		fmt.Fprintf(&b, "| %s | %s |\n", stageTitles[stage], statusEmoji[s.Stages[stage]])
	}

	if s.Error != "" {
		fmt.Fprintf(&b, "\n> **Error:** %s\n", s.Error)
	}

	fmt.Fprintf(&b, "\n[View run](%s)\n", s.RunURL)
	return b.String()
}
