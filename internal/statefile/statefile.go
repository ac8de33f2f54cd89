package statefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

// Load reads the dedup artifact at path. A missing file yields a fresh empty
// state. A corrupt file is quarantined next to the original and also yields a
// fresh state: deduplication fails open, it never blocks a run.
func Load(path string, logger *logging.Logger) (model.DeduplicationState, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewDeduplicationState(), nil
	}
	if err != nil {
		return model.DeduplicationState{}, fmt.Errorf("read state file: %w", err)
	}

	var state model.DeduplicationState
	if err := json.Unmarshal(content, &state); err != nil {
		logger.Warnf("statefile corrupt path=%s err=%v", path, err)
		if qerr := Quarantine(path); qerr != nil {
			logger.Errorf("statefile quarantine_failed path=%s err=%v", path, qerr)
		}
		return model.NewDeduplicationState(), nil
	}
	if state.SchemaVersion == "" {
		state.SchemaVersion = model.DedupSchemaVersion
	}
	if state.Records == nil {
		state.Records = []model.DeduplicationRecord{}
	}
	return state, nil
}

// Save writes the artifact atomically.
func Save(path string, state model.DeduplicationState) error {
	return AtomicWriteJSON(path, state)
}

// Quarantine moves a corrupt artifact aside as <path>.<ts>.corrupt so the
// next run starts clean while the bad file stays inspectable.
func Quarantine(path string) error {
	quarantinePath := fmt.Sprintf("%s.%s.corrupt", path, time.Now().Format("20060102T150405"))
	if err := os.Rename(path, quarantinePath); err != nil {
		return fmt.Errorf("move to quarantine: %w", err)
	}
	return nil
}
