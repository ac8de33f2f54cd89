// Package audit writes an append-only JSONL log of pipeline decisions, one
// entry per run, with size-based rotation into an archive directory.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lucasilverentand/repo-agents/internal/validation"
)

const (
	// DefaultMaxLogSize is the rotation threshold (10MB).
	DefaultMaxLogSize = 10 * 1024 * 1024
	logFileExtension  = ".jsonl"
	archiveDirName    = "archive"
)

// Entry is one audited pipeline decision.
type Entry struct {
	Timestamp    time.Time                `json:"timestamp"`
	AgentName    string                   `json:"agent_name"`
	Actor        string                   `json:"actor"`
	Repository   string                   `json:"repository"`
	EventName    string                   `json:"event_name"`
	RunID        int64                    `json:"run_id,omitempty"`
	Allowed      bool                     `json:"allowed"`
	Reason       string                   `json:"reason,omitempty"`
	FailingCheck string                   `json:"failing_check,omitempty"`
	Checks       []validation.CheckStatus `json:"checks,omitempty"`
	Details      map[string]any           `json:"details,omitempty"`
}

// Logger appends entries to a JSONL file, rotating when it grows past
// maxSize.
type Logger struct {
	mu          sync.Mutex
	file        *os.File
	currentSize int64
	maxSize     int64
	logPath     string
}

// NewLogger opens (or creates) the decision log at logPath. maxSize <= 0
// selects DefaultMaxLogSize.
func NewLogger(logPath string, maxSize int64) (*Logger, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxLogSize
	}
	l := &Logger{logPath: logPath, maxSize: maxSize}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) open() error {
	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat audit log: %w", err)
	}
	l.file = file
	l.currentSize = stat.Size()
	return nil
}

// Record writes one decision entry. The timestamp is stamped here when the
// caller leaves it zero.
func (l *Logger) Record(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentSize+int64(len(data)) > l.maxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotate audit log: %w", err)
		}
	}

	n, err := l.file.Write(data)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	l.currentSize += int64(n)
	return nil
}

func (l *Logger) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}

	archiveDir := filepath.Join(filepath.Dir(l.logPath), archiveDirName)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	base := filepath.Base(l.logPath)
	name := fmt.Sprintf("%s.%s%s",
		base[:len(base)-len(logFileExtension)],
		time.Now().Format("20060102_150405"),
		logFileExtension)
	if err := os.Rename(l.logPath, filepath.Join(archiveDir, name)); err != nil {
		return fmt.Errorf("archive log: %w", err)
	}

	return l.open()
}

// Close releases the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
