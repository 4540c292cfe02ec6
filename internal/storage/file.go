package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"swapPool/internal/state"
)

// FileStore keeps the snapshot in a JSON file and the audit trail in an
// append-only JSONL file next to it. Snapshots are written atomically via a
// temp file rename.
type FileStore struct {
	snapshotPath string
	auditPath    string
	mu           sync.Mutex
}

// NewFileStore builds a file-backed store. auditPath may be empty to disable
// the audit trail.
func NewFileStore(snapshotPath, auditPath string) *FileStore {
	return &FileStore{snapshotPath: snapshotPath, auditPath: auditPath}
}

// SaveSnapshot replaces the snapshot file with the new state.
func (s *FileStore) SaveSnapshot(_ context.Context, snapshot state.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureDir(s.snapshotPath); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpPath := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.snapshotPath); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot file; the second return is false when no
// snapshot exists yet.
func (s *FileStore) LoadSnapshot(_ context.Context) (state.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return state.Snapshot{}, false, nil
		}
		return state.Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot state.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return state.Snapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snapshot, true, nil
}

// AppendAudit appends records as JSON lines.
func (s *FileStore) AppendAudit(_ context.Context, records []AuditRecord) error {
	if len(records) == 0 || s.auditPath == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureDir(s.auditPath); err != nil {
		return err
	}

	file, err := os.OpenFile(s.auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write audit record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush audit: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return nil
}
