package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/pathlight/mentormatch/internal/domain"
)

// FileLog is an append-only feedback log stored as JSONL on disk.
//
// Crash safety: each record is one newline-terminated line written with a
// single O_APPEND write followed by fsync. An interrupted write can only
// leave a partial trailing line, which LoadAll skips; committed records are
// never touched again. An exclusive mutex serializes appends so concurrent
// writers cannot interleave within one record.
type FileLog struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	count int
}

// NewFileLog opens (or creates) the log file and counts committed records.
func NewFileLog(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open feedback log %s: %w", path, err)
	}

	l := &FileLog{f: f, path: path}

	records, err := l.readAll()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	l.count = len(records)

	return l, nil
}

// Append adds a record and returns the new total count.
func (l *FileLog) Append(_ context.Context, rec domain.FeedbackRecord) (int, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal feedback record: %w", err)
	}
	line := append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.f.Write(line); err != nil {
		return 0, fmt.Errorf("%w: append feedback: %w", domain.ErrStorageFailure, err)
	}
	if err := l.f.Sync(); err != nil {
		return 0, fmt.Errorf("%w: fsync feedback log: %w", domain.ErrStorageFailure, err)
	}

	l.count++
	return l.count, nil
}

// LoadAll returns every committed record in insertion order.
func (l *FileLog) LoadAll(_ context.Context) ([]domain.FeedbackRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAll()
}

// Count returns the number of committed records.
func (l *FileLog) Count(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count, nil
}

// Close releases the underlying file handle.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

func (l *FileLog) readAll() ([]domain.FeedbackRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read feedback log: %w", domain.ErrStorageFailure, err)
	}

	var records []domain.FeedbackRecord
	lines := bytes.Split(data, []byte{'\n'})
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec domain.FeedbackRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// A torn final line is the residue of a crashed append: skip it.
			// Corruption anywhere else means the log is damaged.
			if i == len(lines)-1 {
				continue
			}
			return nil, fmt.Errorf("corrupt feedback record at line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
