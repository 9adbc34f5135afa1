package store

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/hashicorp/go-hclog"

	"field-scheduler-backend/internal/model"
)

// Store defines the persistence operations the backend relies on.
type Store interface {
	Year() int
	Path(kind Kind) string
	ReadRaw(ctx context.Context, kind Kind) ([]byte, error)
	Write(ctx context.Context, kind Kind, v any) error
	AppendLog(ctx context.Context, entry model.LogEntry) error
	ReadLog(ctx context.Context) ([]model.LogEntry, error)
}

// Options tunes a FileStore.
type Options struct {
	// ReadOnly suppresses every write and append.
	ReadOnly bool
	Logger   hclog.Logger
}

// FileStore keeps each collection as a pretty-printed JSON array and the
// audit log as JSON lines.
type FileStore struct {
	dir      string
	year     int
	readOnly bool
	logger   hclog.Logger

	logMu sync.Mutex

	writesMu   sync.Mutex
	lastWrites map[string][sha256.Size]byte
}

var _ Store = (*FileStore)(nil)

// Open prepares the data directory for the given year.
func Open(dir string, year int, opts Options) (*FileStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if !opts.ReadOnly {
		if err := os.MkdirAll(filepath.Join(abs, strconv.Itoa(year)), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &FileStore{
		dir:        abs,
		year:       year,
		readOnly:   opts.ReadOnly,
		logger:     logger,
		lastWrites: make(map[string][sha256.Size]byte),
	}, nil
}

// Year is the calendar year whose files this store reads and writes.
func (s *FileStore) Year() int { return s.year }

// Dir is the absolute data root.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file backing kind.
func (s *FileStore) Path(kind Kind) string {
	info := kinds[kind]
	if info.perYear {
		return filepath.Join(s.dir, strconv.Itoa(s.year), info.file)
	}
	return filepath.Join(s.dir, info.file)
}

// LogPath returns the audit log file of the store's year.
func (s *FileStore) LogPath() string {
	return filepath.Join(s.dir, strconv.Itoa(s.year), logFile)
}

// KindOf maps a file path back to its collection.
func (s *FileStore) KindOf(path string) (Kind, bool) {
	for _, k := range Kinds() {
		if s.Path(k) == path {
			return k, true
		}
	}
	return 0, false
}

// ReadRaw returns the file contents for kind. A missing file is created as an
// empty array.
func (s *FileStore) ReadRaw(_ context.Context, kind Kind) ([]byte, error) {
	path := s.Path(kind)
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if !s.readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, err
		}
		s.logger.Info("created empty data file", "kind", kind, "path", path)
	}
	return []byte("[]"), nil
}

// Write replaces the file for kind with v, serialised as indented JSON. The
// new contents are written to a temporary file and renamed into place.
func (s *FileStore) Write(_ context.Context, kind Kind, v any) error {
	if s.readOnly {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if bytes.Equal(data, []byte("null")) {
		data = []byte("[]")
	}

	path := s.Path(kind)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}

	s.markWrite(path, data)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// AppendLog appends entry as one JSON line.
func (s *FileStore) AppendLog(_ context.Context, entry model.LogEntry) error {
	if s.readOnly {
		return nil
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	line = append(line, '\n')

	s.logMu.Lock()
	defer s.logMu.Unlock()

	f, err := os.OpenFile(s.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append log: %w", err)
	}
	return f.Close()
}

// ReadLog parses the audit log of the store's year. Lines that fail to parse
// are skipped.
func (s *FileStore) ReadLog(_ context.Context) ([]model.LogEntry, error) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	f, err := os.Open(s.LogPath())
	if errors.Is(err, fs.ErrNotExist) {
		return []model.LogEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := []model.LogEntry{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry model.LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			s.logger.Warn("skipping malformed log line", "line", lineNo, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// OwnsContents reports whether the file at path still holds exactly what
// this process last wrote there. A file edited by anyone else, however soon
// after an internal write, compares unequal.
func (s *FileStore) OwnsContents(path string) (bool, error) {
	s.writesMu.Lock()
	sum, ok := s.lastWrites[path]
	s.writesMu.Unlock()
	if !ok {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return sha256.Sum256(data) == sum, nil
}

func (s *FileStore) markWrite(path string, data []byte) {
	sum := sha256.Sum256(data)
	s.writesMu.Lock()
	s.lastWrites[path] = sum
	s.writesMu.Unlock()
}

// Load decodes the collection for kind, dropping every record for which keep
// returns false. keep may modify the record in place.
func Load[T any](ctx context.Context, s Store, kind Kind, keep func(*T) bool) ([]T, error) {
	raw, err := s.ReadRaw(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path(kind), err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("invalid data in %s: expected a JSON array", s.Path(kind))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("invalid data in %s: %w", s.Path(kind), err)
	}

	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("invalid record %d in %s: %w", i, s.Path(kind), err)
		}
		if keep != nil && !keep(&v) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
