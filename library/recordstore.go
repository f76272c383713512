package library

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Delimiter separates fields on every line of a data file.
const Delimiter = "|"

// Codec translates between one record (the trimmed fields of a line) and a value.
type Codec[T any] struct {
	Decode func(fields []string) (T, error)
	Encode func(v T) []string
	Key    func(v T) string
}

// Store is delimited-file CRUD for one entity. Every mutation reads the whole
// file and rewrites it; there is no locking, so concurrent writers race and the
// last rename wins.
type Store[T any] struct {
	path      string
	header    string
	fields    int
	codec     Codec[T]
	afterLoad func([]T)
	logger    *slog.Logger
}

// StoreOption configures a Store.
type StoreOption[T any] func(*Store[T])

// WithLoadHook runs fn over every freshly loaded slice before ReadAll returns.
// Reservations use it to resolve book references in a single pass.
func WithLoadHook[T any](fn func([]T)) StoreOption[T] {
	return func(s *Store[T]) { s.afterLoad = fn }
}

// NewStore binds a store to path and the header it expects on line one.
func NewStore[T any](path, header string, codec Codec[T], logger *slog.Logger, opts ...StoreOption[T]) *Store[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store[T]{
		path:   path,
		header: header,
		fields: len(strings.Split(header, Delimiter)),
		codec:  codec,
		logger: logger.With("file", path),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the data file the store is bound to.
func (s *Store[T]) Path() string { return s.path }

// ---------------------------------------------------------------------------
// Whole-file operations
// ---------------------------------------------------------------------------

// ReadAll loads every record. A missing file is an empty store. Lines that do
// not parse are logged and skipped.
func (s *Store[T]) ReadAll() ([]T, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		s.logger.Error("read failed", "error", err)
		return []T{}, IOError("open", s.path, err)
	}
	defer f.Close()

	values := make([]T, 0)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 {
			if strings.TrimSpace(line) != s.header {
				s.logger.Warn("unexpected header", "got", line, "want", s.header)
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitRecord(line)
		if len(fields) != s.fields {
			s.logger.Warn("skipping malformed record", "line", lineNo,
				"error", fmt.Sprintf("expected %d fields, got %d", s.fields, len(fields)))
			continue
		}
		v, err := s.codec.Decode(fields)
		if err != nil {
			s.logger.Warn("skipping malformed record", "line", lineNo, "error", err)
			continue
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		s.logger.Error("read failed", "error", err)
		return []T{}, IOError("read", s.path, err)
	}
	if s.afterLoad != nil {
		s.afterLoad(values)
	}
	return values, nil
}

// SaveAll replaces the file with the header followed by one line per value.
func (s *Store[T]) SaveAll(values []T) error {
	lines := make([]string, 0, len(values)+1)
	lines = append(lines, s.header)
	for _, v := range values {
		line, err := s.encode(v)
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	if err := writeFileAtomic(s.path, lines); err != nil {
		s.logger.Error("write failed", "error", err)
		return IOError("write", s.path, err)
	}
	s.logger.Debug("saved records", "count", len(values))
	return nil
}

// Append adds one line without rewriting the existing records. The header is
// written first when the file is new or empty, and a missing final newline is
// restored so the new record starts on its own line.
func (s *Store[T]) Append(v T) error {
	line, err := s.encode(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return IOError("create dir for", s.path, err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		s.logger.Error("append failed", "error", err)
		return IOError("open", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return IOError("stat", s.path, err)
	}
	var sb strings.Builder
	if info.Size() == 0 {
		sb.WriteString(s.header)
		sb.WriteByte('\n')
	} else {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil {
			return IOError("read", s.path, err)
		}
		if last[0] != '\n' {
			sb.WriteByte('\n')
		}
	}
	sb.WriteString(line)
	sb.WriteByte('\n')
	if _, err := f.WriteString(sb.String()); err != nil {
		s.logger.Error("append failed", "error", err)
		return IOError("append to", s.path, err)
	}
	s.logger.Debug("appended record", "key", s.codec.Key(v))
	return nil
}

// ---------------------------------------------------------------------------
// Matcher operations
// ---------------------------------------------------------------------------

// Update replaces the first value satisfying match. It reports whether a
// replacement happened.
func (s *Store[T]) Update(match func(T) bool, v T) (bool, error) {
	values, err := s.ReadAll()
	if err != nil {
		return false, err
	}
	for i := range values {
		if match(values[i]) {
			values[i] = v
			if err := s.SaveAll(values); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// Delete removes every value satisfying match and reports whether any was removed.
func (s *Store[T]) Delete(match func(T) bool) (bool, error) {
	values, err := s.ReadAll()
	if err != nil {
		return false, err
	}
	kept := values[:0]
	for _, v := range values {
		if !match(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(values) {
		return false, nil
	}
	if err := s.SaveAll(kept); err != nil {
		return false, err
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Key shorthands (keys compare ignoring case)
// ---------------------------------------------------------------------------

// FindByKey returns the value whose key equals key.
func (s *Store[T]) FindByKey(key string) (T, bool, error) {
	var zero T
	values, err := s.ReadAll()
	if err != nil {
		return zero, false, err
	}
	for _, v := range values {
		if equalFold(s.codec.Key(v), key) {
			return v, true, nil
		}
	}
	return zero, false, nil
}

// UpdateByKey replaces the stored value with the same key as v.
func (s *Store[T]) UpdateByKey(v T) (bool, error) {
	key := s.codec.Key(v)
	return s.Update(func(x T) bool { return equalFold(s.codec.Key(x), key) }, v)
}

// DeleteByKey removes the value with the given key.
func (s *Store[T]) DeleteByKey(key string) (bool, error) {
	return s.Delete(func(x T) bool { return equalFold(s.codec.Key(x), key) })
}

// ---------------------------------------------------------------------------
// Line helpers
// ---------------------------------------------------------------------------

func (s *Store[T]) encode(v T) (string, error) {
	fields := s.codec.Encode(v)
	for _, f := range fields {
		if strings.ContainsAny(f, Delimiter+"\r\n") {
			return "", Validationf("value %q must not contain %q or line breaks", f, Delimiter)
		}
	}
	return strings.Join(fields, Delimiter), nil
}

func splitRecord(line string) []string {
	parts := strings.Split(line, Delimiter)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// writeFileAtomic writes lines to a temporary file beside path and renames it
// into place, creating the directory on first write.
func writeFileAtomic(path string, lines []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, l := range lines {
		w.WriteString(l)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
