package purge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore purges keys from a JSON object file, such as an exported browser
// localStorage. Values may be raw JSON or JSON encoded as a string.
type LocalStore struct {
	path string
}

// NewLocalStore creates a LocalStore for the file at path.
func NewLocalStore(path string) *LocalStore {
	return &LocalStore{path: path}
}

// Name implements Store.
func (s *LocalStore) Name() string { return "local:" + filepath.Base(s.path) }

// Count returns the number of array elements under key, 1 for any other non-null value.
func (s *LocalStore) Count(ctx context.Context, key string) (int, error) {
	data, err := s.load()
	if err != nil {
		return 0, err
	}
	raw, ok := data[key]
	if !ok {
		return 0, nil
	}
	return countRaw(raw), nil
}

// Has reports whether key exists, whatever its value.
func (s *LocalStore) Has(ctx context.Context, key string) (bool, error) {
	data, err := s.load()
	if err != nil {
		return false, err
	}
	_, ok := data[key]
	return ok, nil
}

// Remove deletes key and rewrites the file. Other keys keep their values.
func (s *LocalStore) Remove(ctx context.Context, key string) error {
	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.save(data)
}

func (s *LocalStore) load() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return data, nil
}

func (s *LocalStore) save(data map[string]json.RawMessage) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	mode := os.FileMode(0o600)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".purge-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func countRaw(raw json.RawMessage) int {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 1
	}

	if str, ok := v.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(str), &inner); err == nil {
			v = inner
		} else if str == "" {
			return 0
		} else {
			return 1
		}
	}
	return countValue(v)
}
