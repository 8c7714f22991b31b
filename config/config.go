// Package config persists the two tunables taskq recognizes:
// max-retries and backoff-base. Grounded on the load/save style of
// the CLI example repos' config packages, generalized to a
// two-key validated key-value store rather than a fixed struct with
// arbitrary fields.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/taskq-dev/taskq"
)

// Keys recognized by the store. Setting anything else is a
// ValidationError.
const (
	KeyMaxRetries  = "max-retries"
	KeyBackoffBase = "backoff-base"
)

// Defaults applied when config.json doesn't exist yet.
const (
	DefaultMaxRetries  = 3.0
	DefaultBackoffBase = 2.0
)

// Store persists {max-retries, backoff-base} as config.json in a
// directory, all values positive numbers.
type Store struct {
	path   string
	values map[string]float64
}

// Load reads config.json from dir, or returns a Store seeded with
// defaults if it doesn't exist yet.
func Load(dir string) (*Store, error) {
	path := filepath.Join(dir, "config.json")
	s := &Store{
		path: path,
		values: map[string]float64{
			KeyMaxRetries:  DefaultMaxRetries,
			KeyBackoffBase: DefaultBackoffBase,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, &taskq.StoreIOError{Op: "config.load", Err: err}
	}
	if len(data) == 0 {
		return s, nil
	}

	var onDisk map[string]float64
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return nil, &taskq.StoreIOError{Op: "config.load", Err: err}
	}
	for k, v := range onDisk {
		if err := validate(k, v); err != nil {
			return nil, err
		}
		s.values[k] = v
	}
	return s, nil
}

// Get returns the current value for key.
func (s *Store) Get(key string) (float64, error) {
	v, ok := s.values[key]
	if !ok {
		return 0, &taskq.ValidationError{Msg: fmt.Sprintf("unknown config key %q", key)}
	}
	return v, nil
}

// List returns every recognized key and its current value.
func (s *Store) List() map[string]float64 {
	out := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Set validates key and value, applies it in memory, and persists the
// whole store to config.json.
func (s *Store) Set(key string, value float64) error {
	if err := validate(key, value); err != nil {
		return err
	}
	s.values[key] = value
	return s.save()
}

func validate(key string, value float64) error {
	switch key {
	case KeyMaxRetries, KeyBackoffBase:
	default:
		return &taskq.ValidationError{Msg: fmt.Sprintf("unknown config key %q", key)}
	}
	if value <= 0 {
		return &taskq.ValidationError{Msg: fmt.Sprintf("%q must be a positive number, got %v", key, value)}
	}
	return nil
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return &taskq.StoreIOError{Op: "config.save", Err: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return &taskq.StoreIOError{Op: "config.save", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &taskq.StoreIOError{Op: "config.save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &taskq.StoreIOError{Op: "config.save", Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return &taskq.StoreIOError{Op: "config.save", Err: err}
	}
	return nil
}
