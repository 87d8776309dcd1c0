// Package jsonfile persists a collection as a single JSON document that is
// read and rewritten wholesale, matching how the stand's data files have
// always been managed.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorrupt marks a file that exists but does not contain valid JSON.
// Callers treat the collection as empty and report the anomaly instead of failing.
var ErrCorrupt = errors.New("persisted file is corrupt")

// Load reads the document at path into v. A missing file returns
// os.ErrNotExist and an unparsable one returns ErrCorrupt, both wrapped, so
// repositories can distinguish a fresh start from damage.
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, os.ErrNotExist)
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("load %s: %w: %v", path, ErrCorrupt, err)
	}
	return nil
}

// Save overwrites the document at path with v. The write goes through a
// temporary file followed by a rename so readers never observe a torn file.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
