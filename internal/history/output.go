package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Dump is the document written to the output file. History is ordered oldest
// to newest; its last element is the current snapshot.
type Dump struct {
	Service   string     `json:"service"`
	Instance  string     `json:"instance,omitempty"`
	Version   string     `json:"version,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	History   [][]string `json:"history"`
}

// NewDump builds the output document from h
func NewDump(h *History, service, instance, version string, now time.Time) Dump {
	snaps := h.Snapshots()
	d := Dump{
		Service:   service,
		Instance:  instance,
		Version:   version,
		UpdatedAt: now.UTC(),
		History:   make([][]string, len(snaps)),
	}
	for i, s := range snaps {
		d.History[i] = s.Strings()
	}
	return d
}

// Latest returns the most recent snapshot in the document
func (d Dump) Latest() ([]string, bool) {
	if len(d.History) == 0 {
		return nil, false
	}
	return d.History[len(d.History)-1], true
}

// Encode renders the document as indented JSON
func (d Dump) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses an output file written by WriteFile
func Decode(data []byte) (Dump, error) {
	var d Dump
	if err := json.Unmarshal(data, &d); err != nil {
		return Dump{}, fmt.Errorf("failed to decode history: %w", err)
	}
	return d, nil
}

// ReadFile reads and decodes an output file
func ReadFile(path string) (Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dump{}, err
	}
	return Decode(data)
}

// WriteFile replaces the file at path with d. The content is written to a
// temporary file in the same directory and renamed over path, so readers see
// either the previous or the new document.
func WriteFile(path string, d Dump) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace output: %w", err)
	}

	return nil
}
