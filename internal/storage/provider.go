// Package storage defines the ledger file-system abstraction.
package storage

import (
	"path/filepath"
	"strings"
	"time"
)

// FileMetadata describes one ledger file.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for ledger file operations.
type Provider interface {
	// List returns metadata for every ledger file under dir (relative to the ledger root).
	List(dir string) ([]FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the ledger root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the ledger root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the ledger root).
	Delete(path string) error
}

// IsLedgerFile reports whether name has a YAML extension.
func IsLedgerFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return !strings.HasPrefix(filepath.Base(name), ".")
	}
	return false
}
