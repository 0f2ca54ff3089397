// Package storage defines the board snapshot file-system abstraction.
package storage

import (
	"errors"

	"github.com/erland/pwa-whiteboard-sub000/internal/models"
)

// ErrQuotaExceeded is returned by Write when content is larger than the
// configured per-file limit.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Provider is the interface for board file operations. Paths are relative
// to the storage root.
type Provider interface {
	// List returns metadata for every .json file under the root.
	List() ([]models.BoardFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
