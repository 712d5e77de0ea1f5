package filestorage

import (
	"errors"
	"mime/multipart"
)

// Upload errors
var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFileWithPath stores the upload under subPath with a generated name
	// and returns its public URL.
	SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (string, error)

	// DeleteFile removes a file previously returned by SaveFileWithPath.
	// Missing files are not an error.
	DeleteFile(fileURL string) error

	// GetFullPath maps a public URL back to its filesystem path, or "" when
	// the URL does not belong to this storage.
	GetFullPath(fileURL string) string
}
