package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// MaxPhotoBytes caps candidate photo uploads.
const MaxPhotoBytes = 5 << 20

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateImage sniffs the upload content and enforces maxBytes. It returns
// the detected MIME type.
func ValidateImage(fileHeader *multipart.FileHeader, maxBytes int64) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("%w: no file", ErrUnsupportedType)
	}
	if fileHeader.Size > maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, fileHeader.Size, maxBytes)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}

	mime := http.DetectContentType(head[:n])
	if !imageTypes[mime] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}
	return mime, nil
}
