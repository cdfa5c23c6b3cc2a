package cms

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var mediaExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".mp4": true, ".mov": true, ".avi": true, ".webm": true,
}

// MediaName reduces an uploaded file name to a bare, allowed file name.
func MediaName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || strings.HasPrefix(base, ".") {
		return "", ErrInvalidMedia
	}
	if !mediaExtensions[strings.ToLower(filepath.Ext(base))] {
		return "", ErrInvalidMedia
	}
	return base, nil
}

// SaveMedia writes an upload into the media directory and returns the bare
// file name to store in the document. Existing files with the same name are
// overwritten.
func (s *Service) SaveMedia(name string, r io.Reader) (string, error) {
	base, err := MediaName(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}
	f, err := os.Create(filepath.Join(s.mediaDir, base))
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close media file: %w", err)
	}
	return base, nil
}
