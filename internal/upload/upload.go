// Package upload turns multipart form files into stored file paths.
// Files land under a configured directory with generated names; entities only
// ever store the public path string.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize is the per-file upload cap.
const MaxFileSize = 5 << 20 // 5MB

var (
	ErrTooLarge = errors.New("upload: file exceeds the 5MB limit")
	ErrNotImage = errors.New("upload: only image files are allowed")
	ErrNotPNG   = errors.New("upload: icon must be a PNG image")
)

// Saver stores uploaded files on the local filesystem.
type Saver struct {
	dir        string
	publicBase string
}

// New creates the upload directory if needed and returns a Saver whose stored
// paths are prefixed with publicBase.
func New(dir, publicBase string) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: failed to create upload dir: %w", err)
	}
	return &Saver{dir: dir, publicBase: strings.TrimSuffix(publicBase, "/")}, nil
}

// SaveImage stores a file accepted by any image/* content type and returns
// its public path.
func (s *Saver) SaveImage(fh *multipart.FileHeader) (string, error) {
	return s.save(fh, func(contentType string) error {
		if !strings.HasPrefix(contentType, "image/") {
			return ErrNotImage
		}
		return nil
	})
}

// SavePNG stores a file that must be a PNG image. Used for category icons.
func (s *Saver) SavePNG(fh *multipart.FileHeader) (string, error) {
	return s.save(fh, func(contentType string) error {
		if contentType != "image/png" {
			return ErrNotPNG
		}
		return nil
	})
}

func (s *Saver) save(fh *multipart.FileHeader, check func(contentType string) error) (string, error) {
	if fh.Size > MaxFileSize {
		return "", ErrTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("upload: failed to open uploaded file: %w", err)
	}
	defer src.Close()

	// Sniff the content type from the first bytes rather than trusting the
	// client-provided header.
	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("upload: failed to read uploaded file: %w", err)
	}
	if err := check(http.DetectContentType(head[:n])); err != nil {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("upload: failed to rewind uploaded file: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("upload: failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("upload: failed to write file: %w", err)
	}
	return s.publicBase + "/" + name, nil
}

// Remove deletes the stored file behind a public path. Best-effort: a missing
// file is not an error, anything else is only logged. Only the base name of
// the given path is used, so a stored path can never escape the upload dir.
func (s *Saver) Remove(publicPath string) {
	if publicPath == "" {
		return
	}
	name := path.Base(publicPath)
	if name == "." || name == "/" {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("ERROR: failed to remove uploaded file %s: %v", name, err)
	}
}

// Dir returns the local directory files are stored in, for static serving.
func (s *Saver) Dir() string { return s.dir }

// PublicBase returns the URL prefix stored paths carry.
func (s *Saver) PublicBase() string { return s.publicBase }
