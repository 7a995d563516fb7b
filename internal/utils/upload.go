package utils

import (
	"errors"         // Sentinel errors
	"fmt"            // Filename formatting
	"io"             // Copying uploads
	"math/rand/v2"   // Filename suffix
	"mime/multipart" // Uploaded file headers
	"os"             // Filesystem access
	"path/filepath"  // Path manipulation
	"regexp"         // Field name sanitizing
	"strings"        // Prefix checks
	"time"           // Filename timestamp

	"github.com/gabriel-vasile/mimetype" // Content sniffing
)

// MaxImageSize is the largest accepted upload
const MaxImageSize = 5 * 1024 * 1024

// UploadPrefix is the public URL prefix uploaded files are served under
const UploadPrefix = "/uploads/"

var (
	// ErrInvalidImageType is returned for anything but jpeg, jpg, png and webp
	ErrInvalidImageType = errors.New("Only images (jpeg, jpg, png, webp) are allowed!")
	// ErrImageTooLarge is returned for uploads over MaxImageSize
	ErrImageTooLarge = errors.New("Image must be 5MB or smaller")
)

var allowedExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".webp": true}

var allowedMIME = []string{"image/jpeg", "image/png", "image/webp"}

var unsafeFieldChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileStore persists uploaded images and removes them again
type FileStore interface {
	Save(fieldname string, fh *multipart.FileHeader) (string, error)
	Remove(publicPath string) error
}

// DiskStore keeps uploads in a single local directory
type DiskStore struct {
	Dir string // Directory holding the files
}

// NewDiskStore creates the upload directory if needed
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{Dir: dir}, nil
}

// ValidateImage checks the size, extension and sniffed content type of an upload
func ValidateImage(fh *multipart.FileHeader) error {
	if fh.Size > MaxImageSize {
		return ErrImageTooLarge
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
		return ErrInvalidImageType
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return err
	}
	if !mimetype.EqualsAny(mt.String(), allowedMIME...) {
		return ErrInvalidImageType
	}
	return nil
}

// UploadFilename builds `{fieldname}-{timestamp}-{random}{ext}`
func UploadFilename(fieldname, originalName string) string {
	field := unsafeFieldChars.ReplaceAllString(fieldname, "_")
	return fmt.Sprintf("%s-%d-%d%s", field, time.Now().UnixMilli(), rand.Int64N(1e9), strings.ToLower(filepath.Ext(originalName)))
}

// Save validates the upload, writes it under a unique name and returns its public path
func (s *DiskStore) Save(fieldname string, fh *multipart.FileHeader) (string, error) {
	if err := ValidateImage(fh); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := UploadFilename(fieldname, fh.Filename)
	dst, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, io.LimitReader(src, MaxImageSize+1)); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return UploadPrefix + name, nil
}

// Remove deletes a previously saved file. A file that is already gone is not an error.
func (s *DiskStore) Remove(publicPath string) error {
	if !strings.HasPrefix(publicPath, UploadPrefix) {
		return fmt.Errorf("not an upload path: %q", publicPath)
	}
	name := filepath.Base(publicPath) // Never leave the upload directory
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
