package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrObjectNotFound is returned when a download URL is requested for a path
// that holds no object.
var ErrObjectNotFound = errors.New("object not found")

// Object path prefixes. The core never inspects object bytes; it only hands
// out the URL string that becomes a photo/video message payload.
const (
	ProfilePicturePrefix = "images"
	MessagePhotoPrefix   = "message_images"
	MessageVideoPrefix   = "message_videos"
)

// ProfilePictureFileName returns the canonical object name for a user's
// profile picture, e.g. "a-x-com_profile_picture.png".
func ProfilePictureFileName(identityKey string) string {
	return identityKey + "_profile_picture.png"
}

// Store is the object storage collaborator boundary: upload bytes under a
// target path and resolve a stored path to a downloadable URL.
type Store interface {
	UploadObject(ctx context.Context, r io.Reader, targetPath string) (string, error)
	ResolveDownloadURL(ctx context.Context, targetPath string) (string, error)
}

// DiskStore keeps objects on the local filesystem and serves them under
// {baseURL}/objects/. It stands in for a blob/CDN service behind the same
// interface.
type DiskStore struct {
	baseDir string
	baseURL string
}

// NewDiskStore creates the base directory if needed.
func NewDiskStore(baseDir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}
	return &DiskStore{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// BaseDir returns the directory objects are written under, for wiring the
// file server.
func (s *DiskStore) BaseDir() string {
	return s.baseDir
}

// UploadObject writes the object and returns its download URL.
func (s *DiskStore) UploadObject(_ context.Context, r io.Reader, targetPath string) (string, error) {
	cleaned, err := s.cleanPath(targetPath)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object parent directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create object file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	return s.urlFor(cleaned), nil
}

// ResolveDownloadURL returns the URL for an existing object, or
// ErrObjectNotFound.
func (s *DiskStore) ResolveDownloadURL(_ context.Context, targetPath string) (string, error) {
	cleaned, err := s.cleanPath(targetPath)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", ErrObjectNotFound
		}
		return "", fmt.Errorf("failed to stat object: %w", err)
	}

	return s.urlFor(cleaned), nil
}

func (s *DiskStore) urlFor(cleaned string) string {
	return s.baseURL + "/objects/" + cleaned
}

// cleanPath normalizes a slash-separated object path and rejects anything
// that would escape the base directory.
func (s *DiskStore) cleanPath(targetPath string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(targetPath, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object path %q", targetPath)
	}
	return cleaned, nil
}
