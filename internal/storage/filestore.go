package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileScheme is the URI scheme of objects held by a FileStore.
const FileScheme = "file"

// FileStore keeps objects on local disk at <root>/<bucket>/<key>.
// It suits single-host deployments and tests; any URI scheme is accepted on
// download so references minted elsewhere resolve against the same layout.
type FileStore struct {
	root string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at root, creating the directory.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("store root cannot be empty: %w", ErrInvalidKey)
	}
	if err := os.MkdirAll(root, 0750); err != nil { // #nosec G301 -- store root
		return nil, fmt.Errorf("cannot create store root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Root returns the store directory.
func (s *FileStore) Root() string {
	return s.root
}

// Upload copies localPath into the store. Existing objects are replaced.
func (s *FileStore) Upload(ctx context.Context, localPath, bucket, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := s.objectPath(bucket, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil { // #nosec G301 -- bucket dir
		return "", fmt.Errorf("cannot create bucket directory: %w", err)
	}
	if err := copyFile(localPath, dst); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return Location{Scheme: FileScheme, Bucket: bucket, Key: key}.String(), nil
}

// Download copies the object at uri to localPath.
func (s *FileStore) Download(ctx context.Context, uri, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc, err := ParseURI(uri)
	if err != nil {
		return err
	}
	src, err := s.objectPath(loc.Bucket, loc.Key)
	if err != nil {
		return err
	}
	if err := copyFile(src, localPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", uri, ErrObjectNotFound)
		}
		return fmt.Errorf("download %s: %w", uri, err)
	}
	return nil
}

// objectPath resolves bucket/key under the root, rejecting traversal.
func (s *FileStore) objectPath(bucket, key string) (string, error) {
	if bucket == "" || key == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("bucket %q key %q: %w", bucket, key, ErrInvalidKey)
	}
	bucketDir := filepath.Join(s.root, bucket)
	p := filepath.Join(bucketDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(bucketDir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("key %q escapes bucket: %w", key, ErrInvalidKey)
	}
	return p, nil
}

// copyFile writes to a temp file beside dst and renames it into place so
// readers never see a partial object.
func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- paths are resolved by the store or the job
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
