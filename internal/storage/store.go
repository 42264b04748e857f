// Package storage moves job artifacts in and out of an object store
// addressed by scheme://bucket/key URIs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidURI indicates a URI without a scheme, bucket, or key.
	ErrInvalidURI = errors.New("invalid object uri")

	// ErrInvalidKey indicates a bucket or key that would escape the store.
	ErrInvalidKey = errors.New("invalid object key")

	// ErrObjectNotFound indicates the requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")
)

// Store uploads and downloads objects.
type Store interface {
	// Upload copies localPath to bucket/key and returns the object URI.
	Upload(ctx context.Context, localPath, bucket, key string) (string, error)

	// Download copies the object at uri to localPath.
	Download(ctx context.Context, uri, localPath string) error
}

// Location is a parsed object URI.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// String formats the location as scheme://bucket/key.
func (l Location) String() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// ParseURI splits scheme://bucket/key. The key may contain slashes.
func ParseURI(uri string) (Location, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return Location{}, fmt.Errorf("%q: missing scheme: %w", uri, ErrInvalidURI)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return Location{}, fmt.Errorf("%q: want %s://bucket/key: %w", uri, scheme, ErrInvalidURI)
	}
	return Location{Scheme: scheme, Bucket: bucket, Key: key}, nil
}
