// Package storage keeps job-site files in an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"
)

// ErrNotExist is returned when a key has no object.
var ErrNotExist = errors.New("storage: object does not exist")

// ErrInvalidKey rejects keys that escape the store namespace.
var ErrInvalidKey = errors.New("storage: invalid key")

// Info describes a stored object.
type Info struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Object is an open stored object. Callers must Close it.
type Object interface {
	io.ReadSeekCloser
	Info() Info
}

// ObjectStore provides access to object storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}

// URLPrefix is the route files are served back from.
const URLPrefix = "/stockage/"

// ObjectPath returns the key of a file uploaded to a job site: chantiers/{id}/{unixmillis}_{name}.
func ObjectPath(siteID, filename string, now time.Time) string {
	return fmt.Sprintf("chantiers/%s/%d_%s", siteID, now.UnixMilli(), SafeName(filename))
}

// SafeName strips directories and control characters from a client-supplied file name.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '/' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "fichier"
	}
	return name
}

// URL returns the path a stored key is served from.
func URL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return URLPrefix + strings.Join(parts, "/")
}

// CleanKey validates a key and returns its canonical form.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
