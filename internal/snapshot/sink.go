// Package snapshot copies catalogs to and from snapshot sinks.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a named snapshot does not exist in a sink.
var ErrNotFound = errors.New("snapshot not found")

// Info describes a stored snapshot.
type Info struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

// Encrypted reports whether the snapshot was written age-encrypted.
func (i Info) Encrypted() bool { return strings.HasSuffix(i.Name, encryptedSuffix) }

// Sink stores named snapshot blobs. Names are flat: no separators.
type Sink interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	Get(ctx context.Context, name string, w io.Writer) error
	// List returns every snapshot, newest first.
	List(ctx context.Context) ([]Info, error)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || path.Base(name) != name || strings.ContainsRune(name, '\\') {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}
