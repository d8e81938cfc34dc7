// Package blob adapts the source-file stores the pipeline reads from.
package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrNotFound means the addressed object does not exist.
var ErrNotFound = errors.New("source object not found")

// Opener opens a byte stream for one stored object. The bucket is a
// directory for the filesystem implementation and an S3 bucket otherwise.
type Opener interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// FSOpener serves objects from the local filesystem, with buckets mapped to
// directories under an optional root. Used for local runs and tests.
type FSOpener struct {
	root string
}

// NewFSOpener creates a filesystem opener rooted at root ("" means cwd).
func NewFSOpener(root string) *FSOpener {
	return &FSOpener{root: root}
}

// Open implements Opener.
func (o *FSOpener) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(o.root, bucket, key)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return f, nil
}
