package media

import (
	"context"
	"fmt"
	"io"
)

// Store persists media blobs for mold records. Implementations must treat Delete of a
// missing blob as success.
type Store interface {
	Put(ctx context.Context, ownerID uint, originalName string, blob io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Key is the storage key for a sanitized filename owned by a record.
func Key(ownerID uint, sanitizedName string) string {
	return fmt.Sprintf("record_%d/%s", ownerID, sanitizedName)
}
