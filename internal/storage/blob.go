// Package storage hosts uploaded and generated media and hands back durable
// public URLs. Any upload error aborts the pipeline step that needed it.
package storage

import "context"

// BlobStore persists raw bytes under a key and returns a durable public URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
