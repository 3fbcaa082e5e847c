package domain

import (
	"context"
	"io"
)

// ImageUpload is a file handle handed in by the upload boundary.
// Size is the declared byte size and is checked before Reader is touched.
type ImageUpload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// ImageStore archives normalized images outside the response record.
type ImageStore interface {
	// Put stores data under key and returns the object location.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
