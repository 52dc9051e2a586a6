// Package storage provides the object store that holds uploaded samples.
package storage

import (
	"context"
	"io"
	"time"
)

// MaxListLimit caps the number of entries a single List call returns.
const MaxListLimit = 1000

// HTTPMetadata is the HTTP-facing metadata stored alongside an object.
type HTTPMetadata struct {
	ContentType string `json:"contentType,omitempty" msgpack:"content_type"`
}

// Object describes a stored object without its content.
type Object struct {
	Key          string
	Size         int64
	ETag         string
	Uploaded     time.Time
	HTTPMetadata HTTPMetadata
}

// ObjectBody is an object together with a reader over its content.
// Callers must close Body.
type ObjectBody struct {
	Object
	Body io.ReadCloser
}

// PutOptions carries metadata recorded at write time.
type PutOptions struct {
	ContentType string
}

// ListOptions selects a page of objects. Cursor is the opaque token returned
// by a previous truncated page.
type ListOptions struct {
	Prefix    string
	Cursor    string
	Delimiter string
	Limit     int
}

// ListResult is one page of a listing.
type ListResult struct {
	Objects           []Object
	Truncated         bool
	Cursor            string
	DelimitedPrefixes []string
}

// Bucket is a flat keyed object store.
//
// Implementations must be safe for concurrent use. Writes to an existing key
// replace it; the last completed write wins.
type Bucket interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (*Object, error)
	Get(ctx context.Context, key string) (*ObjectBody, error)
	Head(ctx context.Context, key string) (*Object, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Delete(ctx context.Context, key string) error
}
