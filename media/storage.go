// Package media stores account avatar objects. The engine uses it for
// signup uploads and for compensating deletes when the account record
// cannot be created after the object has landed.
package media

import (
	"context"
	"io"
)

// Storage is the object-store surface the engine needs. Upload returns
// the public URL recorded on the account; Delete must be safe to call
// for keys that no longer exist.
type Storage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// NoOp is a Storage that stores nothing and returns empty URLs. Used
// when avatar handling is disabled.
type NoOp struct{}

func (NoOp) Upload(context.Context, string, string, io.Reader) (string, error) { return "", nil }
func (NoOp) Delete(context.Context, string) error                              { return nil }
