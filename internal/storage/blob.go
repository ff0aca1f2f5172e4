// Package storage provides the durable blob store used to re-host transient
// provider assets and seller uploads.
package storage

import "context"

// UploadOptions shape where and how an object is stored.
type UploadOptions struct {
	Folder       string
	PublicIDHint string
	ContentType  string
	Tags         []string
}

// StoredObject locates an uploaded blob. Handle is the deletion key.
type StoredObject struct {
	URL    string
	Handle string
}

// BlobStore uploads and deletes binary assets. Upload is not idempotent;
// calling it twice stores two objects.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, opts UploadOptions) (*StoredObject, error)
	Delete(ctx context.Context, handle string) error
}
