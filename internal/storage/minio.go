package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore persists blobs in an S3-compatible bucket. The handle is the
// object key inside the bucket.
type MinioStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// MinioOptions configures a MinioStore.
type MinioOptions struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	// PublicBaseURL is the URL prefix under which bucket objects are served.
	PublicBaseURL string
}

// NewMinioStore connects a blob store to an S3-compatible endpoint.
func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("storage: minio endpoint and bucket are required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create minio client: %w", err)
	}
	publicBaseURL := strings.TrimRight(opts.PublicBaseURL, "/")
	if publicBaseURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
	}
	return &MinioStore{client: client, bucket: opts.Bucket, publicBaseURL: publicBaseURL}, nil
}

// Upload stores the bytes under a generated object key and returns its public
// URL and the key as deletion handle.
func (s *MinioStore) Upload(ctx context.Context, data []byte, opts UploadOptions) (*StoredObject, error) {
	key := objectKey(opts)
	putOpts := minio.PutObjectOptions{ContentType: opts.ContentType}
	if len(opts.Tags) > 0 {
		putOpts.UserTags = make(map[string]string, len(opts.Tags))
		for _, tag := range opts.Tags {
			putOpts.UserTags[tag] = ""
		}
	}
	if putOpts.ContentType == "" {
		putOpts.ContentType = "application/octet-stream"
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), putOpts); err != nil {
		return nil, fmt.Errorf("storage: put object: %w", err)
	}
	return &StoredObject{URL: s.publicBaseURL + "/" + key, Handle: key}, nil
}

// Delete removes the object behind the handle.
func (s *MinioStore) Delete(ctx context.Context, handle string) error {
	if handle == "" {
		return errors.New("storage: handle is required")
	}
	if err := s.client.RemoveObject(ctx, s.bucket, handle, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: remove object: %w", err)
	}
	return nil
}

func objectKey(opts UploadOptions) string {
	name := strings.TrimSpace(opts.PublicIDHint)
	if name == "" {
		name = uuid.NewString()
	}
	if ext := extensionFor(opts.ContentType); ext != "" && !strings.Contains(name, ".") {
		name += ext
	}
	folder := strings.Trim(opts.Folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "":
		return ""
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

var _ BlobStore = (*MinioStore)(nil)
