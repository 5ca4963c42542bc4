package blobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSProvider writes payloads to a Google Cloud Storage bucket.
type GCSProvider struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSProvider creates a GCS-backed provider. It authenticates using
// Application Default Credentials.
func NewGCSProvider(ctx context.Context, bucket, prefix string) (*GCSProvider, error) {
	if bucket == "" {
		return nil, fmt.Errorf("blobs.bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSProvider{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

// PutObject uploads data and returns a gs:// URI.
func (p *GCSProvider) PutObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	key := path
	if p.prefix != "" {
		key = p.prefix + "/" + strings.TrimPrefix(path, "/")
	}
	writer := p.client.Bucket(p.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", p.bucket, key), nil
}

// Close releases the storage client.
func (p *GCSProvider) Close() error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}
