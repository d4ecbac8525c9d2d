package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"karmasri/pkg/utils"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds document contents keyed by document id.
type BlobStore interface {
	Put(ctx context.Context, id, contentType string, data []byte) error
	Open(ctx context.Context, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteBlobs keeps contents in the document_blobs table.
type SQLiteBlobs struct {
	DB *sql.DB
}

func (s SQLiteBlobs) Put(ctx context.Context, id, _ string, data []byte) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO document_blobs (document_id, data) VALUES (?, ?)
		ON CONFLICT(document_id) DO UPDATE SET data = excluded.data
	`, id, data)
	if err != nil {
		return fmt.Errorf("put blob: %w", err)
	}
	return nil
}

func (s SQLiteBlobs) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	var data []byte
	err := s.DB.QueryRowContext(ctx, `SELECT data FROM document_blobs WHERE document_id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s SQLiteBlobs) Delete(ctx context.Context, id string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM document_blobs WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// GCSBlobs keeps contents as objects in a Cloud Storage bucket.
type GCSBlobs struct {
	Bucket *storage.BucketHandle
	Prefix string
}

func NewGCSBlobs(ctx context.Context, cfg utils.DocumentsConfig) (*GCSBlobs, *storage.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSBlobs{Bucket: client.Bucket(cfg.Bucket), Prefix: cfg.Prefix}, client, nil
}

func (g *GCSBlobs) object(id string) *storage.ObjectHandle {
	return g.Bucket.Object(g.Prefix + id)
}

func (g *GCSBlobs) Put(ctx context.Context, id, contentType string, data []byte) error {
	w := g.object(id).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, no-store"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs writer %s: %w", id, err)
	}
	return nil
}

func (g *GCSBlobs) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	r, err := g.object(id).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("read gcs object %s: %w", id, err)
	}
	return r, nil
}

func (g *GCSBlobs) Delete(ctx context.Context, id string) error {
	err := g.object(id).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs object %s: %w", id, err)
	}
	return nil
}
