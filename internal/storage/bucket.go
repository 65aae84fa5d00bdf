package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
)

// Bucket stores artifacts in the Cloud Storage bucket of a Firebase project.
type Bucket struct {
	bucket *gcs.BucketHandle
}

// NewBucket opens the named bucket, or the project's default bucket when name is empty.
func NewBucket(ctx context.Context, app *firebase.App, name string) (*Bucket, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage client: %w", err)
	}
	var bh *gcs.BucketHandle
	if name == "" {
		bh, err = client.DefaultBucket()
	} else {
		bh, err = client.Bucket(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	return &Bucket{bucket: bh}, nil
}

func (b *Bucket) Open(ctx context.Context, locator string) (*Object, error) {
	r, err := b.bucket.Object(strings.TrimPrefix(locator, "/")).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return &Object{Body: r, Size: r.Attrs.Size}, nil
}

func (b *Bucket) Put(ctx context.Context, locator string, r io.Reader) error {
	w := b.bucket.Object(strings.TrimPrefix(locator, "/")).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}
