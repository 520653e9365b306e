package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps each key as a small object in a Cloud Storage bucket
type GCSStore struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGCSStore creates a Cloud Storage backed store. credentialsFile is
// optional; application default credentials are used when empty.
func NewGCSStore(ctx context.Context, bucketName, prefix, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &GCSStore{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
	}, nil
}

func (g *GCSStore) objectName(key string) string {
	return g.prefix + key
}

// Get reads the object for key
func (g *GCSStore) Get(ctx context.Context, key string) (string, bool, error) {
	obj := g.client.Bucket(g.bucketName).Object(g.objectName(key))

	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("opening object reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", false, fmt.Errorf("reading object data: %w", err)
	}

	return string(data), true, nil
}

// Set writes the object for key
func (g *GCSStore) Set(ctx context.Context, key, value string) error {
	obj := g.client.Bucket(g.bucketName).Object(g.objectName(key))

	writer := obj.NewWriter(ctx)
	writer.ContentType = "text/plain"

	if _, err := writer.Write([]byte(value)); err != nil {
		writer.Close()
		return fmt.Errorf("writing object data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing object writer: %w", err)
	}

	return nil
}

// Remove deletes the object for key; a missing object is not an error
func (g *GCSStore) Remove(ctx context.Context, key string) error {
	obj := g.client.Bucket(g.bucketName).Object(g.objectName(key))

	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting object: %w", err)
	}

	return nil
}

// Check lists the prefix to confirm the bucket is reachable and readable
func (g *GCSStore) Check(ctx context.Context) error {
	it := g.client.Bucket(g.bucketName).Objects(ctx, &storage.Query{Prefix: g.prefix})

	_, err := it.Next()
	if err == nil || errors.Is(err, iterator.Done) {
		return nil
	}
	return fmt.Errorf("listing objects: %w", err)
}

func (g *GCSStore) Durable() bool { return true }

// Close closes the Cloud Storage client
func (g *GCSStore) Close() error {
	return g.client.Close()
}
