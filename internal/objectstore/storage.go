package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// Store writes uploaded artifacts to Supabase object storage. The upload
// pipeline only ever writes; reads go through the public URL.
type Store struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func New(supabaseURL, publishableKey, bucket string) (*Store, error) {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", publishableKey, nil)

	return &Store{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// Put uploads data under key and returns the object's public URL.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return s.PublicURL(key), nil
}

func (s *Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}
