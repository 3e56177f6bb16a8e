package supabase

import (
	"context"
	"fmt"
	"io"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

const modelContentType = "model/gltf-binary"

// StorageClient uploads model binaries to a Supabase storage bucket and
// issues their public URLs.
type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, apiKey, bucket string) *StorageClient {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", apiKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// UploadModel writes the binary under key with upsert semantics, so
// re-fetching a task overwrites the object instead of duplicating it.
func (s *StorageClient) UploadModel(ctx context.Context, key string, data io.Reader) error {
	contentType := modelContentType
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, data, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload model: %w", err)
	}
	return nil
}

func (s *StorageClient) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}

func (s *StorageClient) RemoveModel(ctx context.Context, key string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{key})
	if err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}
	return nil
}
