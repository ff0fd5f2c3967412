package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"collector/internal/logger"
)

// Supabase stores objects in a Supabase storage bucket.
type Supabase struct {
	client *storage_go.Client
	bucket string
	log    *logger.Logger
}

func NewSupabase(projectURL, serviceKey, bucket string) *Supabase {
	client := storage_go.NewClient(strings.TrimRight(projectURL, "/")+"/storage/v1", serviceKey, nil)
	return &Supabase{client: client, bucket: bucket, log: logger.New("SupabaseStore")}
}

func (s *Supabase) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, path)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return data, nil
}

func (s *Supabase) WriteFile(_ context.Context, path string, data []byte, contentType string) error {
	upsert := true
	opts := storage_go.FileOptions{Upsert: &upsert}
	if contentType != "" {
		opts.ContentType = &contentType
	}
	if _, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	s.log.LogDebugf("uploaded %s (%d bytes)", path, len(data))
	return nil
}
