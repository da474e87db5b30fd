package minio_storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// MediaStorage holds course videos and thumbnails.
type MediaStorage struct {
	storage      *MinioStorage
	bucket       string
	presignedTTL time.Duration
}

func NewMediaStorage(ctx context.Context, storage *MinioStorage, bucketName string, presignedTTL time.Duration) (*MediaStorage, error) {
	if err := storage.EnsureBucket(ctx, bucketName); err != nil {
		return nil, err
	}
	return &MediaStorage{storage: storage, bucket: bucketName, presignedTTL: presignedTTL}, nil
}

func mediaObjectKey(kind string, courseID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("courses/%s/%s/%s%s", courseID, kind, uuid.NewString(), ext)
}

func (s *MediaStorage) Upload(
	ctx context.Context,
	kind string,
	courseID uuid.UUID,
	filename string,
	reader io.Reader,
	size int64,
	contentType string,
) (objectKey string, err error) {
	objectKey = mediaObjectKey(kind, courseID, filename)

	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(objectKey))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}

	_, err = s.storage.client.PutObject(ctx, s.bucket, objectKey, reader, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return objectKey, nil
}

func (s *MediaStorage) URL(ctx context.Context, objectKey string) (string, error) {
	u, err := s.storage.client.PresignedGetObject(ctx, s.bucket, objectKey, s.presignedTTL, make(url.Values))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MediaStorage) Delete(ctx context.Context, objectKey string) error {
	return s.storage.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
}
