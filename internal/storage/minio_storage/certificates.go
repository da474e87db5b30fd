package minio_storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

type CertificateStorage struct {
	storage      *MinioStorage
	bucket       string
	presignedTTL time.Duration
}

func NewCertificateStorage(ctx context.Context, storage *MinioStorage, bucketName string, presignedTTL time.Duration) (*CertificateStorage, error) {
	if err := storage.EnsureBucket(ctx, bucketName); err != nil {
		return nil, err
	}
	return &CertificateStorage{storage: storage, bucket: bucketName, presignedTTL: presignedTTL}, nil
}

func (s *CertificateStorage) UploadCertificate(ctx context.Context, certificateID uuid.UUID, png []byte) (string, error) {
	objectKey := fmt.Sprintf("certificates/%s.png", certificateID)
	_, err := s.storage.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(png), int64(len(png)),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return "", err
	}
	return objectKey, nil
}

func (s *CertificateStorage) CertificateURL(ctx context.Context, objectKey string) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", `attachment; filename="certificate.png"`)
	u, err := s.storage.client.PresignedGetObject(ctx, s.bucket, objectKey, s.presignedTTL, reqParams)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *CertificateStorage) DeleteCertificate(ctx context.Context, objectKey string) error {
	return s.storage.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
}
