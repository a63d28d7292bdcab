package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"smartroom/config"
	"smartroom/internal/models"
)

// MinioStorage hosts room media and user avatars. Object keys double as the
// stable blob identifiers carried in MediaRef.
type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioStorage(cfg config.MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}

	if !exists {
		err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, err
		}

		publicPolicy := `{
			"Version": "2012-10-17",
			"Statement": [
				{
					"Action": ["s3:GetObject"],
					"Effect": "Allow",
					"Principal": "*",
					"Resource": "arn:aws:s3:::` + cfg.Bucket + `/*"
				}
			]
		}`

		err = client.SetBucketPolicy(ctx, cfg.Bucket, publicPolicy)
		if err != nil {
			return nil, err
		}
	}

	return &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
	}, nil
}

// Upload stores the payload under the given logical folder and returns the
// object key plus a retrievable URL.
func (s *MinioStorage) Upload(ctx context.Context, reader io.Reader, size int64, contentType, filename, folder string) (models.MediaRef, error) {
	ext := filepath.Ext(filename)
	objectKey := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("%w: %v", models.ErrUpload, err)
	}

	url := fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(s.publicURL, "/"),
		s.bucket,
		objectKey,
	)

	return models.MediaRef{ID: objectKey, URL: url}, nil
}

// Release deletes the object behind a blob identifier. Kind ("image",
// "video", "avatar") is informational only; the key is self-describing.
func (s *MinioStorage) Release(ctx context.Context, id, kind string) error {
	err := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", models.ErrDelete, kind, id, err)
	}
	return nil
}
