package loader

import (
	"context"
	"fmt"
	"io"

	"cv-rag/pkg/apperror"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore fetches source documents from S3-compatible storage.
type ObjectStore struct {
	client *minio.Client
}

var _ ObjectFetcher = &ObjectStore{}

func NewObjectStore(endpoint, accessKey, secretKey string, useSSL bool) (*ObjectStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, apperror.Configuration("loader.s3", "create object storage client for %s: %v", endpoint, err)
	}
	return &ObjectStore{client: client}, nil
}

func (s *ObjectStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.classify(bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.classify(bucket, key, err)
	}
	return data, nil
}

func (s *ObjectStore) classify(bucket, key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return apperror.Validation("loader.s3", "object s3://%s/%s does not exist", bucket, key)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return apperror.Configuration("loader.s3", "access to s3://%s/%s denied: %v", bucket, key, err)
	}
	return fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
}
