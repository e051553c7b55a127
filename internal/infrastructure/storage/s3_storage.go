package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/pkg/awsutil"
)

// S3API is the subset of the S3 client the store uses
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3DocumentStore implements port.DocumentStore on an S3 bucket
type S3DocumentStore struct {
	client S3API
	bucket string
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// NewS3Client builds an S3 client. A custom endpoint switches to path-style
// addressing so LocalStack and MinIO work.
func NewS3Client(awsCfg aws.Config, cfg awsutil.Config) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ep := cfg.EndpointOverride(); ep != nil {
			o.BaseEndpoint = ep
			o.UsePathStyle = true
		}
	})
}

// NewS3DocumentStore creates a store writing under prefix in bucket
func NewS3DocumentStore(client S3API, bucket, prefix string, logger *zap.Logger) *S3DocumentStore {
	return &S3DocumentStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

func (s *S3DocumentStore) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

// Store uploads content under a fresh key
func (s *S3DocumentStore) Store(ctx context.Context, claimID string, content []byte, meta entity.DocumentMeta) (entity.DocumentRef, error) {
	id := newDocumentID()
	key := s.objectKey(documentKey(claimID, id, meta.FileName))

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"claim-id":    claimID,
			"document-id": id,
			"category":    string(meta.Category),
			"uploaded-by": meta.UploadedBy,
		},
	})
	if err != nil {
		s.logger.Error("Failed to upload document",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return entity.DocumentRef{}, fmt.Errorf("failed to upload document: %w", err)
	}

	s.logger.Debug("Document uploaded",
		zap.String("claim_id", claimID),
		zap.String("key", key),
		zap.Int("size", len(content)))

	return entity.DocumentRef{
		ID:          id,
		Category:    meta.Category,
		FileName:    meta.FileName,
		ContentType: contentType,
		Size:        int64(len(content)),
		StorageKey:  key,
		UploadedBy:  meta.UploadedBy,
		UploadedAt:  s.now(),
	}, nil
}

// Delete removes the object of ref. S3 deletes are idempotent.
func (s *S3DocumentStore) Delete(ctx context.Context, ref entity.DocumentRef) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.StorageKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil
		}
		s.logger.Error("Failed to delete document",
			zap.String("bucket", s.bucket),
			zap.String("key", ref.StorageKey),
			zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Ping checks the bucket is reachable
func (s *S3DocumentStore) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("bucket %s unavailable: %w", s.bucket, err)
	}
	return nil
}

var (
	_ port.DocumentStore = (*S3DocumentStore)(nil)
	_ port.HealthChecker = (*S3DocumentStore)(nil)
)
