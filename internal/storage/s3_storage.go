package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
)

// S3DocumentStore stores certification documents in a private S3 bucket
type S3DocumentStore struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3DocumentStore(ctx context.Context, region, bucket, accessKeyID, secretAccessKey, prefix string) *S3DocumentStore {
	var cfg aws.Config
	var err error

	// If credentials are provided, use them. Otherwise, use default credential chain
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			logger.Warn("Failed to load default AWS config, using region only", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = aws.Config{Region: region}
		}
	}

	return &S3DocumentStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3DocumentStore) Save(ctx context.Context, data []byte, meta DocumentMetadata) (string, error) {
	key := documentKey(s.prefix, meta)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(meta.ContentType),
		Metadata: map[string]string{
			"owner-id":          fmt.Sprintf("%d", meta.OwnerID),
			"original-filename": url.QueryEscape(meta.Filename),
		},
	})
	if err != nil {
		logger.Error("Failed to upload document to S3", err, map[string]interface{}{
			"bucket":   s.bucket,
			"key":      key,
			"owner_id": meta.OwnerID,
		})
		return "", fmt.Errorf("failed to upload document: %w", err)
	}

	logger.Info("Document uploaded to S3", map[string]interface{}{
		"key":      key,
		"size":     len(data),
		"owner_id": meta.OwnerID,
	})
	return key, nil
}

func (s *S3DocumentStore) Load(ctx context.Context, ref string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrDocumentNotFound
		}
		logger.Error("Failed to download document from S3", err, map[string]interface{}{
			"bucket": s.bucket,
			"key":    ref,
		})
		return nil, fmt.Errorf("failed to download document: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document body: %w", err)
	}
	return data, nil
}

func (s *S3DocumentStore) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		logger.Error("Failed to delete document from S3", err, map[string]interface{}{
			"bucket": s.bucket,
			"key":    ref,
		})
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
