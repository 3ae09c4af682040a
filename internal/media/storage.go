// Package media handles image uploads for avatars and cover images.
// Files are validated in-process (MIME allow-list, size cap, magic bytes)
// and stored in S3-compatible object storage under date-based keys. The
// service returns the public URL that gets persisted on the user record.
package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/soradyne/clipstream/internal/config"
)

// Object is a stored file: its bucket key and public URL.
type Object struct {
	Key string
	URL string
}

// Storage is the object storage boundary. Implemented by S3Storage;
// tests substitute an in-memory fake.
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (*Object, error)

	// Delete removes the object addressed by its public URL. Used to roll
	// back uploads when a dependent database write fails.
	Delete(ctx context.Context, url string) error
}

// S3Storage stores objects in an S3-compatible bucket (AWS S3, MinIO, ...).
type S3Storage struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewS3Storage builds an S3 client from static credentials. A custom
// Endpoint switches to path-style addressing, which MinIO and most
// self-hosted S3 implementations require.
func NewS3Storage(ctx context.Context, cfg config.StorageConfig) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Put uploads the object and returns its key and public URL.
func (s *S3Storage) Put(ctx context.Context, key, contentType string, data []byte) (*Object, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("putting object %s: %w", key, err)
	}

	return &Object{
		Key: key,
		URL: s.publicBaseURL + "/" + key,
	}, nil
}

// Delete removes an object by its public URL.
func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key := strings.TrimPrefix(url, s.publicBaseURL+"/")
	if key == "" || key == url {
		return fmt.Errorf("url %s is not under the storage base", url)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}
