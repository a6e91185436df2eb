package s3mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
)

// API is the subset of the S3 client the mirror calls.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string // Custom endpoint for R2/MinIO
	AccessKey string // Optional if using env vars
	SecretKey string // Optional if using env vars
}

// Mirror stores the recorder snapshot as a single S3 object.
type Mirror struct {
	api    API
	bucket string
	key    string
	logger *logrus.Logger
}

// New builds an S3 client from cfg.
func New(ctx context.Context, cfg Config, logger *logrus.Logger) (*Mirror, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, errors.New("s3 mirror requires bucket and key")
	}
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return NewWithAPI(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Key, logger), nil
}

func NewWithAPI(api API, bucket, key string, logger *logrus.Logger) *Mirror {
	return &Mirror{api: api, bucket: bucket, key: key, logger: logger}
}

// Fetch downloads the snapshot object to path. A missing object is not an error.
func (m *Mirror) Fetch(ctx context.Context, path string) (bool, error) {
	resp, err := m.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return false, nil
		}
		return false, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer resp.Body.Close()

	// The object lands in a pending file and replaces path only once fully written.
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return false, fmt.Errorf("failed to create fetched snapshot: %w", err)
	}
	defer pending.Cleanup()

	n, err := io.Copy(pending, resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read S3 response: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return false, fmt.Errorf("failed to write fetched snapshot: %w", err)
	}
	m.logger.WithFields(logrus.Fields{"bucket": m.bucket, "key": m.key, "bytes": n}).Info("Fetched snapshot from S3")
	return true, nil
}

// Publish uploads the file at path, replacing the object.
func (m *Mirror) Publish(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	_, err = m.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	m.logger.WithFields(logrus.Fields{"bucket": m.bucket, "key": m.key, "bytes": len(data)}).Debug("Published snapshot to S3")
	return nil
}
