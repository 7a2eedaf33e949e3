package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fic-go/internal/config"
	"fic-go/internal/fic"
)

// S3GetObjectAPI is the subset of *s3.Client used to read the baseline.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3UploadAPI is the subset of *manager.Uploader used to write the baseline.
type S3UploadAPI interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Store keeps the baseline JSON document as a single S3 object.
type S3Store struct {
	getter   S3GetObjectAPI
	uploader S3UploadAPI
	bucket   string
	key      string
	codec    blobCodec
}

var _ fic.SnapshotStore = (*S3Store)(nil)

// NewS3Store creates a store for bucket/key using the given clients.
func NewS3Store(getter S3GetObjectAPI, uploader S3UploadAPI, bucket, key string, opts ...Option) *S3Store {
	return &S3Store{
		getter:   getter,
		uploader: uploader,
		bucket:   bucket,
		key:      key,
		codec:    newBlobCodec(opts),
	}
}

// NewS3StoreFromConfig builds the AWS client from cfg. Region, endpoint and
// static credentials are optional; without them the SDK's default chain
// (environment, shared config, instance role) applies.
func NewS3StoreFromConfig(ctx context.Context, cfg config.StoreConfig, opts ...Option) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 store requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		provider := credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(provider))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	key := cfg.S3Key
	if key == "" {
		key = config.DefaultBaselineFile
	}
	return NewS3Store(client, manager.NewUploader(client), cfg.S3Bucket, key, opts...), nil
}

// Load fetches and parses the baseline object. A missing object is an
// empty baseline.
func (s *S3Store) Load() (fic.Snapshot, error) {
	ctx := context.Background()

	out, err := s.getter.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return fic.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", s.bucket, s.key, err)
	}

	snap, err := s.codec.unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("loading baseline s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return snap, nil
}

// Save uploads snap, replacing the object. S3 object writes are atomic, so
// readers see either the old or the new baseline.
func (s *S3Store) Save(snap fic.Snapshot) error {
	data, err := s.codec.marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: %w", fic.ErrWriteFailed, err)
	}

	contentType := "application/json"
	if s.codec.encrypted() {
		contentType = "application/octet-stream"
	}

	_, err = s.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("%w: uploading s3://%s/%s: %w", fic.ErrWriteFailed, s.bucket, s.key, err)
	}
	return nil
}
