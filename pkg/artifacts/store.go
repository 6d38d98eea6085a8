package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// checksumMetadataKey records the archive hash on the stored object
const checksumMetadataKey = "sha256"

// Store keeps compilation outputs outside the working directory
type Store interface {
	Put(ctx context.Context, name string, files []File, metadata map[string]string) (*StoreResult, error)
	Get(ctx context.Context, name string) ([]File, map[string]string, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
}

// StoreResult describes an uploaded archive
type StoreResult struct {
	Key            string
	Bucket         string
	Hash           string
	Size           int64
	CompressedSize int64
}

// StoreConfig configures the S3 store
type StoreConfig struct {
	Bucket         string
	Prefix         string
	Region         string
	Endpoint       string // S3 compatible endpoint, empty for AWS
	VerifyChecksum bool
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Prefix:         "compilations/",
		VerifyChecksum: true,
	}
}

// s3API is the subset of the S3 client the store uses
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store stores compilation outputs as tar.gz objects in S3
type S3Store struct {
	client s3API
	config StoreConfig
}

// NewS3Store creates a store using the default AWS credential chain
func NewS3Store(ctx context.Context, cfg StoreConfig) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg), nil
}

func newS3Store(client s3API, cfg StoreConfig) *S3Store {
	return &S3Store{client: client, config: cfg}
}

// Put archives files and uploads them under name
func (s *S3Store) Put(ctx context.Context, name string, files []File, metadata map[string]string) (*StoreResult, error) {
	compressed, hash, size, err := Archive(files)
	if err != nil {
		return nil, fmt.Errorf("failed to archive outputs: %w", err)
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[checksumMetadataKey] = hash

	key := s.key(name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(compressed),
		ContentType: aws.String(ArchiveContentType),
		Metadata:    meta,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return &StoreResult{
		Key:            key,
		Bucket:         s.config.Bucket,
		Hash:           hash,
		Size:           size,
		CompressedSize: int64(len(compressed)),
	}, nil
}

// Get downloads and unpacks the outputs stored under name
func (s *S3Store) Get(ctx context.Context, name string) ([]File, map[string]string, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	files, hash, err := Extract(data)
	if err != nil {
		return nil, nil, err
	}

	metadata := output.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	if want, ok := metadata[checksumMetadataKey]; ok && s.config.VerifyChecksum && want != hash {
		return nil, nil, fmt.Errorf("%w: %s has %s, recorded %s", ErrChecksumMismatch, name, hash, want)
	}
	return files, metadata, nil
}

// Exists reports whether outputs are stored under name
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the outputs stored under name
func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// key formats {prefix}/{name}/outputs.tar.gz
func (s *S3Store) key(name string) string {
	return path.Join(s.config.Prefix, name, "outputs.tar.gz")
}
