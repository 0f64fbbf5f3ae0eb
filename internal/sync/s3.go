package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config locates the export object. Endpoint is for S3-compatible stores
// such as MinIO and switches to path-style addressing.
type S3Config struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string
}

// putObjectAPI is the slice of the S3 client the destination uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination overwrites a single object with the latest history.
type S3Destination struct {
	api    putObjectAPI
	bucket string
	key    string
}

// NewS3Destination builds an S3 client from the default AWS credential
// chain.
func NewS3Destination(ctx context.Context, cfg S3Config) (*S3Destination, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.Key == "" {
		return nil, errors.New("s3 key is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{api: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (d *S3Destination) Name() string {
	return fmt.Sprintf("s3://%s/%s", d.bucket, d.key)
}

// Write uploads data as the export object, asking S3 to verify a SHA-256
// checksum.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	in := &s3.PutObjectInput{
		Bucket:            aws.String(d.bucket),
		Key:               aws.String(d.key),
		Body:              bytes.NewReader(data),
		ContentLength:     aws.Int64(int64(len(data))),
		ContentType:       aws.String("application/x-ndjson"),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		Metadata:          map[string]string{"exporter": "gatecheck"},
	}
	if _, err := d.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3 put %s: %w", d.Name(), err)
	}
	return nil
}
