package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// Archiver stores an export file and returns a time limited download URL
type Archiver interface {
	Archive(ctx context.Context, tenantID, filename, contentType string, data []byte) (string, error)
}

// S3Config configures the export archive bucket
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // optional, e.g. localstack
	AccessKey string
	SecretKey string
	URLTTL    time.Duration
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive uploads export files to S3
type S3Archive struct {
	client  objectPutter
	presign func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	bucket  string
	prefix  string
	ttl     time.Duration
	now     func() time.Time
	logger  *logrus.Entry
}

// NewS3Archive builds the S3 client from the default credential chain, with
// static credentials and a custom endpoint when configured
func NewS3Archive(ctx context.Context, cfg S3Config, logger *logrus.Logger) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("export bucket not configured")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	cfgOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		cfgOpts = append(cfgOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	presigner := s3.NewPresignClient(client)

	archive := newS3Archive(client, cfg, logger)
	archive.presign = func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
		req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, func(o *s3.PresignOptions) {
			o.Expires = ttl
		})
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}
	return archive, nil
}

func newS3Archive(client objectPutter, cfg S3Config, logger *logrus.Logger) *S3Archive {
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.WithField("component", "storage.s3_archive"),
	}
}

// ObjectKey places exports under <prefix>/<tenant>/<yyyy>/<mm>/<unix>-<filename>
func (a *S3Archive) ObjectKey(tenantID, filename string) string {
	now := a.now().UTC()
	return path.Join(a.prefix, tenantID, now.Format("2006"), now.Format("01"),
		fmt.Sprintf("%d-%s", now.Unix(), path.Base(filename)))
}

// Archive uploads data and returns a presigned GET URL for it
func (a *S3Archive) Archive(ctx context.Context, tenantID, filename, contentType string, data []byte) (string, error) {
	key := a.ObjectKey(tenantID, filename)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"bucket": a.bucket,
		"key":    key,
		"bytes":  len(data),
	}).Info("Export archived")

	if a.presign == nil {
		return "", nil
	}
	url, err := a.presign(ctx, a.bucket, key, a.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign export download: %w", err)
	}
	return url, nil
}
