package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func fixedArchive(putter objectPutter) *S3Archive {
	a := newS3Archive(putter, S3Config{Bucket: "exports", Prefix: "catalog"}, quietLogger())
	a.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	return a
}

func TestS3Archive_UploadsAndPresigns(t *testing.T) {
	putter := &fakePutter{}
	a := fixedArchive(putter)

	var presignedKey string
	var presignedTTL time.Duration
	a.presign = func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
		presignedKey, presignedTTL = key, ttl
		return "https://exports.example.com/" + key + "?sig=1", nil
	}

	url, err := a.Archive(context.Background(), "tenant-a", "products.csv", "text/csv", []byte("name\nTee\n"))
	require.NoError(t, err)

	wantKey := "catalog/tenant-a/2026/05/1777888800-products.csv"
	assert.Equal(t, wantKey, aws.ToString(putter.input.Key))
	assert.Equal(t, "exports", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "text/csv", aws.ToString(putter.input.ContentType))
	assert.Equal(t, "name\nTee\n", string(putter.body))
	assert.Equal(t, wantKey, presignedKey)
	assert.Equal(t, 15*time.Minute, presignedTTL)
	assert.Contains(t, url, wantKey)
}

func TestS3Archive_UploadFailure(t *testing.T) {
	a := fixedArchive(&fakePutter{err: errors.New("access denied")})
	_, err := a.Archive(context.Background(), "tenant-a", "products.csv", "text/csv", nil)
	assert.ErrorContains(t, err, "access denied")
}

func TestS3Archive_ObjectKeyStripsDirectories(t *testing.T) {
	a := fixedArchive(&fakePutter{})
	assert.Equal(t, "catalog/t/2026/05/1777888800-x.json", a.ObjectKey("t", "../../x.json"))
}

func TestNewS3Archive_RequiresBucket(t *testing.T) {
	_, err := NewS3Archive(context.Background(), S3Config{}, nil)
	assert.Error(t, err)
}
