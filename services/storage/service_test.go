package storage

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mxvalidator/config"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) Upload(ctx context.Context, input s3manager.UploadInput) error {
	body, _ := io.ReadAll(input.Body)
	args := m.Called(aws.StringValue(input.Bucket), aws.StringValue(input.Key), string(body), aws.StringValue(input.ContentType))
	return args.Error(0)
}

func (m *mockS3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(bucket, key)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestObjectStorageService_Upload(t *testing.T) {
	client := new(mockS3Client)
	client.On("Upload", "mx-exports", "exports/b1/file.csv", "a,b\n", "text/csv").Return(nil)

	svc := NewStorageService(client, StorageConfig{BucketName: "mx-exports"})
	err := svc.Upload(context.Background(), "exports/b1/file.csv", []byte("a,b\n"), "text/csv")

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestObjectStorageService_UploadError(t *testing.T) {
	client := new(mockS3Client)
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	svc := NewStorageService(client, StorageConfig{BucketName: "mx-exports"})
	err := svc.Upload(context.Background(), "k", []byte("x"), "text/csv")

	assert.ErrorIs(t, err, assert.AnError)
}

func TestObjectStorageService_Download(t *testing.T) {
	client := new(mockS3Client)
	client.On("Download", "mx-exports", "exports/b1/file.csv").Return([]byte("content"), nil)
	client.On("Download", "mx-exports", "missing").Return(nil, ErrObjectNotFound)

	svc := NewStorageService(client, StorageConfig{BucketName: "mx-exports"})

	data, err := svc.Download(context.Background(), "exports/b1/file.csv")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = svc.Download(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestObjectStorageService_GetPublicURL(t *testing.T) {
	withCDN := NewStorageService(new(mockS3Client), StorageConfig{BucketName: "b", CDNDomain: "cdn.example.com"})
	assert.Equal(t, "https://cdn.example.com/exports/x.csv", withCDN.GetPublicURL("exports/x.csv"))

	withoutCDN := NewStorageService(new(mockS3Client), StorageConfig{BucketName: "b"})
	assert.Empty(t, withoutCDN.GetPublicURL("exports/x.csv"))
}

func TestNewExportStorageService(t *testing.T) {
	assert.Nil(t, NewExportStorageService(&config.StorageConfig{}))

	svc := NewExportStorageService(&config.StorageConfig{
		Provider:        ProviderS3,
		AWSRegion:       "eu-west-1",
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		ExportBucket:    "mx-exports",
	})
	require.NotNil(t, svc)
	assert.Equal(t, "mx-exports", svc.(*ObjectStorageService).bucketName)
}
