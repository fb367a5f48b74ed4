package storage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"

	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/services/storage/aws_client"
)

const (
	ProviderR2 = "r2"
	ProviderS3 = "s3"
)

// NewExportStorageService returns nil when no storage credentials are configured.
func NewExportStorageService(cfg *config.StorageConfig) interfaces.StorageService {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.Provider == ProviderS3 {
		return NewS3StorageService(cfg.AWSRegion, cfg.AccessKeyID, cfg.AccessKeySecret, cfg.ExportBucket, cfg.CDNDomain)
	}
	return NewR2StorageService(cfg.AccountID, cfg.AccessKeyID, cfg.AccessKeySecret, cfg.ExportBucket, cfg.CDNDomain)
}

// NewS3StorageService creates a StorageService configured for AWS S3
func NewS3StorageService(awsRegion, accessKeyID, accessKeySecret, bucketName, cdnDomain string) interfaces.StorageService {
	s3Client := aws_client.NewS3Client(&aws.Config{
		Region:      aws.String(awsRegion),
		Credentials: credentials.NewStaticCredentials(accessKeyID, accessKeySecret, ""),
	})

	return NewStorageService(s3Client, StorageConfig{
		BucketName: bucketName,
		CDNDomain:  cdnDomain,
	})
}

// NewR2StorageService creates a StorageService configured for Cloudflare R2
func NewR2StorageService(accountID, accessKeyID, accessKeySecret, bucketName, cdnDomain string) interfaces.StorageService {
	r2Client := aws_client.NewS3Client(&aws.Config{
		Endpoint:         aws.String("https://" + accountID + ".r2.cloudflarestorage.com"),
		Region:           aws.String("auto"),
		Credentials:      credentials.NewStaticCredentials(accessKeyID, accessKeySecret, ""),
		S3ForcePathStyle: aws.Bool(true),
	})

	return NewStorageService(r2Client, StorageConfig{
		BucketName: bucketName,
		CDNDomain:  cdnDomain,
	})
}
