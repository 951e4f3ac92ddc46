package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/khaledhikmat/fire-go/service/config"
)

const uploadPartSize = 10 * 1024 * 1024

type s3Service struct {
	CfgSvc   config.IService
	params   config.S3Parameters
	uploader *manager.Uploader
}

// NewS3 stores files in an S3 compatible bucket (AWS or minio).
func NewS3(cfgsvc config.IService) IService {
	params := cfgsvc.GetS3Parameters()

	client := s3.NewFromConfig(aws.Config{Region: params.Region}, func(o *s3.Options) {
		if params.Endpoint != "" {
			o.BaseEndpoint = aws.String(params.Endpoint)
			o.UsePathStyle = true
		}
		if params.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(params.AccessKey, params.SecretKey, "")
		}
	})

	return &s3Service{
		CfgSvc: cfgsvc,
		params: params,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = uploadPartSize
		}),
	}
}

func (svc *s3Service) StoreFile(ctx context.Context, fileName string) (string, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := filepath.Base(fileName)
	out, err := svc.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(svc.params.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading %s to bucket %s: %w", key, svc.params.Bucket, err)
	}

	return out.Location, nil
}
