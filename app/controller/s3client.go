package controller

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

const UploadWorkerCount = 3

type S3ClientRepository interface {
	UploadFiles(ctx context.Context, files []string, prefix string) error
}

type UploaderInterface interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Client struct {
	bucketName string
	Client     *s3.Client
	Uploader   UploaderInterface
}

func NewS3Client(ctx context.Context, url string, accessKeyID string, accessKeySecret string, bucketName string, region string, sslVerify bool) (S3ClientRepository, error) {
	httpClient := awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		if !sslVerify {
			if tr.TLSClientConfig == nil {
				tr.TLSClientConfig = &tls.Config{}
			}
			tr.TLSClientConfig.InsecureSkipVerify = true
		}
	})

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithHTTPClient(httpClient),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
	)
	if err != nil {
		return nil, err
	}
	realClient := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(url)
		o.UsePathStyle = true
		// Disable request payload checksum computation for S3-compatible storage
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &S3Client{
		Client: realClient,
		Uploader: manager.NewUploader(realClient, func(u *manager.Uploader) {
			u.PartSize = 64 * 1024 * 1024
		}),
		bucketName: bucketName,
	}, nil
}

// UploadFiles pushes backup archives under the given key prefix. Uploads run
// through a small worker pool since a migration produces at most a handful
// of archives.
func (s *S3Client) UploadFiles(parent context.Context, files []string, prefix string) error {
	g, ctx := errgroup.WithContext(parent)
	jobs := make(chan string)

	g.Go(func() error {
		defer close(jobs)
		for _, file := range files {
			select {
			case jobs <- file:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < UploadWorkerCount; i++ {
		g.Go(func() error {
			for file := range jobs {
				key := path.Join(prefix, filepath.Base(file))
				if err := s.uploadFile(ctx, file, key); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *S3Client) uploadFile(ctx context.Context, src string, key string) (err error) {
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", src, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file %s: %v", src, cerr)
		}
	}()

	_, err = s.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("couldn't upload object to %v:%v err: %w", s.bucketName, key, err)
	}

	err = s3.NewObjectExistsWaiter(s.Client).Wait(
		ctx,
		&s3.HeadObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(key),
		},
		time.Minute)
	if err != nil {
		return fmt.Errorf("failed attempt to wait for object %s to exist err: %w", key, err)
	}
	return nil
}
