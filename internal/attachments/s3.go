package attachments

import (
	"context"
	"fmt"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

// ObjectPutter is the S3 call the uploader makes.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes the file to a bucket and then registers it with the
// backend so it shows up on the record.
type S3Uploader struct {
	client   ObjectPutter
	bucket   string
	endpoint string
	backend  Backend
}

// NewS3Uploader loads the default AWS configuration. A custom endpoint
// switches to path-style addressing for MinIO and similar stores.
func NewS3Uploader(ctx context.Context, cfg Config, backend Backend) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("attachments: s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(awsCfg, opts...), cfg, backend), nil
}

// NewS3UploaderWithClient uses an existing client.
func NewS3UploaderWithClient(client ObjectPutter, cfg Config, backend Backend) *S3Uploader {
	return &S3Uploader{client: client, bucket: cfg.Bucket, endpoint: cfg.Endpoint, backend: backend}
}

func (u *S3Uploader) Upload(ctx context.Context, f File) (model.Attachment, error) {
	if err := f.validate(); err != nil {
		return model.Attachment{}, err
	}
	key := ObjectKey(f.Tab, f.RecordID, f.Name)
	contentType := f.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f.Body,
		ContentType: aws.String(contentType),
	}
	if f.Size > 0 {
		in.ContentLength = aws.Int64(f.Size)
	}
	if _, err := u.client.PutObject(ctx, in); err != nil {
		return model.Attachment{}, fmt.Errorf("s3 put object %s: %w", key, err)
	}
	logger.FromContext(ctx).V(1).Info("attachment stored", "bucket", u.bucket, "key", key)

	att, err := u.backend.RegisterAttachment(ctx, model.Attachment{
		Tab:      f.Tab,
		RecordID: f.RecordID,
		Name:     path.Base(key),
		Size:     f.Size,
		Key:      key,
		URL:      u.objectURL(key),
	})
	if err != nil {
		return model.Attachment{}, fmt.Errorf("registering %s: %w", key, err)
	}
	return att, nil
}

func (u *S3Uploader) objectURL(key string) string {
	if u.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", u.endpoint, u.bucket, key)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key)
}
