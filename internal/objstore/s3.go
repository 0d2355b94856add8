package objstore

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rotisserie/eris"
)

// S3Options configures an S3 bucket.
type S3Options struct {
	Bucket string
	Region string
	// Prefix is prepended to every key.
	Prefix string
	// Endpoint overrides the S3 endpoint, e.g. for MinIO. Path-style
	// addressing is used when set.
	Endpoint string
}

// S3 is a Bucket on Amazon S3 or an S3-compatible service.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	opts     S3Options
}

// NewS3 loads AWS credentials from the default chain (AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY, shared config, instance role).
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, eris.New("objstore: s3 bucket is required")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "objstore: load aws config")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		opts:     opts,
	}, nil
}

// Name implements Bucket.
func (b *S3) Name() string { return "s3://" + b.opts.Bucket + "/" + b.opts.Prefix }

func (b *S3) key(k string) string { return b.opts.Prefix + k }

// Get implements Bucket.
func (b *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.opts.Bucket),
		Key:    aws.String(b.key(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "objstore: get s3://%s/%s", b.opts.Bucket, b.key(key))
	}
	return out.Body, nil
}

// Put implements Bucket. The uploader switches to multipart for large
// bodies.
func (b *S3) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(b.opts.Bucket),
		Key:    aws.String(b.key(key)),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := b.uploader.Upload(ctx, in); err != nil {
		return eris.Wrapf(err, "objstore: put s3://%s/%s", b.opts.Bucket, b.key(key))
	}
	return nil
}
