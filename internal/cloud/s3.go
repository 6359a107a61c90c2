package cloud

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3API is the part of the S3 client the archiver uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Archiver copies loaded data files into a bucket, keyed by their path
// relative to the base directory.
type S3Archiver struct {
	svc    S3API
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewS3Archiver creates an archiver using the default AWS credential chain.
func NewS3Archiver(ctx context.Context, region, bucket, prefix string, log zerolog.Logger) (*S3Archiver, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewS3ArchiverWithClient(s3.NewFromConfig(cfg), bucket, prefix, log), nil
}

func NewS3ArchiverWithClient(svc S3API, bucket, prefix string, log zerolog.Logger) *S3Archiver {
	return &S3Archiver{
		svc:    svc,
		bucket: bucket,
		prefix: prefix,
		log:    log.With().Str("component", "s3-archiver").Logger(),
	}
}

// Key returns the object key for file p under root.
func (a *S3Archiver) Key(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	return path.Join(a.prefix, filepath.ToSlash(rel)), nil
}

// Archive uploads the file at p.
func (a *S3Archiver) Archive(ctx context.Context, root, p string) error {
	key, err := a.Key(root, p)
	if err != nil {
		return fmt.Errorf("archive key for %s: %w", p, err)
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = a.svc.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv"),
		Metadata: map[string]string{
			"archived-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	a.log.Debug().Str("bucket", a.bucket).Str("key", key).Msg("archived data file")
	return nil
}

// Check verifies the bucket exists and is reachable with the current
// credentials.
func (a *S3Archiver) Check(ctx context.Context) error {
	if _, err := a.svc.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)}); err != nil {
		return fmt.Errorf("bucket %s: %w", a.bucket, err)
	}
	return nil
}
