package cloud

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	key, bucket, body string
	err               error
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	return &s3.HeadBucketOutput{}, f.err
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.bucket, f.key, f.body = aws.ToString(in.Bucket), aws.ToString(in.Key), string(b)
	return &s3.PutObjectOutput{}, nil
}

type fakeSNS struct {
	in  *sns.PublishInput
	err error
}

func (f *fakeSNS) GetTopicAttributes(_ context.Context, in *sns.GetTopicAttributesInput, _ ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sns.GetTopicAttributesOutput{Attributes: map[string]string{"TopicArn": aws.ToString(in.TopicArn)}}, nil
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestS3Archiver_UploadsUnderRelativeKey(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "site1", "2014", "meter.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("time(UTC)\n"), 0o644))

	svc := &fakeS3{}
	a := NewS3ArchiverWithClient(svc, "bucket", "meter-data", zerolog.Nop())
	require.NoError(t, a.Archive(context.Background(), root, p))

	assert.Equal(t, "bucket", svc.bucket)
	assert.Equal(t, "meter-data/site1/2014/meter.csv", svc.key)
	assert.Equal(t, "time(UTC)\n", svc.body)
}

func TestS3Archiver_Errors(t *testing.T) {
	root := t.TempDir()
	a := NewS3ArchiverWithClient(&fakeS3{}, "bucket", "", zerolog.Nop())
	assert.Error(t, a.Archive(context.Background(), root, filepath.Join(root, "missing.csv")))

	p := filepath.Join(root, "a.csv")
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	boom := errors.New("access denied")
	a = NewS3ArchiverWithClient(&fakeS3{err: boom}, "bucket", "", zerolog.Nop())
	assert.ErrorIs(t, a.Archive(context.Background(), root, p), boom)
}

func TestSNSNotifier_Publish(t *testing.T) {
	svc := &fakeSNS{}
	n := NewSNSNotifierWithClient(svc, "arn:aws:sns:us-east-1:1:loads", zerolog.Nop())

	require.NoError(t, n.Publish(context.Background(), strings.Repeat("s", 150), "report"))
	assert.Equal(t, "arn:aws:sns:us-east-1:1:loads", aws.ToString(svc.in.TopicArn))
	assert.Len(t, aws.ToString(svc.in.Subject), 100)
	assert.Equal(t, "report", aws.ToString(svc.in.Message))

	require.NoError(t, n.Publish(context.Background(), strings.Repeat("é", 150), "report"))
	subject := aws.ToString(svc.in.Subject)
	assert.True(t, utf8.ValidString(subject))
	assert.Equal(t, 100, utf8.RuneCountInString(subject))

	svc.err = errors.New("throttled")
	assert.ErrorIs(t, n.Publish(context.Background(), "s", "m"), svc.err)
}

func TestChecks(t *testing.T) {
	s3svc := &fakeS3{}
	require.NoError(t, NewS3ArchiverWithClient(s3svc, "bucket", "", zerolog.Nop()).Check(context.Background()))
	assert.Equal(t, "bucket", s3svc.bucket)

	s3svc.err = errors.New("not found")
	assert.ErrorIs(t, NewS3ArchiverWithClient(s3svc, "bucket", "", zerolog.Nop()).Check(context.Background()), s3svc.err)

	snssvc := &fakeSNS{}
	n := NewSNSNotifierWithClient(snssvc, "arn:aws:sns:us-east-1:1:loads", zerolog.Nop())
	require.NoError(t, n.Check(context.Background()))
	snssvc.err = errors.New("not found")
	assert.ErrorIs(t, n.Check(context.Background()), snssvc.err)
}
