package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tanq16/rangefetch/internal/utils"
)

// S3Transport serves s3://bucket/key URLs through HeadObject and ranged
// GetObject calls.
type S3Transport struct {
	client *s3.Client
}

func NewS3Transport(ctx context.Context, profile string) (*S3Transport, error) {
	opts := []func(*config.LoadOptions) error{config.WithRetryMode(aws.RetryModeAdaptive)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %v", err)
	}
	return &S3Transport{client: s3.NewFromConfig(cfg)}, nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(url string) (string, string, error) {
	rest, ok := strings.CutPrefix(url, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URL: %s", url)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("s3 URL must name an object: %s", url)
	}
	return bucket, key, nil
}

func (t *S3Transport) Size(ctx context.Context, url string) (int64, error) {
	bucket, key, err := ParseS3URL(url)
	if err != nil {
		return 0, err
	}
	head, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("error accessing S3 object: %v", err)
	}
	if head.ContentLength == nil {
		return 0, errors.New("S3 did not report a content length")
	}
	log := utils.GetLogger("s3")
	log.Debug().Str("bucket", bucket).Str("key", key).Int64("size", *head.ContentLength).Msg("Head object")
	return *head.ContentLength, nil
}

func (t *S3Transport) FetchRange(ctx context.Context, url string, start, end int64, w io.Writer) error {
	bucket, key, err := ParseS3URL(url)
	if err != nil {
		return err
	}
	result, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return fmt.Errorf("error getting object: %v", err)
	}
	defer result.Body.Close()
	return copyRange(result.Body, w, start, end)
}
