package objstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rhetenor/internal/market"
)

// S3Gateway implements Gateway against a prefix-scoped S3 bucket.
type S3Gateway struct {
	client *s3.Client
	bucket string
	prefix string
	loc    *time.Location
}

func NewS3Gateway(auth AWSAuth, bucket, prefix string, loc *time.Location) *S3Gateway {
	if loc == nil {
		loc = time.UTC
	}
	client := s3.New(s3.Options{
		Region: auth.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(auth.AccessKeyID, auth.SecretAccessKey, ""),
		),
	})
	return &S3Gateway{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		loc:    loc,
	}
}

func (g *S3Gateway) List(ctx context.Context, rng *TimeRange) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(g.prefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s/%s: %v", ErrStorage, g.bucket, g.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" {
				continue
			}
			if rng != nil {
				ts, ok := ParseKeyTime(key, g.loc)
				if !ok || !rng.contains(ts) {
					continue
				}
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (g *S3Gateway) Get(ctx context.Context, key string) ([]market.Record, error) {
	resp, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrStorage, key, err)
	}
	defer resp.Body.Close()
	return DecodeRecords(resp.Body, key, g.loc)
}

func (g *S3Gateway) Put(ctx context.Context, key string, payload []byte) error {
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorage, key, err)
	}
	return nil
}

var _ Gateway = (*S3Gateway)(nil)
