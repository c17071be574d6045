package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// s3Source fetches one object from S3 or a compatible service. Access is
// read-only and anonymous; release buckets are public.
//
// URL format: s3://bucket/key/path?region=eu-west-1[&endpoint=host]
type s3Source struct {
	client *s3.S3
	bucket string
	key    string
	log    *slog.Logger
}

func newS3Source(u *url.URL, log *slog.Logger) (*s3Source, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: s3 url must be s3://bucket/key", interfaces.ErrConfiguration)
	}

	region := u.Query().Get("region")
	if region == "" {
		region = "us-east-1"
	}

	cfg := aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.AnonymousCredentials,
	}
	if endpoint := u.Query().Get("endpoint"); endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: creating s3 session: %v", interfaces.ErrArtifact, err)
	}

	return &s3Source{
		client: s3.New(sess),
		bucket: bucket,
		key:    key,
		log:    log,
	}, nil
}

func (s *s3Source) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetching s3://%s/%s: %v", interfaces.ErrArtifact, s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading s3://%s/%s: %v", interfaces.ErrArtifact, s.bucket, s.key, err)
	}

	s.log.Debug("Fetched artifact from S3",
		slog.String("bucket", s.bucket),
		slog.String("key", s.key),
		slog.Int("size", len(data)))
	return data, nil
}

func (s *s3Source) Filename() string { return path.Base(s.key) }
