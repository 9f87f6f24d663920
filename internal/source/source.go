// Package source opens datasets named by a local path, "-" for stdin, or an s3:// URI.
package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Stdin is the location that reads standard input.
const Stdin = "-"

// S3Config configures access to S3-compatible object storage. Empty keys mean anonymous access.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Opener resolves dataset locations to readers. The S3 client is built on first use.
type Opener struct {
	s3cfg S3Config
	stdin io.Reader

	once   sync.Once
	client *s3.Client
}

func NewOpener(cfg S3Config) *Opener {
	return &Opener{s3cfg: cfg, stdin: os.Stdin}
}

// Open returns a reader for location and the display name used in reports.
// The caller closes the reader.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, string, error) {
	switch {
	case location == Stdin:
		return io.NopCloser(o.stdin), "stdin", nil
	case IsS3(location):
		return o.openS3(ctx, location)
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, "", fmt.Errorf("open dataset: %w", err)
		}
		return f, filepath.Base(location), nil
	}
}

// IsS3 reports whether location is an s3:// URI.
func IsS3(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

func (o *Opener) openS3(ctx context.Context, location string) (io.ReadCloser, string, error) {
	bucket, key, err := parseS3Path(location)
	if err != nil {
		return nil, "", err
	}
	out, err := o.s3Client().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get object %q: %w", location, err)
	}
	return out.Body, path.Base(key), nil
}

func (o *Opener) s3Client() *s3.Client {
	o.once.Do(func() {
		region := o.s3cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		opts := s3.Options{
			Region:       region,
			UsePathStyle: o.s3cfg.UsePathStyle,
		}
		if o.s3cfg.AccessKeyID != "" {
			opts.Credentials = credentials.NewStaticCredentialsProvider(
				o.s3cfg.AccessKeyID, o.s3cfg.SecretAccessKey, "",
			)
		} else {
			opts.Credentials = aws.AnonymousCredentials{}
		}
		if ep := o.s3cfg.Endpoint; ep != "" {
			if !strings.Contains(ep, "://") {
				ep = "https://" + ep
			}
			opts.BaseEndpoint = aws.String(ep)
		}
		o.client = s3.New(opts)
	})
	return o.client
}

// parseS3Path extracts bucket and key from an "s3://bucket/path/to/file" URI.
func parseS3Path(s3Path string) (bucket, key string, err error) {
	u, err := url.Parse(s3Path)
	if err != nil {
		return "", "", fmt.Errorf("parse S3 path %q: %w", s3Path, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("expected s3:// scheme, got %q in %q", u.Scheme, s3Path)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("empty bucket in S3 path %q", s3Path)
	}
	if key == "" {
		return "", "", fmt.Errorf("empty key in S3 path %q", s3Path)
	}
	return bucket, key, nil
}
