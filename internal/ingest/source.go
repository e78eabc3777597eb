package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chrisdamba/slawatch/internal/models"
)

// Source yields the raw text of one dataset.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return data, nil
}

type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Name() string { return "http:" + s.URL }

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", s.URL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// S3GetObjectAPI is the slice of the S3 client S3Source needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Source struct {
	Client S3GetObjectAPI
	Bucket string
	Key    string
}

func NewS3Source(ctx context.Context, region, bucket, key string) (*S3Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3Source{Client: s3.NewFromConfig(cfg), Bucket: bucket, Key: key}, nil
}

func (s *S3Source) Name() string { return "s3://" + s.Bucket + "/" + s.Key }

func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to download %s: %w", s.Name(), err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// NewSource builds a source from configuration. Remote kinds are wrapped in a
// circuit breaker. A disabled config returns nil.
func NewSource(ctx context.Context, cfg models.SourceConfig) (Source, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Kind {
	case "", "file":
		return &FileSource{Path: cfg.Path}, nil
	case "http":
		return NewBreakerSource(NewHTTPSource(cfg.URL, cfg.Timeout)), nil
	case "s3":
		src, err := NewS3Source(ctx, cfg.Region, cfg.Bucket, cfg.Key)
		if err != nil {
			return nil, err
		}
		return NewBreakerSource(src), nil
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", cfg.Kind)
	}
}
