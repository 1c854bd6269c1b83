// Package s3 provides an S3-compatible storage adapter with metrics.
package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fruitsalade/mediakit/internal/listing"
	"github.com/fruitsalade/mediakit/internal/logging"
	"github.com/fruitsalade/mediakit/internal/metrics"
)

// Config is a JSON-serializable S3 adapter config.
type Config struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
}

// API is the subset of the S3 client the adapter uses.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// Adapter maps root/relPath onto object keys in one bucket.
type Adapter struct {
	client API
	bucket string
}

// New creates an S3 adapter from a Config.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := endpointURL(cfg.Endpoint, cfg.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	logging.Debug("s3 adapter configured",
		logging.String("endpoint", endpoint),
		logging.String("bucket", cfg.Bucket))

	return NewWithClient(client, cfg.Bucket), nil
}

// NewFromJSON creates an Adapter from raw JSON config.
func NewFromJSON(ctx context.Context, raw json.RawMessage) (*Adapter, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse s3 config: %w", err)
	}
	return New(ctx, cfg)
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, bucket string) *Adapter {
	return &Adapter{client: client, bucket: bucket}
}

// endpointURL adds a scheme to bare host:port endpoints.
func endpointURL(endpoint string, useSSL bool) string {
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// objectKey maps root and relPath to a bucket key without a leading slash.
func objectKey(root, relPath string) string {
	return strings.TrimPrefix(path.Join("/", root, relPath), "/")
}

// Exists reports whether an object, or any object below the key as a
// prefix, exists. A 404 is false; every other failure is returned.
func (a *Adapter) Exists(ctx context.Context, root, relPath string) (bool, error) {
	key := objectKey(root, relPath)
	if key == "" {
		return true, nil
	}

	start := time.Now()
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		metrics.RecordStorageOperation("s3", "head_object", time.Since(start), true)
		return true, nil
	}
	if !isNotFound(err) {
		metrics.RecordStorageOperation("s3", "head_object", time.Since(start), false)
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	metrics.RecordStorageOperation("s3", "head_object", time.Since(start), true)

	start = time.Now()
	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(key + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		metrics.RecordStorageOperation("s3", "list_objects", time.Since(start), false)
		return false, fmt.Errorf("list prefix %s: %w", key, err)
	}
	metrics.RecordStorageOperation("s3", "list_objects", time.Since(start), true)
	return len(out.Contents) > 0, nil
}

// List returns the objects and common prefixes directly below the key.
func (a *Adapter) List(ctx context.Context, root, relPath string) ([]listing.Entry, error) {
	start := time.Now()
	prefix := objectKey(root, relPath)
	if prefix != "" {
		prefix += "/"
	}

	var entries []listing.Entry
	p := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(a.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			metrics.RecordStorageOperation("s3", "list_objects", time.Since(start), false)
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name == "" {
				continue
			}
			entries = append(entries, listing.Entry{Name: name, IsDir: true})
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			// Folder marker objects.
			if name == "" {
				continue
			}
			entries = append(entries, listing.Entry{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	metrics.RecordStorageOperation("s3", "list_objects", time.Since(start), true)
	return entries, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == 404
}

// Type returns "s3".
func (a *Adapter) Type() string { return "s3" }

// Close is a no-op for S3 adapters.
func (a *Adapter) Close() error { return nil }
