// Package s3store keeps lot snapshots in S3 or an S3-compatible object store
// such as MinIO or Cloudflare R2.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/store"
)

// ClientConfig holds the object store connection parameters.
type ClientConfig struct {
	// Endpoint is an S3-compatible endpoint; empty means AWS.
	Endpoint string
	Region   string
	Bucket   string
	// Prefix is prepended to every object key, e.g. "taxlots/".
	Prefix    string
	AccessKey string
	SecretKey string
	// UseSSL picks the scheme when Endpoint has none.
	UseSSL         bool
	ForcePathStyle bool
}

// API is the subset of the S3 client used by Store.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	manager.UploadAPIClient
}

// Store reads snapshots with GetObject and writes them through the upload
// manager.
type Store struct {
	client   API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// New connects to the configured object store.
func New(ctx context.Context, cfg ClientConfig) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3store: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3store: region is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient creates a Store on an existing client.
func NewWithClient(client API, bucket, prefix string) *Store {
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

// ObjectKey returns the object key that holds key.
func (s *Store) ObjectKey(key string) string {
	return s.prefix + key + ".json"
}

// Load fetches and decodes the snapshot for key.
func (s *Store) Load(ctx context.Context, key string) (lots.Snapshot, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3store: load %s: %w", key, store.ErrNotFound)
		}
		return nil, fmt.Errorf("s3store: load %s: %w", key, err)
	}
	defer out.Body.Close()

	snap, err := lots.DecodeSnapshot(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3store: load %s: %w", key, err)
	}
	return snap, nil
}

// Save encodes and uploads the snapshot for key.
func (s *Store) Save(ctx context.Context, key string, snap lots.Snapshot) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := lots.EncodeSnapshot(&buf, snap); err != nil {
		return fmt.Errorf("s3store: save %s: %w", key, err)
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.ObjectKey(key)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3store: save %s: %w", key, err)
	}
	return nil
}

// isNotFound reports whether err is a missing-object error. Some
// S3-compatible providers only report the HTTP status.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	type httpResponseError interface {
		HTTPStatusCode() int
	}
	var httpErr httpResponseError
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404
}

// normaliseEndpoint adds a scheme to endpoints given as host[:port].
func normaliseEndpoint(endpoint string, useSSL bool) string {
	// "host:port" parses with host as the scheme, so require an authority.
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}

var _ store.Store = (*Store)(nil)
