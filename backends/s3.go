package backends

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tidewatch/tidewatch"
	"github.com/tidewatch/tidewatch/log"
)

// S3Config configures an S3 persistence backend.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	Bucket string
	// Prefix roots the logical key space inside the bucket.
	Prefix string
}

// S3 stores values as objects under <prefix>/<key>. S3 object puts are
// already atomic: a reader sees the previous object or the new one in full,
// so no temporary-object protocol is needed. The future still decouples the
// caller from the network round trip.
type S3 struct {
	client *minio.Client

	bucket string
	prefix string

	log       *log.Logger
	telemetry *tidewatch.Telemetry
}

func NewS3(cfg S3Config, opts ...Option) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return NewS3WithClient(client, cfg, opts...)
}

func NewS3WithClient(client *minio.Client, cfg S3Config, opts ...Option) (*S3, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return &S3{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		log:       options.Logger,
		telemetry: options.Telemetry,
	}, nil
}

func (b *S3) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string

	prefix := b.prefix
	if prefix != "" {
		prefix += "/"
	}

	listing := b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range listing {
		if object.Err != nil {
			return nil, object.Err
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		keys = append(keys, strings.TrimPrefix(object.Key, prefix))
	}

	return keys, nil
}

func (b *S3) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := b.client.GetObject(ctx, b.bucket, b.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	value, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
		}
		return nil, err
	}
	return value, nil
}

func (b *S3) Put(ctx context.Context, key string, value []byte) tidewatch.PutFuture {
	future, resolve := tidewatch.Promise()

	go func() {
		_, err := b.client.PutObject(ctx, b.bucket, b.objectName(key),
			bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{})
		if err != nil {
			b.log.Error("put %s: %v", key, err)
		}
		b.telemetry.PutCompleted("s3", err)
		resolve(err)
	}()

	return future
}

func (b *S3) Remove(ctx context.Context, key string) error {
	name := b.objectName(key)

	// RemoveObject succeeds on absent keys; keep Remove semantics uniform
	// across backends.
	if _, err := b.client.StatObject(ctx, b.bucket, name, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
		}
		return err
	}

	return b.client.RemoveObject(ctx, b.bucket, name, minio.RemoveObjectOptions{})
}

func (b *S3) objectName(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}
