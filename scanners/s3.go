package scanners

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tidewatch/tidewatch"
	"github.com/tidewatch/tidewatch/log"
)

// S3Config configures an S3 bucket scanner.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	Bucket string
	// Prefix narrows the scanned namespace, the way the root glob narrows
	// the filesystem scanner.
	Prefix string
	// ObjectPattern is matched against the base name of each listed key.
	// Empty matches everything.
	ObjectPattern string
}

// S3 implements the Scanner contract over a bucket listing. Object keys are
// the bucket-relative object names. Like the filesystem scanner it recomputes
// the full diff per call: a stat pass over the cached entries, then a listing
// pass for new objects.
type S3 struct {
	client *minio.Client

	bucket        string
	prefix        string
	objectPattern string

	log *log.Logger
}

// NewS3 connects a scanner to the configured endpoint.
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

// NewS3WithClient wraps an existing client; useful when the process already
// holds a configured connection.
func NewS3WithClient(client *minio.Client, cfg S3Config, opts ...Option) (*S3, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if cfg.ObjectPattern != "" && !doublestar.ValidatePattern(cfg.ObjectPattern) {
		return nil, fmt.Errorf("%w: %q", tidewatch.ErrBadPattern, cfg.ObjectPattern)
	}

	return &S3{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		objectPattern: cfg.ObjectPattern,
		log:           options.Logger,
	}, nil
}

func (s *S3) LookupMetadata(ctx context.Context, key tidewatch.ObjectKey) (*tidewatch.ObjectMetadata, error) {
	info, err := s.client.StatObject(ctx, s.bucket, string(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, err
	}

	meta := objectInfoMetadata(info)
	return &meta, nil
}

func (s *S3) ReadObject(ctx context.Context, key tidewatch.ObjectKey) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, string(key), minio.GetObjectOptions{})
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

func (s *S3) NextActions(ctx context.Context, deletionsEnabled bool, cached tidewatch.CachedStore) ([]tidewatch.QueuedAction, error) {
	var actions []tidewatch.QueuedAction

	if deletionsEnabled {
		deletions, err := s.deletionAndUpdateActions(ctx, cached)
		if err != nil {
			return nil, err
		}
		actions = append(actions, deletions...)
	}

	insertions, err := s.insertionActions(ctx, cached)
	if err != nil {
		return nil, err
	}
	actions = append(actions, insertions...)

	return actions, nil
}

func (s *S3) HasPendingActions() bool {
	return false
}

func (s *S3) Describe() string {
	return fmt.Sprintf("S3(%s/%s)", s.bucket, s.prefix)
}

func (s *S3) deletionAndUpdateActions(ctx context.Context, cached tidewatch.CachedStore) ([]tidewatch.QueuedAction, error) {
	var actions []tidewatch.QueuedAction
	var scanErr error

	cached.Iterate(func(key tidewatch.ObjectKey, stored tidewatch.ObjectMetadata) bool {
		current, err := s.LookupMetadata(ctx, key)
		if err != nil {
			scanErr = fmt.Errorf("stat %s: %w", key, err)
			return false
		}
		if current == nil {
			actions = append(actions, tidewatch.DeleteAction(key))
			return true
		}
		if stored.IsChanged(*current) {
			actions = append(actions, tidewatch.UpdateAction(key, *current))
		}
		return true
	})

	if scanErr != nil {
		return nil, scanErr
	}
	return actions, nil
}

func (s *S3) insertionActions(ctx context.Context, cached tidewatch.CachedStore) ([]tidewatch.QueuedAction, error) {
	var actions []tidewatch.QueuedAction

	listing := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	})
	for object := range listing {
		if object.Err != nil {
			return nil, fmt.Errorf("listing %s: %w", s.Describe(), object.Err)
		}

		// Zero-byte directory markers are not objects
		if len(object.Key) > 0 && object.Key[len(object.Key)-1] == '/' {
			continue
		}

		if s.objectPattern != "" {
			matched, err := doublestar.Match(s.objectPattern, path.Base(object.Key))
			if err != nil || !matched {
				continue
			}
		}

		key := tidewatch.ObjectKey(object.Key)
		if cached.Contains(key) {
			continue
		}

		actions = append(actions, tidewatch.ReadAction(key, objectInfoMetadata(object)))
	}

	return actions, nil
}

func objectInfoMetadata(info minio.ObjectInfo) tidewatch.ObjectMetadata {
	return tidewatch.ObjectMetadata{
		Path:       info.Key,
		Size:       info.Size,
		ModifiedAt: info.LastModified,
		SeenAt:     time.Now(),
	}
}
