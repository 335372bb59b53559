// Package archive copies share snapshots to S3-compatible object storage
// (MinIO or AWS S3) as one JSON object per slug.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"scholars/api/internal/share"
)

const keyPrefix = "shares/"

// Config holds construction parameters. Endpoint is host[:port] without a
// scheme; UseSSL selects https.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool

	// Transport overrides the HTTP transport. Tests use it.
	Transport http.RoundTripper
}

// Archiver writes, reads and restores archived snapshots in a single bucket.
type Archiver struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Archiver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("archive endpoint required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Archiver{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Key returns the object key a slug is archived under.
func Key(slug string) string {
	return keyPrefix + slug + ".json"
}

// EnsureBucket creates the bucket if it does not exist yet.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	a.logger.Info("created archive bucket", zap.String("bucket", a.bucket))
	return nil
}

// Put archives a snapshot. Rewriting an existing key is harmless because
// snapshots are immutable.
func (a *Archiver) Put(ctx context.Context, snapshot share.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal share: %w", err)
	}
	_, err = a.client.PutObject(ctx, a.bucket, Key(snapshot.Slug), bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("archive share %s: %w", snapshot.Slug, err)
	}
	return nil
}

// Get reads an archived snapshot. A missing object is share.ErrNotFound.
func (a *Archiver) Get(ctx context.Context, slug string) (share.Snapshot, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, Key(slug), minio.GetObjectOptions{})
	if err != nil {
		return share.Snapshot{}, a.translate(slug, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return share.Snapshot{}, a.translate(slug, err)
	}
	var snapshot share.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return share.Snapshot{}, fmt.Errorf("unmarshal archived share %s: %w", slug, err)
	}
	return snapshot, nil
}

// Backfill archives every share the lister returns, newest first.
func (a *Archiver) Backfill(ctx context.Context, lister Lister) (int, error) {
	archived := 0
	opts := share.ListOptions{Limit: share.MaxListLimit}
	for {
		page, err := lister.ListShares(ctx, opts)
		if err != nil {
			return archived, err
		}
		for _, snapshot := range page {
			if err := a.Put(ctx, snapshot); err != nil {
				return archived, err
			}
			archived++
		}
		if len(page) < opts.Limit {
			return archived, nil
		}
		opts.Before = page[len(page)-1].Slug
	}
}

// Lister pages through stored shares.
type Lister interface {
	ListShares(ctx context.Context, opts share.ListOptions) ([]share.Snapshot, error)
}

// Inserter receives restored snapshots.
type Inserter interface {
	InsertShare(ctx context.Context, snapshot share.Snapshot) error
}

// Restore copies every archived snapshot back into target. Slugs the target
// already holds are skipped, so a partial restore can be rerun.
func (a *Archiver) Restore(ctx context.Context, target Inserter) (restored, skipped int, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: keyPrefix, Recursive: true})
	for obj := range objects {
		if obj.Err != nil {
			return restored, skipped, fmt.Errorf("list archive: %w", obj.Err)
		}
		slug, ok := slugFromKey(obj.Key)
		if !ok {
			a.logger.Warn("skipping unexpected archive object", zap.String("key", obj.Key))
			skipped++
			continue
		}
		snapshot, err := a.Get(ctx, slug)
		if err != nil {
			return restored, skipped, err
		}
		if snapshot.Slug != slug {
			return restored, skipped, fmt.Errorf("archived share %s carries slug %q", slug, snapshot.Slug)
		}
		err = target.InsertShare(ctx, snapshot)
		switch {
		case errors.Is(err, share.ErrSlugTaken):
			skipped++
		case err != nil:
			return restored, skipped, fmt.Errorf("restore share %s: %w", slug, err)
		default:
			restored++
		}
	}
	return restored, skipped, ctx.Err()
}

func slugFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) || !strings.HasSuffix(key, ".json") {
		return "", false
	}
	slug := strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), ".json")
	return slug, share.ValidSlug(slug)
}

func (a *Archiver) translate(slug string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return share.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("read archived share %s: %w", slug, err)
}
