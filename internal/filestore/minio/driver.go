// Package minio stores exports in MinIO or any S3-compatible server.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	files, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer files.Close()
package minio

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Driver implements filestore.Store. It is safe for concurrent use.
type Driver struct {
	client *miniogo.Client
	region string
	bucket string
}

// New builds a client for cfg and pings it. With a bucket configured the
// ping only needs access to that bucket.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if !cfg.Enabled() {
		return nil, errs.New(errs.ErrKindInvalidInput, "object store endpoint is not configured")
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid object store settings", err)
	}

	d := &Driver{client: client, region: cfg.Region, bucket: cfg.Bucket}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Ping checks reachability and credentials. A bucket that does not exist
// yet is fine; EnsureBucket creates it on the first export.
func (d *Driver) Ping(ctx context.Context) error {
	if d.bucket != "" {
		if _, err := d.client.BucketExists(ctx, d.bucket); err != nil {
			return mapError(err, "object store unreachable")
		}
		return nil
	}
	if _, err := d.client.ListBuckets(ctx); err != nil {
		return mapError(err, "object store unreachable")
	}
	return nil
}

// Close is a no-op; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// EnsureBucket creates bucket in the configured region if it is missing.
// Losing a creation race to another writer counts as success.
func (d *Driver) EnsureBucket(ctx context.Context, bucket string) error {
	ok, err := d.client.BucketExists(ctx, bucket)
	if err != nil {
		return mapError(err, "check bucket "+bucket)
	}
	if ok {
		return nil
	}
	err = d.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{Region: d.region})
	if err != nil && !alreadyOwned(err) {
		return mapError(err, "create bucket "+bucket)
	}
	return nil
}

// PutObject streams r into bucket/key. A negative opts.Size uploads in parts
// until r is exhausted.
func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	up, err := d.client.PutObject(ctx, bucket, key, r, opts.Size, miniogo.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return nil, mapError(err, "upload "+key)
	}
	return &filestore.ObjectInfo{
		Key:          up.Key,
		Size:         up.Size,
		ContentType:  opts.ContentType,
		ETag:         up.ETag,
		LastModified: up.LastModified,
	}, nil
}

// ListObjects returns the objects under opts.Prefix, stopping after
// opts.Limit entries when it is set.
func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []filestore.ObjectInfo
	for obj := range d.client.ListObjects(ctx, bucket, miniogo.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: opts.Recursive,
	}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "list "+bucket)
		}
		out = append(out, objectInfo(obj))
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

// StatObject returns the object's attributes and user metadata.
func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	obj, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "stat "+key)
	}
	info := objectInfo(obj)
	if len(obj.UserMetadata) > 0 {
		info.Metadata = make(map[string]string, len(obj.UserMetadata))
		for k, v := range obj.UserMetadata {
			info.Metadata[strings.ToLower(k)] = v
		}
	}
	return &info, nil
}

// PresignGetURL returns a download link valid for ttl. The link asks the
// browser to save the file under the key's base name.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", `attachment; filename="`+path.Base(key)+`"`)

	u, err := d.client.PresignedGetObject(ctx, bucket, key, ttl, params)
	if err != nil {
		return "", mapError(err, "presign "+key)
	}
	return u.String(), nil
}

func objectInfo(obj miniogo.ObjectInfo) filestore.ObjectInfo {
	return filestore.ObjectInfo{
		Key:          obj.Key,
		Size:         obj.Size,
		ContentType:  obj.ContentType,
		ETag:         obj.ETag,
		LastModified: obj.LastModified,
		IsDir:        strings.HasSuffix(obj.Key, "/"),
	}
}
