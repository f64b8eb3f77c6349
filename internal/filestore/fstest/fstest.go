// Package fstest provides an in-memory filestore.Store for package tests.
package fstest

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/filestore"
)

type entry struct {
	data []byte
	info filestore.ObjectInfo
	meta map[string]string
}

// Store keeps objects in memory, keyed by bucket then object key.
type Store struct {
	mu      sync.Mutex
	buckets map[string]map[string]entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{buckets: map[string]map[string]entry{}}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) EnsureBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = map[string]entry{}
	}
	return nil
}

func (s *Store) PutObject(_ context.Context, bucket, key string, r io.Reader, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "read object body", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", bucket)
	}
	sum := md5.Sum(data)
	info := filestore.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: time.Now(),
	}
	b[key] = entry{data: data, info: info, meta: maps.Clone(opts.Metadata)}
	return &info, nil
}

func (s *Store) ListObjects(_ context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", bucket)
	}
	var out []filestore.ObjectInfo
	for k, e := range b {
		if strings.HasPrefix(k, opts.Prefix) {
			out = append(out, e.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.buckets[bucket][key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "object %s/%s not found", bucket, key)
	}
	info := e.info
	info.Metadata = maps.Clone(e.meta)
	return &info, nil
}

func (s *Store) PresignGetURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "memory://" + bucket + "/" + key + "?ttl=" + ttl.String(), nil
}

// Content returns the bytes stored at bucket/key.
func (s *Store) Content(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(e.data), true
}
