package minio

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/koustreak/rowcraft/internal/errs"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"canceled", context.Canceled, errs.ErrKindCanceled},
		{"404", miniogo.ErrorResponse{StatusCode: 404, Code: "NoSuchKey"}, errs.ErrKindNotFound},
		{"403", miniogo.ErrorResponse{StatusCode: 403, Code: "AccessDenied"}, errs.ErrKindPermissionDenied},
		{"code only", miniogo.ErrorResponse{Code: "NoSuchBucket"}, errs.ErrKindNotFound},
		{"bad bucket name", miniogo.ErrorResponse{Code: "InvalidBucketName"}, errs.ErrKindInvalidInput},
		{"slow down", miniogo.ErrorResponse{StatusCode: 503, Code: "SlowDown"}, errs.ErrKindTimeout},
		{"unavailable", miniogo.ErrorResponse{StatusCode: 503}, errs.ErrKindConnectionFailed},
		{"unknown server code", miniogo.ErrorResponse{StatusCode: 500, Code: "InternalError"}, errs.ErrKindUnknown},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, errs.ErrKindTimeout},
		{"dial", errors.New("dial tcp 127.0.0.1:9000: connect: connection refused"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, mapError(tt.err, "op").Kind)
		})
	}

	assert.Nil(t, mapError(nil, "op"))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestAlreadyOwned(t *testing.T) {
	assert.True(t, alreadyOwned(miniogo.ErrorResponse{Code: "BucketAlreadyOwnedByYou"}))
	assert.False(t, alreadyOwned(miniogo.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, alreadyOwned(errors.New("boom")))
}

func TestObjectInfo(t *testing.T) {
	info := objectInfo(miniogo.ObjectInfo{Key: "exports/", Size: 0})
	assert.True(t, info.IsDir)

	info = objectInfo(miniogo.ObjectInfo{Key: "exports/users.csv", Size: 12, ContentType: "text/csv"})
	assert.False(t, info.IsDir)
	assert.Equal(t, int64(12), info.Size)
}
