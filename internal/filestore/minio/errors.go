package minio

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/koustreak/rowcraft/internal/errs"
	miniogo "github.com/minio/minio-go/v7"
)

// S3 error codes, checked before the HTTP status.
var codeKinds = map[string]errs.ErrKind{
	"NoSuchBucket":          errs.ErrKindNotFound,
	"NoSuchKey":             errs.ErrKindNotFound,
	"NoSuchUpload":          errs.ErrKindNotFound,
	"AccessDenied":          errs.ErrKindPermissionDenied,
	"InvalidAccessKeyId":    errs.ErrKindPermissionDenied,
	"SignatureDoesNotMatch": errs.ErrKindPermissionDenied,
	"InvalidBucketName":     errs.ErrKindInvalidInput,
	"InvalidObjectName":     errs.ErrKindInvalidInput,
	"KeyTooLongError":       errs.ErrKindInvalidInput,
	"EntityTooLarge":        errs.ErrKindInvalidInput,
	"RequestTimeout":        errs.ErrKindTimeout,
	"SlowDown":              errs.ErrKindTimeout,
}

var statusKinds = map[int]errs.ErrKind{
	http.StatusNotFound:           errs.ErrKindNotFound,
	http.StatusForbidden:          errs.ErrKindPermissionDenied,
	http.StatusUnauthorized:       errs.ErrKindPermissionDenied,
	http.StatusBadRequest:         errs.ErrKindInvalidInput,
	http.StatusServiceUnavailable: errs.ErrKindConnectionFailed,
}

// mapError translates a MinIO SDK error into a *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindCanceled, msg, err)
	}

	resp := miniogo.ToErrorResponse(err)
	if kind, ok := codeKinds[resp.Code]; ok {
		return errs.Wrap(kind, msg, err)
	}
	if kind, ok := statusKinds[resp.StatusCode]; ok {
		return errs.Wrap(kind, msg, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}
	if resp.Code != "" {
		return errs.Wrap(errs.ErrKindUnknown, msg, err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func alreadyOwned(err error) bool {
	switch miniogo.ToErrorResponse(err).Code {
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return true
	}
	return false
}
