package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/rowcraft/internal/errs"
)

// PostgreSQL SQLSTATE classes and codes rowcraft distinguishes.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection     = "08"
	pgClassInvalidAuth    = "28"
	pgErrInsufficientPriv = "42501"
	pgErrSyntaxError      = "42601"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
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
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// pgconn reports a refused SSLRequest as a plain error inside ConnectError
	if strings.Contains(err.Error(), "server refused TLS connection") {
		return errs.Wrap(errs.ErrKindSSLUnsupported, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, pgClassConnection),
			strings.HasPrefix(pgErr.Code, pgClassInvalidAuth):
			return errs.Wrap(errs.ErrKindConnectionFailed, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
		case pgErr.Code == pgErrInsufficientPriv:
			return &errs.Error{
				Kind:    errs.ErrKindPermissionDenied,
				Message: pgErr.Message,
				Column:  pgErr.ColumnName,
				Cause:   err,
			}
		}
		return errs.Server(pgErr.Message, pgErr.ColumnName, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	return errs.Wrap(errs.ErrKindUnknown, msg, err)
}

// isMultiCommand reports whether Prepare refused sql because it holds more
// than one statement.
func isMultiCommand(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgErrSyntaxError &&
		strings.Contains(pgErr.Message, "multiple commands")
}
