package mysql

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"regexp"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/rowcraft/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied  = 1044
	errAccessDenied    = 1045
	errNoDBSelected    = 1046
	errUnknownDatabase = 1049
	errTooManyConns    = 1040
	errUserConnLimit   = 1203
	errTableAccess     = 1142
	errColumnAccess    = 1143
)

// columnInMessage extracts the column MySQL names in messages such as
// "Column 'email' cannot be null" or "Data too long for column 'name' at row 1".
var columnInMessage = regexp.MustCompile(`(?i)column '([^']+)'`)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
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
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}
	if errors.Is(err, gomysql.ErrNoTLS) {
		return errs.Wrap(errs.ErrKindSSLUnsupported, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errDBAccessDenied, errAccessDenied, errNoDBSelected, errUnknownDatabase,
			errTooManyConns, errUserConnLimit:
			return errs.Wrap(errs.ErrKindConnectionFailed, msg+": "+mysqlErr.Message, err)
		case errTableAccess, errColumnAccess:
			return errs.Wrap(errs.ErrKindPermissionDenied, mysqlErr.Message, err)
		}
		column := ""
		if m := columnInMessage.FindStringSubmatch(mysqlErr.Message); m != nil {
			column = m[1]
		}
		return errs.Server(mysqlErr.Message, column, err)
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
