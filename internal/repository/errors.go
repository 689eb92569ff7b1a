package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("duplicate record")
	ErrTimeout       = errors.New("storage operation timed out")
	ErrUnavailable   = errors.New("storage unavailable")
	ErrNoTransaction = errors.New("locking read requires a transaction")
)

// PostgreSQLのエラーコード
const (
	codeUniqueViolation   = "23505"
	codeLockNotAvailable  = "55P03"
	codeQueryCanceled     = "57014"
	codeAdminShutdown     = "57P01"
	codeCrashShutdown     = "57P02"
	codeCannotConnectNow  = "57P03"
	classConnectionFailed = "08"
)

// classify はドライバのエラーをリポジトリのセンチネルエラーでラップします
// 分類できないエラーはそのまま返します
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %w", ErrDuplicate, err)
		case codeLockNotAvailable, codeQueryCanceled:
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		case codeAdminShutdown, codeCrashShutdown, codeCannotConnectNow:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if pqErr.Code.Class() == classConnectionFailed {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}
