package tx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/lib/pq"

	dErrors "assettrack/pkg/domain-errors"
)

// Runner provides a transactional boundary for store mutations. Implementations
// may wrap a database transaction or, in-memory, a coarse lock. The callback
// receives a context carrying the transaction; stores bound to that context
// read and write inside it, so a failure anywhere aborts the whole mutation.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	defaultTxTimeout   = 5 * time.Second
	defaultTxAttempts  = 3
	defaultTxBackoff   = 50 * time.Millisecond
	maxBackoffInterval = 2 * time.Second
)

// SQLRunner runs callbacks inside database/sql transactions. Transient store
// failures (dropped connections, deadlocks, serialization aborts) are retried
// with exponential backoff up to a small fixed bound; everything is rolled
// back between attempts, so retries never observe partial state.
type SQLRunner struct {
	db       *sql.DB
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	onRetry  func()
}

// SQLOption configures a SQLRunner.
type SQLOption func(*SQLRunner)

// WithTimeout caps each attempt's transaction scope.
func WithTimeout(d time.Duration) SQLOption {
	return func(r *SQLRunner) { r.timeout = d }
}

// WithAttempts sets the retry bound for transient failures.
func WithAttempts(n int) SQLOption {
	return func(r *SQLRunner) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithBackoff sets the initial retry delay.
func WithBackoff(d time.Duration) SQLOption {
	return func(r *SQLRunner) {
		if d > 0 {
			r.backoff = d
		}
	}
}

// WithRetryObserver registers a callback invoked once per retried attempt,
// typically a metrics counter.
func WithRetryObserver(fn func()) SQLOption {
	return func(r *SQLRunner) { r.onRetry = fn }
}

// NewSQLRunner constructs a Runner over the given database handle.
func NewSQLRunner(db *sql.DB, opts ...SQLOption) *SQLRunner {
	r := &SQLRunner{
		db:       db,
		timeout:  defaultTxTimeout,
		attempts: defaultTxAttempts,
		backoff:  defaultTxBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	backoff := r.backoff
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if r.onRetry != nil {
				r.onRetry()
			}
			select {
			case <-ctx.Done():
				return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "transaction aborted: context cancelled")
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoffInterval {
				backoff = maxBackoffInterval
			}
		}

		lastErr = r.runOnce(ctx, fn)
		if lastErr == nil || !IsTransient(lastErr) {
			return lastErr
		}
	}
	return dErrors.Wrap(lastErr, dErrors.CodeTransient, "store unavailable after retries")
}

func (r *SQLRunner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	attemptCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(attemptCtx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(attemptCtx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// IsTransient reports whether an error is a retryable store failure: broken
// connections, deadlocks, serialization aborts, resource exhaustion. Caller
// cancellation is not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := pqErr.Code.Class()
		// 08: connection exception, 40: transaction rollback (deadlock,
		// serialization failure), 53: insufficient resources.
		return class == "08" || class == "40" || class == "53"
	}
	// Pool exhaustion and severed connections surface as plain errors from
	// database/sql without a wrapped cause.
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}
