package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
)

const (
	txRetryAttempts = 3
	txRetryBase     = 25 * time.Millisecond
)

// WithTxRetry runs fn in a transaction and reruns it when Postgres aborts on
// serialization failure, deadlock, or lock timeout. fn must only touch the
// database since it may run more than once.
func (c *Client) WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	backoff := retry.WithMaxRetries(txRetryAttempts-1, retry.WithJitterPercent(20, retry.NewExponential(txRetryBase)))
	var last error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		last = c.WithTx(ctx, fn)
		if pkgerrors.IsRetryableTx(last) {
			return retry.RetryableError(last)
		}
		return last
	})
	if err != nil && last != nil {
		return last
	}
	return err
}
