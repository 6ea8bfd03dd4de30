package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/tablebook-backend/internal/analytics/types"
	"github.com/angelmondragon/tablebook-backend/pkg/bigquery"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// Config controls the analytics writer behavior.
type Config struct {
	ReservationEventsTable string
	BatchSize              int
	RetryPolicy            RetryPolicy
}

// RetryPolicy controls how many times BigQuery inserts are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

// TableInserter is the slice of the BigQuery client the writer needs.
type TableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter inserts reservation event rows into BigQuery with retries and optional batching.
type BigQueryWriter struct {
	client    TableInserter
	table     string
	batchSize int
	policy    RetryPolicy

	mu     sync.Mutex
	buffer []types.ReservationEventRow
}

// New creates a new BigQueryWriter backed by a shared client.
func New(client TableInserter, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.ReservationEventsTable)
	if table == "" {
		return nil, errors.New("reservation events table is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	policy := cfg.RetryPolicy
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaultMaxAttempts
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = defaultInitialBackoff
	}
	if policy.MaximumBackoff <= 0 {
		policy.MaximumBackoff = defaultMaximumBackoff
	}
	if policy.MaximumBackoff < policy.InitialBackoff {
		policy.MaximumBackoff = policy.InitialBackoff
	}

	return &BigQueryWriter{
		client:    client,
		table:     table,
		batchSize: batchSize,
		policy:    policy,
	}, nil
}

// InsertReservationEvent buffers a row and flushes once the batch is full.
func (w *BigQueryWriter) InsertReservationEvent(ctx context.Context, row types.ReservationEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(w.buffer, row)
	if len(w.buffer) < w.batchSize {
		return nil
	}
	return w.flushLocked(ctx)
}

// Flush writes any buffered rows immediately. A failed batch is dropped so a
// redelivered message does not produce a duplicate row.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

func (w *BigQueryWriter) flushLocked(ctx context.Context) error {
	if len(w.buffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.buffer))
	for i := range w.buffer {
		rows[i] = &w.buffer[i]
	}
	err := w.insertWithRetry(ctx, rows)
	w.buffer = nil
	return err
}

func (w *BigQueryWriter) insertWithRetry(ctx context.Context, rows []any) error {
	backoff := retry.WithMaxRetries(uint64(w.policy.MaxAttempts-1),
		retry.WithCappedDuration(w.policy.MaximumBackoff, retry.NewExponential(w.policy.InitialBackoff)))

	var last error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		last = w.client.InsertRows(ctx, w.table, rows)
		if last != nil && bigquery.IsRetryable(last) {
			return retry.RetryableError(last)
		}
		return last
	})
	if err == nil {
		return nil
	}
	if last == nil {
		return err
	}
	return fmt.Errorf("insert %s rows: %w", w.table, last)
}

// EncodeJSON serializes the provided payload so it can be stored in BigQuery JSON columns.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	case []byte:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	}

	marshaled, err := json.Marshal(payload)
	if err != nil {
		return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
	}
	if len(marshaled) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(marshaled)}, nil
}
