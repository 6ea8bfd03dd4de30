package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/gcp"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

var (
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client streams rows into the tables of a single dataset.
type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	cfg     config.BigQueryConfig
}

// NewClient dials BigQuery and confirms the dataset and its tables exist.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	if len(configuredTables(cfg)) == 0 {
		return nil, errTableNameRequired
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: bqClient, dataset: bqClient.Dataset(datasetID), cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = bqClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"gcp_project": projectID,
			"dataset":     datasetID,
		}), "bigquery client initialized")
	}
	return c, nil
}

func configuredTables(cfg config.BigQueryConfig) []string {
	var tables []string
	if name := strings.TrimSpace(cfg.ReservationEventsTable); name != "" {
		tables = append(tables, name)
	}
	return tables
}

// Ping fetches dataset and table metadata, reporting every missing table.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return missingOr(err, "dataset", c.dataset.DatasetID)
	}
	var errs error
	for _, name := range configuredTables(c.cfg) {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			errs = multierr.Append(errs, missingOr(err, "table", name))
		}
	}
	return errs
}

func missingOr(err error, kind, name string) error {
	if gcp.IsNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// InsertRows streams rows into table. Per-row failures come back as a
// *RowsError that still unwraps to the driver error.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}

	err := c.dataset.Table(table).Inserter().Put(ctx, rows)
	if err == nil {
		return nil
	}
	var putErr bigquery.PutMultiError
	if errors.As(err, &putErr) {
		return &RowsError{Table: table, Failed: len(putErr), Total: len(rows), err: err}
	}
	return fmt.Errorf("inserting %d rows into %s: %w", len(rows), table, err)
}

// ReservationEventsTable is the configured reservation lifecycle table.
func (c *Client) ReservationEventsTable() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.cfg.ReservationEventsTable)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// RowsError reports a partially rejected streaming insert.
type RowsError struct {
	Table  string
	Failed int
	Total  int
	err    error
}

func (e *RowsError) Error() string {
	return fmt.Sprintf("bigquery rejected %d of %d rows for %s: %v", e.Failed, e.Total, e.Table, e.err)
}

func (e *RowsError) Unwrap() error { return e.err }
