package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/gcp"
)

func TestConfiguredTables(t *testing.T) {
	tables := configuredTables(config.BigQueryConfig{ReservationEventsTable: " reservation_events "})
	if len(tables) != 1 || tables[0] != "reservation_events" {
		t.Fatalf("unexpected tables %v", tables)
	}
	if got := configuredTables(config.BigQueryConfig{}); len(got) != 0 {
		t.Fatalf("expected no tables, got %v", got)
	}
}

func TestNilClientGuards(t *testing.T) {
	var c *Client
	if err := c.InsertRows(context.Background(), "reservation_events", []any{1}); err != errClientNotInitialized {
		t.Fatalf("expected errClientNotInitialized, got %v", err)
	}
	if err := c.Ping(context.Background()); err != errClientNotInitialized {
		t.Fatalf("expected errClientNotInitialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if c.ReservationEventsTable() != "" {
		t.Fatal("expected empty table name")
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "d", ReservationEventsTable: "t"}, nil); err != gcp.ErrProjectIDRequired {
		t.Fatalf("expected ErrProjectIDRequired, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{ReservationEventsTable: "t"}, nil); err != errDatasetRequired {
		t.Fatalf("expected errDatasetRequired, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "d"}, nil); err != errTableNameRequired {
		t.Fatalf("expected errTableNameRequired, got %v", err)
	}
}

func TestRowsErrorUnwraps(t *testing.T) {
	cause := bigquery.PutMultiError{{RowIndex: 1, Errors: bigquery.MultiError{errors.New("no such field")}}}
	err := error(&RowsError{Table: "reservation_events", Failed: 1, Total: 3, err: cause})
	if !strings.Contains(err.Error(), "rejected 1 of 3 rows for reservation_events") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var putErr bigquery.PutMultiError
	if !errors.As(err, &putErr) || len(putErr) != 1 {
		t.Fatalf("expected PutMultiError in chain, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	unavailable := status.Error(codes.Unavailable, "x")
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limited", err: &googleapi.Error{Code: http.StatusTooManyRequests}, want: true},
		{name: "bad request", err: &googleapi.Error{Code: http.StatusBadRequest}, want: false},
		{name: "grpc unavailable", err: unavailable, want: true},
		{name: "grpc invalid", err: status.Error(codes.InvalidArgument, "x"), want: false},
		{name: "wrapped", err: fmt.Errorf("insert: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), want: true},
		{name: "plain", err: errors.New("boom"), want: false},
		{
			name: "all rows transient",
			err:  bigquery.PutMultiError{{Errors: bigquery.MultiError{unavailable}}},
			want: true,
		},
		{
			name: "one row invalid",
			err: bigquery.PutMultiError{
				{Errors: bigquery.MultiError{unavailable}},
				{Errors: bigquery.MultiError{errors.New("invalid field")}},
			},
			want: false,
		},
		{name: "empty multi", err: bigquery.MultiError{}, want: false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
