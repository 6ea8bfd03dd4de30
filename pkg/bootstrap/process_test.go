package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

func newTestProcess(buf *bytes.Buffer) *Process {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return New("test-worker", cfg, logger.New(logger.Options{ServiceName: "test-worker", Output: buf}))
}

func TestCloseRunsInReverseAndJoinsErrors(t *testing.T) {
	p := newTestProcess(&bytes.Buffer{})
	var order []string
	p.Defer("db", func() error { order = append(order, "db"); return errors.New("db busy") })
	p.Defer("redis", func() error { order = append(order, "redis"); return nil })
	p.Defer("pubsub", func() error { order = append(order, "pubsub"); return errors.New("pubsub gone") })

	err := p.Close()
	require.Equal(t, []string{"pubsub", "redis", "db"}, order)
	require.ErrorContains(t, err, "close db: db busy")
	require.ErrorContains(t, err, "close pubsub: pubsub gone")
	require.NoError(t, p.Close(), "closers run once")
}

func TestRunExitCodes(t *testing.T) {
	var buf bytes.Buffer
	p := newTestProcess(&buf)
	closed := false
	p.Defer("db", func() error { closed = true; return nil })

	code := p.run(context.Background(), func(ctx context.Context, _ *Process) error {
		return context.Canceled
	})
	require.Zero(t, code)
	require.True(t, closed)
	require.Contains(t, buf.String(), `"service_kind":"test-worker"`)

	code = p.run(context.Background(), func(ctx context.Context, _ *Process) error {
		return Require("redis", errors.New("dial tcp: refused"))
	})
	require.Equal(t, 1, code)
	require.True(t, strings.Contains(buf.String(), "resource not working: redis"))
}
