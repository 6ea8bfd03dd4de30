// Package bootstrap holds the start-up and shutdown sequence shared by the
// binaries under cmd/.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/instance"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

type closer struct {
	name string
	fn   func() error
}

// Process is one running binary: its config, its logger and the resources
// to release on exit.
type Process struct {
	Name   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
}

// Start loads .env (if present) and the environment config, then builds the
// process logger tagged with the instance id.
func Start(name string) (*Process, error) {
	boot := logger.New(logger.Options{ServiceName: name})
	if err := godotenv.Load(); err != nil {
		boot.Debug(context.Background(), ".env not loaded, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = name

	return New(name, cfg, logger.New(logger.Options{
		ServiceName: name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"instance": instance.GetID()},
	})), nil
}

// New builds a Process from an already loaded config.
func New(name string, cfg *config.Config, logg *logger.Logger) *Process {
	return &Process{Name: name, Config: cfg, Logger: logg}
}

// Defer registers fn to run on Close. Closers run in reverse order.
func (p *Process) Defer(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, fn: fn})
}

// DeferCloser registers c.Close.
func (p *Process) DeferCloser(name string, c io.Closer) {
	p.Defer(name, c.Close)
}

// Close runs every registered closer and joins their errors.
func (p *Process) Close() error {
	var err error
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if cerr := c.fn(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", c.name, cerr))
		}
	}
	p.closers = nil
	return err
}

// Run calls fn with a context cancelled on SIGINT or SIGTERM, closes the
// registered resources and returns the exit code. Cancellation is a clean
// shutdown.
func (p *Process) Run(fn func(ctx context.Context, p *Process) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return p.run(ctx, fn)
}

func (p *Process) run(ctx context.Context, fn func(ctx context.Context, p *Process) error) int {
	ctx = p.Logger.WithFields(ctx, map[string]any{
		"env":          p.Config.App.Env,
		"service_kind": p.Name,
	})

	code := 0
	err := fn(ctx, p)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.Logger.Error(ctx, p.Name+" stopped unexpectedly", err)
		code = 1
	}
	if cerr := p.Close(); cerr != nil {
		p.Logger.Error(ctx, "shutdown cleanup failed", cerr)
	}
	if code == 0 {
		p.Logger.Info(ctx, p.Name+" shut down")
	}
	return code
}

// Main is the body of every cmd main function.
func Main(name string, fn func(ctx context.Context, p *Process) error) {
	p, err := Start(name)
	if err != nil {
		logger.New(logger.Options{ServiceName: name}).Error(context.Background(), "startup failed", err)
		os.Exit(1)
	}
	os.Exit(p.Run(fn))
}

// Require wraps a failed start-up step so the log names the resource.
func Require(resource string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("resource not working: %s: %w", resource, err)
}
