package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/signal"
	"syscall"
	"time"

	api "github.com/oshokin/downtime-alerts/internal/api/grpc/alerts"
	"github.com/oshokin/downtime-alerts/internal/config"
)

// withControl dials the running agent and passes the client to fn.
func withControl(fn func(ctx context.Context, c *api.Client) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	address, timeout, err := controlTarget()
	if err != nil {
		return err
	}

	c, err := api.Dial(ctx, address, api.WithCallTimeout(timeout))
	if err != nil {
		return fmt.Errorf("connect to agent at %s: %w", address, err)
	}

	defer func() {
		_ = c.Close()
	}()

	return fn(ctx, c)
}

// controlTarget resolves the agent address, falling back to the defaults
// when no configuration file exists.
func controlTarget() (string, time.Duration, error) {
	address, timeout := config.DefaultControlAddress, config.DefaultTimeout

	settings, err := config.Load(configPath)
	switch {
	case err == nil:
		address, timeout = settings.ControlAddress, settings.Timeout
	case errors.Is(err, fs.ErrNotExist):
	default:
		return "", 0, err
	}

	if controlAddress != "" {
		address = controlAddress
	}

	return address, timeout, nil
}
