package agent

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/downtime-alerts/internal/api/grpc/alerts"
	"github.com/oshokin/downtime-alerts/internal/config"
	"github.com/oshokin/downtime-alerts/internal/credential"
	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
	"github.com/oshokin/downtime-alerts/internal/metrics"
	"github.com/oshokin/downtime-alerts/internal/platform"
	"github.com/oshokin/downtime-alerts/internal/repository/cache"
	"github.com/oshokin/downtime-alerts/internal/service/alerts"
	"github.com/oshokin/downtime-alerts/internal/service/common"
	"github.com/oshokin/downtime-alerts/internal/service/dispatcher"
	"github.com/oshokin/downtime-alerts/internal/service/preferences"
	"github.com/oshokin/downtime-alerts/internal/service/push"
)

// Options controls the agent process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ControlAddress overrides the control surface listen address.
	ControlAddress string
	// Silent disables the audible cue.
	Silent bool
	// Tokens reads the API token when the keyring is enabled, the system keyring when nil.
	Tokens TokenSource
}

// TokenSource provides the API token.
type TokenSource interface {
	Token() (string, error)
}

// Run starts the agent and blocks until ctx is canceled or the control
// surface stops.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	closeLog, err := logger.Configure(settings.LogLevel, settings.LogFormat, settings.LogFile)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	defer func() {
		_ = closeLog()
	}()

	ctx = logger.WithName(ctx, "agent")

	controlAddress := settings.ControlAddress
	if opts.ControlAddress != "" {
		controlAddress = opts.ControlAddress
	}

	client, err := common.NewClient(settings.APIURL,
		common.WithCallTimeout(settings.Timeout),
		common.WithToken(resolveToken(ctx, settings, opts.Tokens)))
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	fallback := cache.NewFallback(cache.Open(ctx, &settings.Cache), settings.Cache.MaxAlerts)
	defer func() {
		if closeErr := fallback.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close cache", "error", closeErr)
		}
	}()

	prefs := preferences.New(ctx, fallback)

	pushHost := platform.NewNativePush(settings.Push.Endpoint, domain.ParsePermission(settings.Push.Permission), fallback)
	pushManager := push.New(pushHost, client,
		push.WithServiceWorker(settings.Push.ServiceWorkerPath, settings.Push.Scope),
		push.WithFallbackKey(settings.Push.FallbackVAPIDKey),
		push.WithDeviceName(deviceName(ctx)))

	notifier := dispatcher.New(
		platform.NewBeeepAudio(!opts.Silent),
		platform.NewBeeepDesktop(pushHost.Permission),
		dispatcher.WithFocus(func(alertID string) {
			logger.InfoKV(ctx, "Notification clicked", "alert_id", alertID)
		}))

	store := alerts.New(ctx, &alerts.Options{
		Remote:           client,
		Cache:            fallback,
		Preferences:      prefs,
		Notifier:         notifier,
		Push:             pushManager,
		FailureThreshold: settings.FailureThreshold,
	})
	defer store.Close()

	syncPush(ctx, pushManager, prefs, settings.EmployeeID)

	if settings.MetricsAddress != "" {
		go func() {
			if serveErr := metrics.Serve(ctx, settings.MetricsAddress); serveErr != nil {
				logger.ErrorKV(ctx, "Metrics endpoint stopped", "error", serveErr)
			}
		}()
	}

	store.Start(ctx)

	return serveControl(ctx, controlAddress, api.NewServer(store, prefs, pushManager))
}

// serveControl runs the gRPC control surface until ctx is canceled.
func serveControl(ctx context.Context, address string, server *api.Server) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	server.Register(grpcServer)

	logger.InfoKV(ctx, "Control surface listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes, so Run returns only
	// once in-flight calls and watch streams have ended.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down control surface")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Control surface stopped")

	return nil
}

// resolveToken returns the inline token, or the keyring token when enabled.
func resolveToken(ctx context.Context, settings *config.Config, tokens TokenSource) string {
	if !settings.UseKeyring {
		return settings.Token
	}

	if tokens == nil {
		tokens = credential.NewStore()
	}

	token, err := tokens.Token()
	if err != nil {
		logger.WarnKV(ctx, "API token unavailable, calling the backend anonymously", "error", err)
		return settings.Token
	}

	return token
}

// deviceName labels this device's push subscriptions.
func deviceName(ctx context.Context) string {
	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Failed to detect device name", "error", err)
		return ""
	}

	return actor.String()
}

// syncPush restores the push subscription and keeps it in line with the
// push preference.
func syncPush(ctx context.Context, manager *push.Manager, prefs *preferences.Manager, employeeID string) {
	if !manager.State().IsSupported {
		logger.Debug(ctx, "Push notifications are not supported on this device")
		return
	}

	manager.Init(ctx)

	if prefs.Get().EnablePush && !manager.State().IsSubscribed {
		manager.Subscribe(ctx, employeeID)
	}

	prefs.OnChange(func(ctx context.Context, previous, current domain.Preferences) {
		switch {
		case current.EnablePush && !previous.EnablePush:
			manager.Subscribe(ctx, employeeID)
		case !current.EnablePush && previous.EnablePush:
			manager.Unsubscribe(ctx)
		}
	})
}
