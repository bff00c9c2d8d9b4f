package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pablasso/routeright/internal/api"
	"github.com/pablasso/routeright/internal/config"
	"github.com/pablasso/routeright/internal/demo"
	"github.com/pablasso/routeright/internal/dispatch"
	"github.com/pablasso/routeright/internal/feedback"
	"github.com/pablasso/routeright/internal/geo"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/metrics"
	"github.com/pablasso/routeright/internal/session"
	"github.com/pablasso/routeright/internal/stream"
)

// runtime is everything a planning command needs, wired from config.
type runtime struct {
	baseURL    string
	client     *api.Client
	controller *session.Controller
	locator    geo.Locator
	feedback   *feedback.Service
	metrics    *metrics.Metrics
	demo       *demo.Server

	// stderr is shared with the logger when it logs to the terminal.
	stderr io.Writer
}

func (rt *runtime) close() {
	rt.controller.Close()
}

// withRuntime wires the client stack for cmd, runs fn and then stops the
// background servers.
func (a *app) withRuntime(cmd *cobra.Command, interactive bool, fn func(ctx context.Context, rt *runtime, logger *logging.Logger) error) error {
	stderr := logging.NewSyncWriter(cmd.ErrOrStderr())
	logger, err := a.logger(cmd, interactive, stderr)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	rt, err := a.start(gctx, g, logger)
	if err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	rt.stderr = stderr

	runErr := fn(gctx, rt, logger)
	rt.close()
	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// start wires the client stack. Background servers (the demo service and
// the metrics endpoint) run in g and stop when ctx is cancelled.
func (a *app) start(ctx context.Context, g *errgroup.Group, logger *logging.Logger) (*runtime, error) {
	cfg := a.cfg
	rt := &runtime{metrics: metrics.New(), baseURL: cfg.API.BaseURL}

	if a.demo {
		srv, baseURL, err := startDemo(ctx, g, cfg.Demo, "127.0.0.1:0", logger)
		if err != nil {
			return nil, err
		}
		rt.demo = srv
		rt.baseURL = baseURL
	}

	if cfg.Metrics.Addr != "" {
		addr := cfg.Metrics.Addr
		g.Go(func() error {
			logger.Info("serving metrics", "addr", addr)
			return rt.metrics.Serve(ctx, addr)
		})
	}

	rt.client = newClient(cfg, rt.baseURL, rt.metrics, logger)

	d, err := dispatch.New(cfg.Dispatch.Mode, rt.client,
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(rt.metrics),
		dispatch.WithMaxRecordSize(cfg.Dispatch.MaxRecordBytes),
		dispatch.WithPacing(cfg.Dispatch.SyntheticPacing),
	)
	if err != nil {
		return nil, err
	}

	rt.controller = session.New(d,
		session.WithLogger(logger),
		session.WithWatchdog(cfg.Dispatch.Watchdog),
		session.WithMetrics(rt.metrics),
	)
	rt.locator = newLocator(cfg.Location, logger)
	rt.feedback = feedback.NewService(rt.client, rt.metrics, logger)
	return rt, nil
}

func newClient(cfg *config.Config, baseURL string, m *metrics.Metrics, logger *logging.Logger) *api.Client {
	return api.NewClient(&api.Config{
		BaseURL:   baseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	},
		api.WithMetrics(m),
		api.WithLogger(logger),
		api.WithStreamOptions(stream.WithMaxRecordSize(cfg.Dispatch.MaxRecordBytes)),
	)
}

// newLocator prefers configured coordinates, then the lookup service.
// Successful lookups are reused for geo.DefaultMaxAge.
func newLocator(cfg config.LocationConfig, logger *logging.Logger) geo.Locator {
	var chain geo.Chain
	if cfg.HasStaticLocation() {
		chain = append(chain, geo.Static{Coordinates: geo.Coordinates{Lat: *cfg.Lat, Lng: *cfg.Lng}})
	}
	if cfg.LookupURL != "" {
		chain = append(chain, &geo.HTTPLookup{URL: cfg.LookupURL, Timeout: cfg.Timeout, Logger: logger})
	}
	return geo.NewCached(chain)
}

// startDemo binds addr and serves the demo planning service in g.
func startDemo(ctx context.Context, g *errgroup.Group, cfg config.DemoConfig, addr string, logger *logging.Logger) (*demo.Server, string, error) {
	dcfg, err := demoConfig(cfg)
	if err != nil {
		return nil, "", err
	}
	ln, baseURL, err := demo.Listen(addr)
	if err != nil {
		return nil, "", err
	}
	srv := demo.NewServer(dcfg, logger)
	g.Go(func() error {
		return srv.Serve(ctx, ln)
	})
	return srv, baseURL, nil
}

func demoConfig(cfg config.DemoConfig) (demo.Config, error) {
	preset, err := demo.ParsePreset(cfg.Preset)
	if err != nil {
		return demo.Config{}, err
	}
	scenario, err := demo.ParseScenario(cfg.Scenario)
	if err != nil {
		return demo.Config{}, err
	}
	dcfg, err := demo.NewConfig(preset, scenario, cfg.Streaming)
	if err != nil {
		return demo.Config{}, fmt.Errorf("demo config: %w", err)
	}
	return dcfg, nil
}
