// wapbox -- WAP gateway daemon (WTP/WSP over a bearerbox datagram channel).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/pruiz/wapbox/internal/admin"
	"github.com/pruiz/wapbox/internal/bearerbox"
	"github.com/pruiz/wapbox/internal/compile"
	"github.com/pruiz/wapbox/internal/config"
	"github.com/pruiz/wapbox/internal/fetch"
	wapmetrics "github.com/pruiz/wapbox/internal/metrics"
	"github.com/pruiz/wapbox/internal/urlmap"
	appversion "github.com/pruiz/wapbox/internal/version"
	"github.com/pruiz/wapbox/internal/wap"
	"github.com/pruiz/wapbox/internal/wapapp"
)

// shutdownTimeout bounds how long the admin HTTP server gets to drain
// active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// dialTimeout bounds the initial bearerbox connection attempt.
const dialTimeout = 5 * time.Second

// datagramQueueDepth is the buffer on the channel feeding inbound
// bearerbox datagrams into the engine; a slow engine tick (an
// in-flight fetch callback, say) should not make the receiver block
// the TCP read loop for long.
const datagramQueueDepth = 256

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("wapbox starting",
		slog.String("version", appversion.Version),
		slog.String("wapbox_addr", cfg.Wapbox.Addr),
		slog.String("admin_addr", cfg.Admin.Addr),
	)

	reg := prometheus.NewRegistry()
	collector := wapmetrics.NewCollector(reg)

	if err := runServers(cfg, collector, reg, logger); err != nil {
		logger.Error("wapbox exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("wapbox stopped")
	return 0
}

// runServers wires every collaborator (bearerbox connection, fetch
// pool, engine, admin server) and runs them under one errgroup with a
// signal-aware context, mirroring the teacher's gRPC+metrics server
// pairing in cmd/gobfd/main.go.
func runServers(cfg *config.Config, collector *wapmetrics.Collector, reg *prometheus.Registry, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bbAddr := fmt.Sprintf("%s:%d", cfg.Wapbox.BearerboxHost, cfg.Wapbox.BearerboxPort)
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, err := bearerbox.Dial(dialCtx, bbAddr)
	cancel()
	if err != nil {
		return fmt.Errorf("dial bearerbox at %s: %w", bbAddr, err)
	}
	defer conn.Close()

	g, gCtx := errgroup.WithContext(ctx)

	datagrams := make(chan wap.Datagram, datagramQueueDepth)
	recv := bearerbox.NewReceiver(conn, datagrams, logger)
	g.Go(func() error {
		return recv.Run(gCtx)
	})

	fetchPool := fetch.New(gCtx, fetch.Config{}, logger)
	defer fetchPool.Close()

	rules := make([]urlmap.Rule, 0, len(cfg.URLMap.Rules))
	for _, r := range cfg.URLMap.Rules {
		rules = append(rules, urlmap.Rule{Src: r.Src, Dst: r.Dst, Prefix: r.Prefix})
	}
	urlMap := urlmap.New(rules, cfg.Wapbox.DeviceHome)

	wheel := wap.NewWheel()
	defer wheel.Close()

	engine := wapapp.New(wapapp.Deps{
		Wheel:    wheel,
		Fetch:    fetchPool,
		URLMap:   urlMap,
		Compiler: compile.PassThrough,
		Conn:     conn,
		Metrics:  collector,
		Logger:   logger,
	})
	g.Go(func() error {
		return engine.Run(gCtx, datagrams)
	})

	if cfg.Timers.HeartbeatFreq > 0 {
		g.Go(func() error {
			return bearerbox.RunHeartbeat(gCtx, conn, cfg.Timers.HeartbeatFreq, collector.SetHeartbeatLoad1, logger)
		})
	}

	adminSrv := newAdminServer(cfg.Admin, engine, reg, logger)
	g.Go(func() error {
		logger.Info("admin server listening", slog.String("addr", cfg.Admin.Addr))
		return listenAndServe(gCtx, adminSrv, cfg.Admin.Addr)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(ctx, adminSrv, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// newAdminServer builds the JSON admin/inspection HTTP server (session
// and method introspection plus the Prometheus scrape endpoint).
func newAdminServer(cfg config.AdminConfig, engine *wapapp.Engine, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	handler := admin.New(admin.Deps{Sessions: engine.Sessions(), Registry: reg}, cfg.MetricsPath, logger)
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// listenAndServe binds addr with a context-aware ListenConfig and
// serves until the server is shut down.
func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

// gracefulShutdown drains the admin HTTP server within shutdownTimeout.
// The engine and receiver goroutines exit on their own once gCtx is
// cancelled; there is no session "drain to AdminDown" analog here, a
// WSP session has no peer-visible graceful-close PDU to send on exit.
func gracefulShutdown(parent context.Context, adminSrv *http.Server, logger *slog.Logger) error {
	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), shutdownTimeout)
	defer cancel()

	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown admin server: %w", err)
	}
	return nil
}

// loadConfig loads configuration from a file path or returns defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

// newLoggerWithLevel creates a structured logger using a shared
// LevelVar so a future reload could change verbosity without a restart.
func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
