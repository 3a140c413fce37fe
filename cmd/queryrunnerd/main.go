// Command queryrunnerd serves the plugin execution engine over HTTP,
// binding the same connections.yaml and plugins directory the CLI reads.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	qr "github.com/jpmoresmau/queryrunner"
	"github.com/jpmoresmau/queryrunner/internal/config"
	"github.com/jpmoresmau/queryrunner/internal/engine"
	"github.com/jpmoresmau/queryrunner/internal/httpapi"
	"github.com/jpmoresmau/queryrunner/internal/pgadapter"
	"github.com/jpmoresmau/queryrunner/internal/pluginhost"
	"github.com/jpmoresmau/queryrunner/internal/rlog"
	"github.com/jpmoresmau/queryrunner/internal/sqliteadapter"
)

const shutdownGrace = 5 * time.Second

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "address to listen on")
	connectionsPath := flag.String("connections", "config/connections.yaml", "path to the connections YAML file")
	pluginsDir := flag.String("plugins", "plugins", "directory of .wasm plugin binaries")
	flag.Parse()

	if err := run(*addr, *connectionsPath, *pluginsDir); err != nil {
		fmt.Fprintln(os.Stderr, "queryrunnerd:", err)
		os.Exit(1)
	}
}

func run(addr, connectionsPath, pluginsDir string) error {
	logger, err := rlog.New()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connections, err := config.LoadConnections(connectionsPath)
	if err != nil {
		return fmt.Errorf("loading connections: %w", err)
	}

	runtime, err := pluginhost.NewRuntime(ctx)
	if err != nil {
		return fmt.Errorf("starting plugin runtime: %w", err)
	}
	defer runtime.Close(ctx)

	plugins, err := config.LoadPlugins(ctx, runtime, pluginsDir)
	if err != nil {
		return fmt.Errorf("loading plugins: %w", err)
	}

	sqliteAdapter := sqliteadapter.New()
	defer sqliteAdapter.Close()

	adapters := map[qr.ConnectionKind]qr.Adapter{
		qr.ConnectionSQLite:   sqliteAdapter,
		qr.ConnectionPostgres: pgadapter.New(),
	}

	eng := engine.New(plugins, connections, adapters, logger)
	handler := httpapi.NewHandler(eng, logger)

	server := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
