package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/advisor"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/config"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/httpapi"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/logging"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/rpcapi"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// #region main
func main() {
	app, err := config.LoadAppConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	flag.StringVar(&app.DBPath, "db", app.DBPath, "path to the table version database")
	flag.StringVar(&app.TableFile, "table", app.TableFile, "serve this table file instead of the active version")
	flag.StringVar(&app.HTTPAddr, "http", app.HTTPAddr, "HTTP listen address")
	flag.StringVar(&app.GRPCAddr, "grpc", app.GRPCAddr, "gRPC listen address (empty disables)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: advisor [--db advisor.db | --table q_table.qtb] [--http :8000] [--grpc :50052]")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nEnvironment:")
		fmt.Fprintln(os.Stderr, config.Usage())
	}
	flag.Parse()

	logger, err := logging.NewLogger(app.LogLevel, app.LogPretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, app, logger); err != nil {
		logger.Error().Err(err).Msg("advisor stopped")
		os.Exit(1)
	}
}

// #endregion main

// #region serve

// serve runs the HTTP and gRPC listeners until ctx is done. A missing or
// unreadable table is logged and the service starts not ready.
func serve(ctx context.Context, app *config.AppConfig, logger zerolog.Logger) error {
	svc := advisor.NewService()
	loader := tableLoader(app)
	if err := loader(svc); err != nil {
		logger.Warn().Err(err).Msg("no table loaded; advising is unavailable")
	} else {
		logSnapshot(logger, svc, "table loaded")
	}

	httpLn, err := net.Listen("tcp", app.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	httpSrv := &http.Server{Handler: httpapi.Router(svc, logger)}

	var grpcSrv *grpc.Server
	var rpc *rpcapi.Server
	var grpcLn net.Listener
	if app.GRPCAddr != "" {
		grpcLn, err = net.Listen("tcp", app.GRPCAddr)
		if err != nil {
			httpLn.Close()
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcSrv, rpc = rpcapi.NewServer(svc, logger)
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", httpLn.Addr().String()).Msg("http listening")
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("serve http: %w", err)
		}
	}()
	if grpcSrv != nil {
		go func() {
			logger.Info().Str("addr", grpcLn.Addr().String()).Msg("grpc listening")
			if err := grpcSrv.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errc <- fmt.Errorf("serve grpc: %w", err)
			}
		}()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var serveErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case serveErr = <-errc:
			break loop
		case <-hup:
			// A failed reload keeps the previous table.
			if err := loader(svc); err != nil {
				logger.Error().Err(err).Msg("reload failed")
				continue
			}
			if rpc != nil {
				rpc.SyncHealth()
			}
			logSnapshot(logger, svc, "table reloaded")
		}
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	if rpc != nil {
		rpc.Shutdown()
		grpcSrv.GracefulStop()
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutdown http: %w", err)
	}
	return serveErr
}

// tableLoader picks the table source: an explicit file wins over the store.
func tableLoader(app *config.AppConfig) func(*advisor.Service) error {
	if app.TableFile != "" {
		return func(svc *advisor.Service) error {
			return svc.LoadFromFile(app.TableFile)
		}
	}
	return func(svc *advisor.Service) error {
		store, err := qtable.NewStore(app.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()
		return svc.LoadFromStore(store)
	}
}

func logSnapshot(logger zerolog.Logger, svc *advisor.Service, msg string) {
	snap, ok := svc.Snapshot()
	if !ok {
		return
	}
	logger.Info().Str("version", snap.VersionID).Str("origin", snap.Origin).Msg(msg)
}

// #endregion serve
