package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/treegen/internal/oracle"
)

// #region command
func newServeCmd() *cobra.Command {
	var (
		addr        string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured score table over gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, addr, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "gRPC listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address when set")
	return cmd
}

// #endregion command

// #region serve
func runServe(ctx context.Context, addr, metricsAddr string) error {
	cfg, sys, err := loadSystem()
	if err != nil {
		return err
	}
	table, err := loadTable(cfg)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := grpc.NewServer()
	oracle.RegisterScorerServer(srv, oracle.NewTableServer(sys, table))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("scorer listening", "addr", lis.Addr().String(), "system", sys.Name(), "actions", sys.NumActions())
		return srv.Serve(lis)
	})

	var metricsSrv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			slog.Info("metrics listening", "addr", metricsAddr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down scorer")
		srv.GracefulStop()
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}

// #endregion serve
