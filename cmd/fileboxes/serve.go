package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/fileboxes/internal/api"
	"github.com/newthinker/fileboxes/internal/api/handler"
	"github.com/newthinker/fileboxes/internal/metrics"
	"github.com/newthinker/fileboxes/internal/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the archive over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := a.cfg.Server
			if cmd.Flags().Changed("host") {
				sc.Host = host
			}
			if cmd.Flags().Changed("port") {
				sc.Port = port
			}
			return a.serve(cmd.Context(), sc.Host, sc.Port, sc.APIKey)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}

func (a *app) serve(ctx context.Context, host string, port int, apiKey string) error {
	// /metrics is always exposed while serving.
	if a.metrics == nil {
		a.metrics = metrics.NewRegistry()
	}

	st, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	var mgr *snapshot.Manager
	if a.cfg.Snapshot.Enabled {
		if mgr, err = a.snapshots(); err != nil {
			return err
		}
	}

	server, err := api.NewServer(api.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	}, api.Dependencies{
		Handler: handler.New(st, mgr, a.log),
		Metrics: a.metrics,
	}, a.log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	a.log.Info("serving archive",
		zap.String("archive", st.Path()),
		zap.String("addr", server.Addr()),
		zap.Bool("auth", apiKey != ""),
		zap.Bool("snapshots", mgr != nil),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
