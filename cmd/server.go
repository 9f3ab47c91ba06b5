package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vanshika/peerpay/internal/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the HTTP API server",
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	if strings.TrimSpace(rt.cfg.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}

	apiHandlers := server.NewAPIHandlers(rt.logger, rt.users, rt.transfers, rt.bonus, rt.risk)

	router := server.NewRouter(rt.logger, server.RouterDependencies{
		Health:           server.GraphHealthService{Client: rt.graph},
		API:              apiHandlers,
		JWTSecret:        rt.cfg.Auth.JWTSecret,
		MetricsEnabled:   rt.cfg.HTTP.MetricsEnabled,
		AllowedOrigins:   parseAllowedOrigins(rt.cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(rt.logger, rt.cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		rt.logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			rt.logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		rt.logger.Error("graceful shutdown failed", "error", err)
	}
	return nil
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
