package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/fattura-renderer/internal/server"
)

var (
	serverAddr  string
	serverDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for converting invoices.

The API provides endpoints for:
  - POST /convert            - Convert an uploaded XML file to PDF
  - POST /api/v1/tree        - Generic element tree of an XML body
  - POST /api/v1/extract     - Invoice model of an XML body
  - POST /api/v1/validate    - Validate an XML body
  - POST /api/v1/render      - Page descriptions of an XML body
  - POST /api/v1/info        - Get file information
  - GET  /health             - Health check

Examples:
  # Start server on the configured address (default 0.0.0.0:3000)
  fattura-renderer serve

  # Start on a custom address in debug mode
  fattura-renderer serve --address :8080 --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (default: server.host:server.port)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serverAddr
	if addr == "" {
		addr = appConfig.Server.Addr()
	}

	config := &server.Config{
		Address:      addr,
		ReadTimeout:  appConfig.Server.ReadTimeout,
		WriteTimeout: appConfig.Server.WriteTimeout,
		MaxBodySize:  appConfig.Server.MaxBodySize,
		Timeout:      appConfig.Pipeline.Timeout,
		Debug:        serverDebug,
	}

	srv := server.NewServer(config,
		server.WithPipeline(pipeline),
		server.WithLogger(log),
	)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Fprintln(cmd.ErrOrStderr(), "\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	return srv.Run()
}
