// =============================================================================
// RL-24 Transmission - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   rl24 serve [--addr :8080] [--origin URL]...
//
// GRACEFUL SHUTDOWN:
//   On SIGINT/SIGTERM the server stops accepting connections and waits up to
//   30 seconds for active requests to complete.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rl24-transmission/internal/api"
	"github.com/ginjaninja78/rl24-transmission/internal/validation"
	"github.com/ginjaninja78/rl24-transmission/internal/xmlwriter"
)

var (
	serveAddr    string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API:

  GET  /health         liveness probe
  POST /api/generate   JSON {metadata, issuer, records} -> transmission
  POST /api/validate   transmission text -> findings
  GET  /api/filename   ?year=&preparer=&sequence=`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origin", nil, "Allowed CORS origin (repeatable)")
}

func runServe() error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	var opts []validation.Option
	if cfg.SchemaFile != "" {
		opts = append(opts, validation.WithSchemaChecker(validation.NewXMLLintChecker(cfg.SchemaFile)))
	}

	handler := api.NewHandler(xmlwriter.NewGenerator(), validation.NewValidator(opts...), log)
	router := api.NewRouter(handler, serveOrigins)

	server := &http.Server{
		Addr:         serveAddr,
		Handler:      router,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", serveAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
