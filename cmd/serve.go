package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/pawtrait-pals/pawtrait/internal/catalog"
	"github.com/pawtrait-pals/pawtrait/internal/config"
	"github.com/pawtrait-pals/pawtrait/internal/handlers"
	"github.com/pawtrait-pals/pawtrait/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Pawtrait web server",
		Long: `Starts the Pawtrait web interface on the specified port.

The creation page accepts a pet photo, hands photos taken on iOS devices
back from the capture page, and generates portraits in the chosen styles.`,
		Example: `  # Start server on default port 8888
  pawtrait serve

  # Start server on custom port
  pawtrait serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			cat, err := loadCatalog(cfg.CatalogPath)
			if err != nil {
				return err
			}

			uploader, err := storage.NewImageUploader(cmd.Context(), cfg.UploadsDir)
			if err != nil {
				return fmt.Errorf("failed to create image storage: %w", err)
			}

			handler := handlers.New(cfg, cat, uploader)
			defer handler.Close()

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Pawtrait available", "addr", addr, "url", "http://localhost"+addr+"/create", "storage", storage.GetImageStorageType())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides PAWTRAIT_PORT)")

	return cmd
}

// loadCatalog reads the catalogue override at path, or the built-in one.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return catalog.Load(f)
}
