// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

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
	"github.com/spf13/viper"

	"github.com/pdiddy/heic-converter/internal/session"
	"github.com/pdiddy/heic-converter/internal/web"
	"github.com/pdiddy/heic-converter/pkg/types"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web upload service",
	Long: `Serve starts an HTTP server with a browser upload page. Uploaded HEIC/HEIF
files are converted into a session directory under --temp-dir and offered
back as a single ZIP download. Sessions older than --session-ttl are
removed every --reap-interval; a TTL of 0 keeps them indefinitely.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serverConfig()
	if err != nil {
		return err
	}
	conv, err := newConverter(cfg.Decoder)
	if err != nil {
		return err
	}

	store, err := session.NewStore(cfg, conv, os.Stderr)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := session.NewLogger(os.Stderr)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.Wrap(web.NewHandler(store, cfg.MaxUploadBytes, logger), logger),
		ErrorLog:          logger,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if n, err := store.Reap(ctx, cfg.SessionTTL); err != nil {
		logger.Printf("startup reap: %v", err)
	} else if n > 0 {
		logger.Printf("startup reap removed %d expired session(s)", n)
	}
	go store.RunReaper(ctx, cfg.ReapInterval, cfg.SessionTTL)

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s, sessions in %s", cfg.Addr, store.Root())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Println("Server exited")
	return nil
}

func serverConfig() (types.ServerConfig, error) {
	conv, err := conversionConfig()
	if err != nil {
		return types.ServerConfig{}, err
	}
	return types.ServerConfig{
		ConversionConfig: conv,
		Addr:             viper.GetString("server.addr"),
		TempDir:          viper.GetString("server.temp_dir"),
		MaxUploadBytes:   viper.GetInt64("server.max_upload_bytes"),
		SessionTTL:       viper.GetDuration("server.session_ttl"),
		ReapInterval:     viper.GetDuration("server.reap_interval"),
	}, nil
}

// addTempDirFlag registers --temp-dir on commands that work with the
// session root.
func addTempDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("temp-dir", types.DefaultTempDir(), "directory holding session folders and the session index")
}

func init() {
	serveCmd.Flags().String("addr", ":5000", "listen address")
	serveCmd.Flags().Int64("max-upload", types.DefaultMaxUploadBytes, "maximum size of one upload request in bytes")
	serveCmd.Flags().Duration("session-ttl", 24*time.Hour, "remove sessions older than this (0 disables)")
	serveCmd.Flags().Duration("reap-interval", 10*time.Minute, "how often expired sessions are removed")
	addTempDirFlag(serveCmd)

	rootCmd.AddCommand(serveCmd)
}
