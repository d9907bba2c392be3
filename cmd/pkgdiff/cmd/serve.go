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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/pkgdiff"
	"github.com/aweris/pkgdiff/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer diff requests on stdio or HTTP",
	Long: `Serve the request/response protocol.

By default requests are read as JSON lines from stdin and responses are
written as JSON lines to stdout. With --http the same requests are served
over HTTP on --addr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("http", false, "serve HTTP instead of stdio")
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	_ = viper.BindPFlag("http_addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	useHTTP, _ := cmd.Flags().GetBool("http")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	s, err := newSession(logger)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer s.Close()

	if !useHTTP {
		logger.Debug().Msg("serving on stdio")
		return server.ServeStdio(ctx, s, os.Stdin, os.Stdout, viper.GetInt("workers"))
	}
	return serveHTTP(ctx, s, logger, viper.GetString("http_addr"))
}

func serveHTTP(ctx context.Context, s *pkgdiff.Session, logger zerolog.Logger, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewHandler(s, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
