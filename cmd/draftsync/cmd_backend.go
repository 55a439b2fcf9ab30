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

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/internal/devbackend"
)

var backendAddr string

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Run the development agent backend",
	RunE:  runBackend,
}

func init() {
	backendCmd.Flags().StringVar(&backendAddr, "addr", "", "listen address (defaults to backend.addr)")
}

func runBackend(cmd *cobra.Command, _ []string) error {
	addr := cfg.Backend.Addr
	if backendAddr != "" {
		addr = backendAddr
	}

	server := &http.Server{
		Addr: addr,
		Handler: devbackend.New(
			devbackend.WithSchema(cfg.Schema),
			devbackend.WithChunkDelay(cfg.Backend.ChunkDelay),
		).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "dev backend listening on %s\n", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
