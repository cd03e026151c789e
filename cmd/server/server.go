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
)

// startHTTPServer starts the HTTP server with graceful shutdown support.
// It serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts the
// server down and releases the application's resources.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		app.cleanup(ctx)
		return fmt.Errorf("failed to listen on port %d: %w", app.config.Server.Port, err)
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.serve(signalCtx, listener, router)
}

// serve runs an HTTP server on listener until ctx is done.
func (app *application) serve(ctx context.Context, listener net.Listener, router http.Handler) error {
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", slog.String("addr", listener.Addr().String()))
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("server failed", slog.Any("error", err))
			cancelServer()
		} else {
			err = nil
		}
		serveErr <- err
	}()

	<-serverCtx.Done()
	app.logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownCancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	app.cleanup(shutdownCtx)

	if shutdownErr != nil {
		return fmt.Errorf("server shutdown failed: %w", shutdownErr)
	}
	if err := <-serveErr; err != nil {
		return err
	}

	app.logger.Info("server shutdown completed")
	return nil
}
