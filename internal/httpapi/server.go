package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
)

// Serve runs handler on listener until ctx is done, then shuts the server
// down, waiting at most shutdownTimeout for in-flight requests.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler, shutdownTimeout time.Duration, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", zap.String("addr", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "http api stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down http api")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to shut down http api")
	}
	return nil
}
