package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPServer is the subset of *http.Server the service drives
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs an HTTP server as a supervised service
type HTTPService struct {
	server          HTTPServer
	name            string
	addr            string
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// NewHTTPService wraps server. name identifies it in supervisor events.
func NewHTTPService(name string, server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	return newHTTPService(name, server.Addr, server, shutdownTimeout)
}

func newHTTPService(name, addr string, server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{
		server:          server,
		name:            name,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		logger:          slog.Default(),
	}
}

// Serve listens until ctx is canceled, then shuts the server down gracefully
func (h *HTTPService) Serve(ctx context.Context) error {
	h.logger.Info("HTTP server listening", "name", h.name, "addr", h.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", h.name, err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already canceled so shutdown gets its own deadline
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s shutdown failed: %w", h.name, err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string {
	return h.name
}
