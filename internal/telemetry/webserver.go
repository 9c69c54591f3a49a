package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/rjboer/GoBaseband/internal/logging"
)

// listenTimeout bounds how long Start keeps retrying a busy address.
const listenTimeout = 30 * time.Second

// WebServer exposes the hub over HTTP.
type WebServer struct {
	srv    *http.Server
	hub    *Hub
	logger logging.Logger
}

// NewWebServer builds an HTTP server serving the hub routes.
func NewWebServer(addr string, hub *Hub, logger logging.Logger) *WebServer {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebServer{
		hub:    hub,
		logger: logger.With(logging.Field{Key: "subsystem", Value: "web"}),
		srv:    &http.Server{Addr: addr, Handler: hub.Handler(), ReadHeaderTimeout: 5 * time.Second},
	}
}

// listen binds the address, retrying with exponential backoff while it is in
// use. Retries run until ctx is done or listenTimeout elapses.
func (w *WebServer) listen(ctx context.Context) (net.Listener, error) {
	// backoff stops as soon as the next interval would pass a ctx deadline;
	// hand it a cancel-only copy that ends when ctx does.
	retryCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var ln net.Listener
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = listenTimeout
	op := func() error {
		l, err := net.Listen("tcp", w.srv.Addr)
		if err != nil {
			w.logger.Warn("listen failed, retrying", logging.Field{Key: "addr", Value: w.srv.Addr}, logging.Field{Key: "error", Value: err})
			return err
		}
		ln = l
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, retryCtx)); err != nil {
		return nil, err
	}
	return ln, nil
}

// Start serves until ctx is canceled.
func (w *WebServer) Start(ctx context.Context) error {
	ln, err := w.listen(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	w.logger.Info("web server listening", logging.Field{Key: "addr", Value: ln.Addr().String()})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.srv.Shutdown(shutdownCtx); err != nil {
			w.logger.Warn("web server shutdown", logging.Field{Key: "error", Value: err})
		}
	}()

	if err := w.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
