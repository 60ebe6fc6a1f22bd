// Package httpapi exposes the login flow, the session surface and the Drive
// sync operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/penter405/brainsync/internal/logging"
	"github.com/penter405/brainsync/internal/server/auth"
	"github.com/penter405/brainsync/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type Options struct {
	Address string
	// AllowedOrigin is the single browser origin granted CORS access.
	AllowedOrigin string
	// FrontendURL receives the login redirect.
	FrontendURL string
	// Production switches cookies to SameSite=None; Secure.
	Production bool
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

type HTTPServer struct {
	opts     Options
	auth     *services.AuthService
	sync     *services.SyncService
	sessions *auth.SessionCodec
	stateAge time.Duration
	cookies  cookieJar
	logger   logging.Logger
}

func NewHTTPServer(opts Options, l logging.Logger, as *services.AuthService, ss *services.SyncService,
	sessions *auth.SessionCodec, stateMaxAge time.Duration) *HTTPServer {
	return &HTTPServer{
		opts:     opts,
		auth:     as,
		sync:     ss,
		sessions: sessions,
		stateAge: stateMaxAge,
		cookies:  cookieJar{production: opts.Production},
		logger:   l.With("module", "http_server"),
	}
}

// Run listens on the configured address until ctx is canceled, then drains
// in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
