package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/parley-ai/parley/pkg/gateway/config"
	"github.com/parley-ai/parley/pkg/gateway/handlers"
	"github.com/parley-ai/parley/pkg/gateway/lifecycle"
	"github.com/parley-ai/parley/pkg/gateway/mw"
	"github.com/parley-ai/parley/pkg/gateway/ratelimit"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	lifecycle  *lifecycle.Lifecycle
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	// One pooled client for all outbound Google calls.
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: cfg.UpstreamConnectTimeout,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: cfg.UpstreamResponseHeaderTimeout,
		},
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		mux:        http.NewServeMux(),
		lifecycle:  &lifecycle.Lifecycle{},
		httpClient: httpClient,
		limiter: ratelimit.New(ratelimit.Config{
			RPS:           cfg.LimitRPS,
			Burst:         cfg.LimitBurst,
			MaxConcurrent: cfg.LimitMaxConcurrent,
		}),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Lifecycle: s.lifecycle})

	s.mux.Handle("/api/session", handlers.SessionHandler{
		SigningSecret: []byte(s.cfg.SigningSecret),
		TTL:           s.cfg.SessionTokenTTL,
	})
	s.mux.Handle("/api/gmail/auth", handlers.GmailAuthHandler{
		Config:     s.cfg,
		HTTPClient: s.httpClient,
		Logger:     s.logger,
	})
	s.mux.Handle("/api/gmail/proxy", handlers.GmailProxyHandler{
		BaseURL:    s.cfg.GmailAPIBaseURL,
		HTTPClient: s.httpClient,
		Logger:     s.logger,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = handlerTimeout(s.cfg.HandlerTimeout, h)
	h = maxBody(s.cfg.MaxBodyBytes, h)
	h = mw.RateLimit(s.limiter, h)
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// Lifecycle exposes the draining flag so main can flip readiness before
// shutting the listener down.
func (s *Server) Lifecycle() *lifecycle.Lifecycle {
	return s.lifecycle
}

// handlerTimeout bounds each request's context so a stalled upstream call
// cannot pin a handler past the configured total request timeout.
func handlerTimeout(limit time.Duration, next http.Handler) http.Handler {
	if limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), limit)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func maxBody(limit int64, next http.Handler) http.Handler {
	if limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}
