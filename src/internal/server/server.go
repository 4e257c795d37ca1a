// FILE: logtrace/src/internal/server/server.go
package server

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"logtrace/src/internal/auth"
	"logtrace/src/internal/config"
	"logtrace/src/internal/core"
	"logtrace/src/internal/limit"
	"logtrace/src/internal/store"
	"logtrace/src/internal/trace"
	"logtrace/src/internal/usage"
	"logtrace/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// StatsFunc supplies the service-level stats block for the status endpoint.
type StatsFunc func() map[string]any

// Server exposes the record store and trace resolver over HTTP:
// status, recent logs, trace candidate resolution, and a live SSE stream.
type Server struct {
	cfg           config.ServerConfig
	store         *store.Store
	resolver      *trace.Resolver
	usageStore    *usage.Store
	authenticator *auth.Authenticator
	netLimiter    *limit.NetLimiter
	statsFunc     StatsFunc
	logger        *log.Logger

	httpServer *fasthttp.Server
	listener   net.Listener

	// SSE subscribers
	subMu       sync.RWMutex
	subscribers map[uint64]chan core.ParsedLine
	nextSubID   atomic.Uint64

	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time

	// Statistics
	totalRequests  atomic.Uint64
	deniedRequests atomic.Uint64
	activeClients  atomic.Int32
}

// Options carries the server's collaborators. UsageStore and Resolver may
// be nil; the trace endpoint then reports that tracing is unavailable.
type Options struct {
	Store      *store.Store
	Resolver   *trace.Resolver
	UsageStore *usage.Store
	StatsFunc  StatsFunc
}

func New(cfg config.ServerConfig, opts Options, logger *log.Logger) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("server requires a record store")
	}

	s := &Server{
		cfg:         cfg,
		store:       opts.Store,
		resolver:    opts.Resolver,
		usageStore:  opts.UsageStore,
		statsFunc:   opts.StatsFunc,
		logger:      logger,
		subscribers: make(map[uint64]chan core.ParsedLine),
		done:        make(chan struct{}),
		startTime:   time.Now(),
	}

	if cfg.Auth != nil && cfg.Auth.Type != "" && cfg.Auth.Type != "none" {
		authenticator, err := auth.New(cfg.Auth, logger)
		if err != nil {
			return nil, fmt.Errorf("server auth: %w", err)
		}
		s.authenticator = authenticator
	}

	s.netLimiter = limit.NewNetLimiter(cfg.RateLimit, logger)

	return s, nil
}

func (s *Server) Start() error {
	s.httpServer = &fasthttp.Server{
		Handler:           s.requestHandler,
		DisableKeepalive:  false,
		StreamRequestBody: true,
		CloseOnShutdown:   true,
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	errChan := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("msg", "API server starting",
			"component", "server",
			"addr", addr,
			"tls", s.cfg.TLS != nil && s.cfg.TLS.Enabled)

		var err error
		if s.cfg.TLS != nil && s.cfg.TLS.Enabled {
			err = s.listenAndServeTLS(addr)
		} else {
			err = s.httpServer.ListenAndServe(addr)
		}
		if err != nil {
			s.logger.Error("msg", "API server failed",
				"component", "server",
				"addr", addr,
				"error", err)
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (s *Server) listenAndServeTLS(addr string) error {
	cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	if err != nil {
		return fmt.Errorf("loading TLS keypair: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if s.cfg.TLS.MinVersion == "TLS1.3" {
		tlsCfg.MinVersion = tls.VersionTLS13
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = tls.NewListener(ln, tlsCfg)
	return s.httpServer.Serve(s.listener)
}

func (s *Server) Stop() {
	s.logger.Info("msg", "Stopping API server", "component", "server")
	close(s.done)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(); err != nil {
			s.logger.Error("msg", "Error shutting down API server",
				"component", "server",
				"error", err)
		}
	}

	if s.netLimiter != nil {
		s.netLimiter.Shutdown()
	}

	s.subMu.Lock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.subMu.Unlock()

	s.wg.Wait()
	s.logger.Info("msg", "API server stopped", "component", "server")
}

// Publish fans a freshly parsed record out to connected stream clients.
// Slow clients drop records rather than stalling the pipeline.
func (s *Server) Publish(line core.ParsedLine) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}

func (s *Server) GetStats() map[string]any {
	stats := map[string]any{
		"uptime_seconds":  int64(time.Since(s.startTime).Seconds()),
		"total_requests":  s.totalRequests.Load(),
		"denied_requests": s.deniedRequests.Load(),
		"active_clients":  s.activeClients.Load(),
	}
	if s.netLimiter != nil {
		stats["rate_limit"] = s.netLimiter.GetStats()
	}
	if s.authenticator != nil {
		stats["auth"] = s.authenticator.GetStats()
	}
	return stats
}

func (s *Server) requestHandler(ctx *fasthttp.RequestCtx) {
	s.totalRequests.Add(1)
	remoteAddr := ctx.RemoteAddr().String()

	if s.netLimiter != nil {
		if allowed, statusCode, message := s.netLimiter.CheckHTTP(remoteAddr); !allowed {
			s.deniedRequests.Add(1)
			writeJSON(ctx, statusCode, map[string]any{
				"error":       message,
				"retry_after": "60",
			})
			return
		}
	}

	path := string(ctx.Path())

	// The status endpoint stays open for health probes; everything else
	// requires credentials when an authenticator is configured.
	if s.authenticator != nil && path != s.cfg.StatusPath {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if _, err := s.authenticator.AuthenticateHTTP(authHeader, remoteAddr); err != nil {
			s.deniedRequests.Add(1)
			s.logger.Debug("msg", "Request authentication failed",
				"component", "server",
				"remote_addr", remoteAddr,
				"error", err)
			ctx.Response.Header.Set("WWW-Authenticate", s.authChallenge())
			writeJSON(ctx, fasthttp.StatusUnauthorized, map[string]string{
				"error": "Unauthorized",
			})
			return
		}
	}

	switch path {
	case s.cfg.StatusPath:
		s.handleStatus(ctx)
	case s.cfg.LogsPath:
		s.handleLogs(ctx)
	case s.cfg.TracePath:
		s.handleTrace(ctx)
	case s.cfg.StreamPath:
		s.handleStream(ctx)
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, map[string]any{
			"error": "Not Found",
			"endpoints": []string{
				s.cfg.StatusPath,
				s.cfg.LogsPath,
				s.cfg.TracePath + "?seq=N",
				s.cfg.StreamPath,
			},
		})
	}
}

func (s *Server) authChallenge() string {
	if s.cfg.Auth != nil && s.cfg.Auth.Type == "basic" {
		realm := "logtrace"
		if s.cfg.Auth.BasicAuth != nil && s.cfg.Auth.BasicAuth.Realm != "" {
			realm = s.cfg.Auth.BasicAuth.Realm
		}
		return fmt.Sprintf("Basic realm=%q", realm)
	}
	return "Bearer"
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	status := map[string]any{
		"service": "logtrace",
		"version": version.String(),
		"server":  s.GetStats(),
		"store":   s.store.GetStats(),
		"endpoints": map[string]string{
			"status": s.cfg.StatusPath,
			"logs":   s.cfg.LogsPath,
			"trace":  s.cfg.TracePath,
			"stream": s.cfg.StreamPath,
		},
	}

	if s.usageStore != nil {
		status["usage"] = s.usageStore.GetStats()
	}
	if s.statsFunc != nil {
		status["pipelines"] = s.statsFunc()
	}

	ctx.SetContentType("application/json")
	data, _ := json.MarshalIndent(status, "", "  ")
	ctx.SetBody(data)
}

func (s *Server) handleLogs(ctx *fasthttp.RequestCtx) {
	limitArg := 100
	if v, err := ctx.QueryArgs().GetUint("limit"); err == nil && v > 0 {
		limitArg = v
	}
	if limitArg > 1000 {
		limitArg = 1000
	}
	level := string(ctx.QueryArgs().Peek("level"))

	records := s.store.Recent(limitArg, level)

	writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(body)
}
