// FILE: logtrace/src/internal/source/http.go
package source

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"
	"logtrace/src/internal/limit"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// HTTPSource receives raw log lines via HTTP POST. The request body is
// newline-delimited text; each non-empty line becomes one entry.
type HTTPSource struct {
	host        string
	port        int
	ingestPath  string
	bufferSize  int
	server      *fasthttp.Server
	subscribers []chan core.LogEntry
	mu          sync.RWMutex
	done        chan struct{}
	wg          sync.WaitGroup
	netLimiter  *limit.NetLimiter
	logger      *log.Logger

	// Statistics
	totalEntries   atomic.Uint64
	droppedEntries atomic.Uint64
	rejectedReqs   atomic.Uint64
	startTime      time.Time
	lastEntryTime  atomic.Value // time.Time
}

// NewHTTPSource creates a new HTTP ingest source
func NewHTTPSource(options map[string]any, logger *log.Logger) (*HTTPSource, error) {
	port, ok := toInt(options["port"])
	if !ok || port < 1 || port > 65535 {
		return nil, fmt.Errorf("http source requires valid 'port' option")
	}

	host := ""
	if h, ok := options["host"].(string); ok {
		host = h
	}

	ingestPath := "/ingest"
	if path, ok := options["ingest_path"].(string); ok && path != "" {
		ingestPath = path
	}

	bufferSize := 1000
	if bufSize, ok := toInt(options["buffer_size"]); ok && bufSize > 0 {
		bufferSize = bufSize
	}

	h := &HTTPSource{
		host:       host,
		port:       port,
		ingestPath: ingestPath,
		bufferSize: bufferSize,
		done:       make(chan struct{}),
		startTime:  time.Now(),
		logger:     logger,
	}
	h.lastEntryTime.Store(time.Time{})

	if rl, ok := options["rate_limit"].(map[string]any); ok {
		h.netLimiter = limit.NewNetLimiter(rateLimitFromOptions(rl), logger)
	}

	return h, nil
}

// rateLimitFromOptions decodes an inline rate limit block from source options.
func rateLimitFromOptions(rl map[string]any) *config.RateLimitConfig {
	cfg := &config.RateLimitConfig{}

	if enabled, ok := rl["enabled"].(bool); ok {
		cfg.Enabled = enabled
	}
	if rps, ok := toFloat(rl["requests_per_second"]); ok {
		cfg.RequestsPerSecond = rps
	}
	if burst, ok := toInt(rl["burst_size"]); ok {
		cfg.BurstSize = burst
	}
	if respCode, ok := toInt(rl["response_code"]); ok {
		cfg.ResponseCode = respCode
	}
	if msg, ok := rl["response_message"].(string); ok {
		cfg.ResponseMessage = msg
	}
	if list, ok := rl["ip_whitelist"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				cfg.IPWhitelist = append(cfg.IPWhitelist, s)
			}
		}
	}
	if list, ok := rl["ip_blacklist"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				cfg.IPBlacklist = append(cfg.IPBlacklist, s)
			}
		}
	}

	return cfg
}

func (h *HTTPSource) Subscribe() <-chan core.LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan core.LogEntry, h.bufferSize)
	h.subscribers = append(h.subscribers, ch)
	return ch
}

func (h *HTTPSource) Start() error {
	h.server = &fasthttp.Server{
		Handler:           h.requestHandler,
		DisableKeepalive:  false,
		StreamRequestBody: true,
		CloseOnShutdown:   true,
	}

	addr := fmt.Sprintf("%s:%d", h.host, h.port)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Info("msg", "HTTP source server starting",
			"component", "http_source",
			"port", h.port,
			"ingest_path", h.ingestPath)

		if err := h.server.ListenAndServe(addr); err != nil {
			h.logger.Error("msg", "HTTP source server failed",
				"component", "http_source",
				"port", h.port,
				"error", err)
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)
	return nil
}

func (h *HTTPSource) Stop() {
	h.logger.Info("msg", "Stopping HTTP source")
	close(h.done)

	if h.server != nil {
		if err := h.server.Shutdown(); err != nil {
			h.logger.Error("msg", "Error shutting down HTTP source server",
				"component", "http_source",
				"error", err)
		}
	}

	if h.netLimiter != nil {
		h.netLimiter.Shutdown()
	}

	h.wg.Wait()

	h.mu.Lock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.mu.Unlock()

	h.logger.Info("msg", "HTTP source stopped")
}

func (h *HTTPSource) GetStats() SourceStats {
	lastEntry, _ := h.lastEntryTime.Load().(time.Time)

	var netLimitStats map[string]any
	if h.netLimiter != nil {
		netLimitStats = h.netLimiter.GetStats()
	}

	return SourceStats{
		Type:           "http",
		TotalEntries:   h.totalEntries.Load(),
		DroppedEntries: h.droppedEntries.Load(),
		StartTime:      h.startTime,
		LastEntryTime:  lastEntry,
		Details: map[string]any{
			"port":              h.port,
			"ingest_path":       h.ingestPath,
			"rejected_requests": h.rejectedReqs.Load(),
			"rate_limit":        netLimitStats,
		},
	}
}

func (h *HTTPSource) requestHandler(ctx *fasthttp.RequestCtx) {
	// Only handle POST to the configured ingest path
	if string(ctx.Method()) != "POST" || string(ctx.Path()) != h.ingestPath {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{
			"error": "Not Found",
			"hint":  fmt.Sprintf("POST log lines to %s", h.ingestPath),
		})
		return
	}

	remoteAddr := ctx.RemoteAddr().String()
	if h.netLimiter != nil {
		if allowed, statusCode, message := h.netLimiter.CheckHTTP(remoteAddr); !allowed {
			h.rejectedReqs.Add(1)
			ctx.SetStatusCode(statusCode)
			ctx.SetContentType("application/json")
			json.NewEncoder(ctx).Encode(map[string]any{
				"error":       message,
				"retry_after": "60",
			})
			return
		}
	}

	body := ctx.PostBody()
	if len(body) == 0 {
		h.rejectedReqs.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{
			"error": "Empty request body",
		})
		return
	}

	origin := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		origin = host
	}

	now := time.Now()
	accepted := 0
	total := 0
	for _, line := range splitLines(body) {
		if len(line) == 0 {
			continue
		}
		total++
		if h.publish(core.LogEntry{
			Time:    now,
			Origin:  origin,
			Raw:     string(line),
			RawSize: int64(len(line)),
		}) {
			accepted++
		}
	}

	ctx.SetStatusCode(fasthttp.StatusAccepted)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]any{
		"accepted": accepted,
		"total":    total,
	})
}

func (h *HTTPSource) publish(entry core.LogEntry) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.totalEntries.Add(1)
	h.lastEntryTime.Store(entry.Time)

	dropped := false
	for _, ch := range h.subscribers {
		select {
		case ch <- entry:
		default:
			dropped = true
			h.droppedEntries.Add(1)
		}
	}

	if dropped {
		h.logger.Debug("msg", "Dropped log entry - subscriber buffer full",
			"component", "http_source")
	}

	return !dropped
}

// splitLines splits bytes into lines, handling both \n and \r\n
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0

	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			end := i
			if i > 0 && data[i-1] == '\r' {
				end = i - 1
			}
			if end > start {
				lines = append(lines, data[start:end])
			}
			start = i + 1
		}
	}

	if start < len(data) {
		lines = append(lines, data[start:])
	}

	return lines
}
