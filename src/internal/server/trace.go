// FILE: logtrace/src/internal/server/trace.go
package server

import (
	"logtrace/src/internal/trace"

	"github.com/valyala/fasthttp"
)

// handleTrace resolves billing-event candidates for one stored record.
// The record is addressed by the sequence number returned at insertion.
func (s *Server) handleTrace(ctx *fasthttp.RequestCtx) {
	seq, err := ctx.QueryArgs().GetUint("seq")
	if err != nil || seq < 1 {
		writeJSON(ctx, fasthttp.StatusBadRequest, map[string]string{
			"error": "missing or invalid 'seq' query parameter",
		})
		return
	}

	record, ok := s.store.Get(uint64(seq))
	if !ok {
		writeJSON(ctx, fasthttp.StatusNotFound, map[string]string{
			"error": "record not found (evicted or never inserted)",
		})
		return
	}

	line := record.Line
	if !line.IsRequest() {
		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"seq":       record.Seq,
			"record":    line,
			"traceable": false,
			"reason":    "record is not an HTTP request line",
		})
		return
	}

	if !trace.IsTraceableRequestPath(line.Path) {
		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"seq":       record.Seq,
			"record":    line,
			"traceable": false,
			"reason":    "request path does not produce usage events",
		})
		return
	}

	if s.resolver == nil || s.usageStore == nil {
		writeJSON(ctx, fasthttp.StatusServiceUnavailable, map[string]string{
			"error": "usage data source not configured",
		})
		return
	}

	details, err := s.usageStore.UsageDetails()
	if err != nil {
		s.logger.Warn("msg", "Usage detail fetch failed",
			"component", "server",
			"error", err)
		writeJSON(ctx, fasthttp.StatusBadGateway, map[string]string{
			"error": "usage data unavailable",
		})
		return
	}

	candidates := s.resolver.Resolve(line, details)

	// Enrichment is best-effort; candidates are still useful without
	// credential display names.
	if creds, err := s.usageStore.Credentials(); err == nil {
		s.resolver.Enrich(candidates, creds)
	} else {
		s.logger.Warn("msg", "Credential fetch failed, skipping enrichment",
			"component", "server",
			"error", err)
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"seq":        record.Seq,
		"record":     line,
		"traceable":  true,
		"candidates": candidates,
	})
}
