// FILE: logtrace/src/internal/server/stream.go
package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"logtrace/src/internal/core"

	"github.com/valyala/fasthttp"
)

const heartbeatInterval = 30 * time.Second

// handleStream serves parsed records to the client as server-sent events.
func (s *Server) handleStream(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Content-Type", "text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	clientChan := make(chan core.ParsedLine, 256)

	s.subMu.Lock()
	id := s.nextSubID.Add(1)
	s.subscribers[id] = clientChan
	s.subMu.Unlock()

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		s.activeClients.Add(1)
		s.wg.Add(1)
		defer func() {
			s.activeClients.Add(-1)
			s.wg.Done()

			s.subMu.Lock()
			if ch, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(ch)
			}
			s.subMu.Unlock()
		}()

		// Initial connected event
		info, _ := json.Marshal(map[string]any{
			"client_id":   id,
			"stream_path": s.cfg.StreamPath,
		})
		fmt.Fprintf(w, "event: connected\ndata: %s\n\n", info)
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case line, ok := <-clientChan:
				if !ok {
					return
				}

				data, err := json.Marshal(line)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", data)
				if err := w.Flush(); err != nil {
					return
				}

			case <-ticker.C:
				fmt.Fprintf(w, ": heartbeat clients=%d uptime=%ds\n\n",
					s.activeClients.Load(), int(time.Since(s.startTime).Seconds()))
				if err := w.Flush(); err != nil {
					return
				}

			case <-s.done:
				fmt.Fprintf(w, "event: disconnect\ndata: {\"reason\":\"server_shutdown\"}\n\n")
				w.Flush()
				return
			}
		}
	})
}
