package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/harborline/catalog-assistant/internal/core/domain"
	"github.com/harborline/catalog-assistant/internal/core/ports"
)

const heartbeatInterval = 15 * time.Second

func (rt *Router) chatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query   string                    `json:"query"`
		History []domain.ConversationTurn `json:"history"`
		// Files is accepted for client compatibility and ignored:
		// attachments are never parsed server-side.
		Files json.RawMessage `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	// Validate before committing to the SSE response: after the first write
	// the status code is fixed at 200.
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	stream, err := newSSEStream(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	stopHeartbeat := stream.startHeartbeat(r.Context(), heartbeatInterval)
	defer stopHeartbeat()

	start := time.Now()
	emitter := &sseEmitter{stream: stream}
	err = rt.chat.Stream(r.Context(), ports.ChatRequest{
		Query:   req.Query,
		History: req.History,
	}, emitter)

	outcome := "completed"
	if err != nil {
		outcome = "failed"
		rt.log.Error("chat stream failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		_ = stream.event("error", map[string]string{"error": err.Error()})
	}
	if rt.metrics != nil {
		rt.metrics.RecordChatStream("api", outcome, time.Since(start))
		if emitter.doneSeen {
			rt.metrics.RecordCitedDatasheets("api", emitter.doneDatasheets)
		}
	}
}

// sseStream serializes writes to one event-stream response. The heartbeat
// goroutine and the chat pipeline write concurrently, so every frame goes
// through the mutex.
type sseStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEStream(w http.ResponseWriter) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming is not supported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseStream{w: w, flusher: flusher}, nil
}

func (s *sseStream) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStream) comment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// startHeartbeat keeps idle proxies from closing the connection while the
// completion is still being generated. Write failures stop the ticker; the
// request context ends it otherwise.
func (s *sseStream) startHeartbeat(ctx context.Context, interval time.Duration) func() {
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.comment("heartbeat"); err != nil {
					return
				}
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
	return func() { once.Do(func() { close(stop) }) }
}

// sseEmitter adapts the stream to the chat service's emitter contract.
type sseEmitter struct {
	stream         *sseStream
	doneSeen       bool
	doneDatasheets int
}

func (e *sseEmitter) Status(stage, detail string) error {
	return e.stream.event("status", map[string]string{
		"stage":  stage,
		"detail": detail,
	})
}

func (e *sseEmitter) Chunk(text string) error {
	return e.stream.event("chunk", map[string]string{"text": text})
}

func (e *sseEmitter) Done(fullText string, datasheets []domain.DatasheetReference) error {
	e.doneSeen = true
	e.doneDatasheets = len(datasheets)
	if datasheets == nil {
		datasheets = []domain.DatasheetReference{}
	}
	return e.stream.event("done", map[string]any{
		"text":       fullText,
		"datasheets": datasheets,
	})
}
