package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harborline/catalog-assistant/internal/core/domain"
	"github.com/harborline/catalog-assistant/internal/core/ports"
)

func TestChatStreamEmitsEventFramesInOrder(t *testing.T) {
	chat := &chatServiceFake{fn: func(_ context.Context, req ports.ChatRequest, emitter ports.ChatEmitter) error {
		if req.Query != "what is the jb02hr?" {
			t.Fatalf("unexpected query: %q", req.Query)
		}
		if err := emitter.Status("searching", "querying product catalog"); err != nil {
			return err
		}
		if err := emitter.Chunk("The **JB02HR** "); err != nil {
			return err
		}
		if err := emitter.Chunk("is a fire hose cabinet."); err != nil {
			return err
		}
		return emitter.Done("The **JB02HR** is a fire hose cabinet.", []domain.DatasheetReference{{
			ProductCode: "JB02HR",
			Filename:    "JB02HR.pdf",
			DisplayName: "JB02HR — Fire Hose Cabinet",
			URL:         "/datasheets/JB02HR.pdf",
		}})
	}}
	handler := newTestRouter(testConfig(), chat, &searcherFake{}, &statsProviderFake{}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/chat/stream",
		strings.NewReader(`{"query":"what is the jb02hr?"}`)))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}

	body := res.Body.String()
	frames := []string{
		"event: status\ndata: {\"detail\":\"querying product catalog\",\"stage\":\"searching\"}",
		"event: chunk\ndata: {\"text\":\"The **JB02HR** \"}",
		"event: chunk\ndata: {\"text\":\"is a fire hose cabinet.\"}",
		"event: done\ndata: ",
	}
	pos := 0
	for _, frame := range frames {
		idx := strings.Index(body[pos:], frame)
		if idx < 0 {
			t.Fatalf("frame %q not found after offset %d in body:\n%s", frame, pos, body)
		}
		pos += idx + len(frame)
	}
	if !strings.Contains(body, `"JB02HR.pdf"`) {
		t.Fatalf("done event missing datasheet payload:\n%s", body)
	}
}

func TestChatStreamAcceptsAndIgnoresFilesField(t *testing.T) {
	chat := &chatServiceFake{fn: func(_ context.Context, req ports.ChatRequest, emitter ports.ChatEmitter) error {
		if req.Query != "any lifejackets?" {
			t.Fatalf("unexpected query: %q", req.Query)
		}
		return emitter.Done("Yes.", nil)
	}}
	handler := newTestRouter(testConfig(), chat, &searcherFake{}, &statsProviderFake{}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/chat/stream",
		strings.NewReader(`{"query":"any lifejackets?","files":[{"name":"enquiry.pdf"}]}`)))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 with files field present, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "event: done") {
		t.Fatalf("expected done event, got:\n%s", res.Body.String())
	}
}

func TestChatStreamRejectsMissingQueryBeforeHeaders(t *testing.T) {
	handler := newTestHandler(testConfig())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(`{"query":"   "}`)))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json error response, got %q", ct)
	}
}

func TestChatStreamEmitsErrorEventOnServiceFailure(t *testing.T) {
	chat := &chatServiceFake{fn: func(_ context.Context, _ ports.ChatRequest, emitter ports.ChatEmitter) error {
		if err := emitter.Status("thinking", "generating answer"); err != nil {
			return err
		}
		return errors.New("completion endpoint unavailable")
	}}
	handler := newTestRouter(testConfig(), chat, &searcherFake{}, &statsProviderFake{}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(`{"query":"anything"}`)))

	if res.Code != http.StatusOK {
		t.Fatalf("SSE error must arrive in-band after 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "event: error") || !strings.Contains(body, "completion endpoint unavailable") {
		t.Fatalf("expected error event in body:\n%s", body)
	}
}

func TestSSEStreamFramesComments(t *testing.T) {
	res := httptest.NewRecorder()
	stream, err := newSSEStream(res)
	if err != nil {
		t.Fatalf("newSSEStream() error = %v", err)
	}
	if err := stream.comment("heartbeat"); err != nil {
		t.Fatalf("comment() error = %v", err)
	}
	if got := res.Body.String(); got != ": heartbeat\n\n" {
		t.Fatalf("unexpected comment frame: %q", got)
	}
}
