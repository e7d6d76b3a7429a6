package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mindx-labs/stemchat/internal/analytics"
	"github.com/mindx-labs/stemchat/internal/guides"
	"github.com/mindx-labs/stemchat/internal/retrieval"
	"github.com/mindx-labs/stemchat/provider"
)

type stubLLM struct {
	reply string
	err   error

	lastSystem  string
	lastHistory []provider.Message
}

func (s *stubLLM) Generate(_ context.Context, system string, history []provider.Message) (string, error) {
	s.lastSystem = system
	s.lastHistory = history
	return s.reply, s.err
}

func testIndex() *retrieval.Index {
	return retrieval.New([]guides.Guide{
		{
			ID:           "loops",
			Title:        "Loops",
			DisplayTitle: "Loops and repetition",
			Chunks:       []string{"use the repeat block to run the same commands many times in scratch"},
		},
	})
}

func newChatContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestChat_RepliesWithReferences(t *testing.T) {
	llm := &stubLLM{reply: "Try `Events > When Green Flag Clicked -> Motion > Move 10 Steps`!"}
	recorder := analytics.NewMemory()
	h := &ChatHandler{
		Index:    testIndex(),
		LLM:      llm,
		Recorder: recorder,
		Logger:   log.New(io.Discard, "", 0),
	}

	c, rec := newChatContext(t, `{"message":"use the repeat block to run the same commands many times in scratch"}`)
	if err := h.chat(c); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a session id")
	}
	if resp.Reply != llm.reply {
		t.Errorf("reply = %q", resp.Reply)
	}
	if len(resp.References) == 0 {
		t.Error("expected at least one reference")
	}
	if len(resp.Commands) != 1 || resp.Commands[0][0] != "Events > When Green Flag Clicked" {
		t.Errorf("commands = %v", resp.Commands)
	}
	if !strings.Contains(llm.lastSystem, "Loops and repetition") {
		t.Error("system prompt missing reference excerpt")
	}

	snap, _ := recorder.Snapshot(context.Background())
	if snap.Summary.UserMessages != 1 || snap.Summary.AssistantMessages != 1 {
		t.Errorf("exchange not recorded: %+v", snap.Summary)
	}
}

func TestChat_EmptyMessageRejected(t *testing.T) {
	h := &ChatHandler{
		Index:    testIndex(),
		LLM:      &stubLLM{reply: "hi"},
		Recorder: analytics.NewMemory(),
		Logger:   log.New(io.Discard, "", 0),
	}
	c, _ := newChatContext(t, `{"message":"   "}`)
	err := h.chat(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestChat_HintUsedWhenMessageEmpty(t *testing.T) {
	llm := &stubLLM{reply: "Let's look at your project."}
	h := &ChatHandler{
		Index:    testIndex(),
		LLM:      llm,
		Recorder: analytics.NewMemory(),
		Logger:   log.New(io.Discard, "", 0),
	}
	c, rec := newChatContext(t, `{"hint":"use the repeat block to run the same commands many times in scratch"}`)
	if err := h.chat(c); err != nil {
		t.Fatalf("chat: %v", err)
	}
	var resp ChatResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.References) == 0 {
		t.Error("hint should drive retrieval when message is empty")
	}
}

func TestChat_ProviderFailure(t *testing.T) {
	h := &ChatHandler{
		Index:    testIndex(),
		LLM:      &stubLLM{err: io.ErrUnexpectedEOF},
		Recorder: analytics.NewMemory(),
		Logger:   log.New(io.Discard, "", 0),
	}
	c, _ := newChatContext(t, `{"message":"hello"}`)
	err := h.chat(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %v", err)
	}
}

type failingRecorder struct{}

func (failingRecorder) RecordExchange(context.Context, analytics.Exchange) (string, error) {
	return "", io.ErrClosedPipe
}
func (failingRecorder) Snapshot(context.Context) (*analytics.Snapshot, error) {
	return nil, io.ErrClosedPipe
}

func TestChat_AnalyticsFailureDoesNotBlock(t *testing.T) {
	h := &ChatHandler{
		Index:    testIndex(),
		LLM:      &stubLLM{reply: "hello"},
		Recorder: failingRecorder{},
		Logger:   log.New(io.Discard, "", 0),
	}
	c, rec := newChatContext(t, `{"sessionId":"s1","message":"hello"}`)
	if err := h.chat(c); err != nil {
		t.Fatalf("chat should succeed despite analytics failure: %v", err)
	}
	var resp ChatResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.SessionID != "s1" {
		t.Errorf("session id = %q, want the request's", resp.SessionID)
	}
}
