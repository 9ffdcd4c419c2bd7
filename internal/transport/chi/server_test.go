package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/coachchat/coachchat/internal/domain"
	chatuc "github.com/coachchat/coachchat/internal/usecase/chat"
	healthuc "github.com/coachchat/coachchat/internal/usecase/health"
	"github.com/coachchat/coachchat/internal/usecase/session"
)

// --- Mocks ---

type stubEmbedder struct{ err error }

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type stubSearcher struct {
	matches []domain.Match
	err     error
}

func (s *stubSearcher) Query(_ context.Context, _ []float32, _ int) ([]domain.Match, error) {
	return s.matches, s.err
}

type stubGenerator struct {
	answer string
	err    error
}

func (s *stubGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return s.answer, s.err
}

type stubPinger struct{ err error }

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

func newTestServer(t *testing.T, emb *stubEmbedder, srch *stubSearcher, gen *stubGenerator) (*session.Store, http.Handler) {
	t.Helper()

	chatSvc := chatuc.New(emb, srch, gen, chatuc.Options{
		RetryAttempts:  1,
		RetryBaseDelay: time.Millisecond,
		Persona:        chatuc.Persona{CreatorName: "Jeff Cavaliere", BrandName: "AthleanX", Domain: "fitness"},
	})
	sessions := session.New(time.Hour)
	healthSvc := healthuc.New(&stubPinger{}, nil, nil)

	srv := NewServer(chatSvc, sessions, healthSvc, zap.NewNop())

	r := chirouter.NewRouter()
	srv.Routes(r)
	return sessions, r
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestHandleChat_NewSession(t *testing.T) {
	matches := []domain.Match{
		{Score: 0.9, Text: "tuck the elbows", VideoID: "v1", Title: "Bench", ThumbnailURL: "http://img/1"},
	}
	sessions, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{matches: matches}, &stubGenerator{answer: "We keep the elbows tucked."})

	rr := postChat(t, handler, `{"query":"how to bench?"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d, body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a freshly allocated session id")
	}
	if resp.Answer != "We keep the elbows tucked." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Recommendations) != 1 || resp.Recommendations[0].VideoID != "v1" {
		t.Errorf("unexpected recommendations: %+v", resp.Recommendations)
	}

	turns, err := sessions.History(resp.SessionID)
	if err != nil {
		t.Fatalf("session should exist: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected user+assistant turns, got %d", len(turns))
	}
	if turns[0].Role != domain.RoleUser || turns[1].Role != domain.RoleAssistant {
		t.Errorf("unexpected turn roles: %+v", turns)
	}
}

func TestHandleChat_ExistingSession(t *testing.T) {
	sessions, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{}, &stubGenerator{answer: "ok"})

	id := sessions.Create()
	body, _ := json.Marshal(chatRequest{SessionID: id, Query: "first"})
	rr := postChat(t, handler, string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}

	rr = postChat(t, handler, string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}

	turns, _ := sessions.History(id)
	if len(turns) != 4 {
		t.Errorf("expected 4 turns after two exchanges, got %d", len(turns))
	}
}

func TestHandleChat_UnknownSession_404(t *testing.T) {
	_, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{}, &stubGenerator{answer: "ok"})

	rr := postChat(t, handler, `{"session_id":"not-a-session","query":"hi"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleChat_EmptyQuery_400(t *testing.T) {
	_, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{}, &stubGenerator{answer: "ok"})

	rr := postChat(t, handler, `{"query":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	var errResp errorResponse
	_ = json.NewDecoder(rr.Body).Decode(&errResp)
	if errResp.Code != codeValidation {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeValidation)
	}
}

func TestHandleChat_InvalidBody_400(t *testing.T) {
	_, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{}, &stubGenerator{answer: "ok"})

	rr := postChat(t, handler, `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandleChat_GenerationFailure_NoProviderLeak(t *testing.T) {
	genErr := domain.ErrGenerationFailed
	_, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{}, &stubGenerator{err: genErr})

	rr := postChat(t, handler, `{"query":"hi"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadGateway)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "We couldn't process your question") {
		t.Errorf("expected generic user message, got %s", body)
	}
	if strings.Contains(body, "generation failed") {
		t.Errorf("provider error text must not leak: %s", body)
	}
}

func TestHandleChat_IndexUnavailable_503(t *testing.T) {
	_, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{err: domain.ErrIndexUnavailable}, &stubGenerator{answer: "ok"})

	rr := postChat(t, handler, `{"query":"hi"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleChat_EmptyIndex_EmptyRecommendations(t *testing.T) {
	_, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{matches: nil}, &stubGenerator{answer: "We don't cover that yet."})

	rr := postChat(t, handler, `{"query":"hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}

	// recommendations must serialize as [], not null
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"recommendations":[]`)) {
		t.Errorf("expected empty array, got %s", rr.Body.String())
	}
}

func TestHandleGetSession(t *testing.T) {
	sessions, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{}, &stubGenerator{answer: "ok"})

	id := sessions.Create()
	_ = sessions.Append(id,
		domain.ChatTurn{Role: domain.RoleUser, Content: "hi"},
		domain.ChatTurn{Role: domain.RoleAssistant, Content: "We say hi back."},
	)

	req := httptest.NewRequest("GET", "/api/v1/sessions/"+id, http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}

	var resp sessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != id || len(resp.Turns) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleGetSession_Unknown_404(t *testing.T) {
	_, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{}, &stubGenerator{answer: "ok"})

	req := httptest.NewRequest("GET", "/api/v1/sessions/nope", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleHealth(t *testing.T) {
	_, handler := newTestServer(t,
		&stubEmbedder{}, &stubSearcher{}, &stubGenerator{answer: "ok"})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}
