package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/application-advisor/internal/advisor"
	"github.com/jonathan/application-advisor/internal/capability"
	"github.com/jonathan/application-advisor/internal/llm"
	"github.com/jonathan/application-advisor/internal/session"
)

type stubAdvisor struct {
	result    *advisor.TurnResult
	err       error
	chunks    []string
	lastID    string
	lastInput advisor.TurnInput
	deleted   []string
	state     *session.Session
}

func (s *stubAdvisor) SubmitTurn(_ context.Context, sessionID string, input advisor.TurnInput, onDelta llm.StreamFunc) (*advisor.TurnResult, error) {
	s.lastID = sessionID
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	if onDelta != nil {
		for _, chunk := range s.chunks {
			onDelta(chunk)
		}
	}
	return s.result, nil
}

func (s *stubAdvisor) SessionState(_ context.Context, sessionID string) (*session.Session, error) {
	if s.state == nil {
		return nil, session.ErrNotFound
	}
	return s.state, nil
}

func (s *stubAdvisor) DeleteSession(_ context.Context, sessionID string) error {
	s.deleted = append(s.deleted, sessionID)
	if s.state == nil {
		return session.ErrNotFound
	}
	return nil
}

func newTestServer(stub *stubAdvisor) *Server {
	return New(Config{Port: 0, Advisor: stub})
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleTurn(t *testing.T) {
	stub := &stubAdvisor{result: &advisor.TurnResult{
		Reply:        "What is your Kubernetes experience?",
		Phase:        session.PhaseQnA,
		QuickReplies: []string{"done"},
	}}
	srv := newTestServer(stub)

	rec := postJSON(t, srv.Handler(), "/sessions/abc/turns", `{"text": "here is my answer"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp turnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "What is your Kubernetes experience?", resp.Reply)
	assert.Equal(t, "qna", resp.Phase)
	assert.Equal(t, []string{"done"}, resp.QuickReplies)
	assert.Equal(t, "abc", stub.lastID)
	assert.Equal(t, "here is my answer", stub.lastInput.Text)
}

func TestHandleTurnWithDocument(t *testing.T) {
	stub := &stubAdvisor{result: &advisor.TurnResult{Reply: "got it", Phase: session.PhaseCollecting}}
	srv := newTestServer(stub)

	encoded := base64.StdEncoding.EncodeToString([]byte("cv contents"))
	body := `{"document": {"content_base64": "` + encoded + `", "mime_type": "text/plain"}}`
	rec := postJSON(t, srv.Handler(), "/sessions/abc/turns", body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, stub.lastInput.Documents, 1)
	assert.Equal(t, []byte("cv contents"), stub.lastInput.Documents[0].Bytes)
	assert.Equal(t, "text/plain", stub.lastInput.Documents[0].MimeType)
}

func TestHandleTurnRejectsBadBodies(t *testing.T) {
	srv := newTestServer(&stubAdvisor{result: &advisor.TurnResult{}})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{broken`},
		{"empty body", `{}`},
		{"bad base64", `{"document": {"content_base64": "!!not-base64!!"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, srv.Handler(), "/sessions/abc/turns", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantInBody string
	}{
		{"input error", &advisor.InputError{Message: "send a message"}, http.StatusBadRequest, "send a message"},
		{"state error", &advisor.StateError{Phase: session.PhaseCollecting, Command: "done", Message: "nothing to finish"}, http.StatusBadRequest, "nothing to finish"},
		{"capability error", &capability.Error{Port: "analyze", Message: "provider down"}, http.StatusBadGateway, "try again"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubAdvisor{err: tt.err})
			rec := postJSON(t, srv.Handler(), "/sessions/abc/turns", `{"text": "hi"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantInBody)
		})
	}
}

func TestHandleTurnStream(t *testing.T) {
	stub := &stubAdvisor{
		result: &advisor.TurnResult{Reply: "full reply", Phase: session.PhaseQnA},
		chunks: []string{"full ", "reply"},
	}
	srv := newTestServer(stub)

	rec := postJSON(t, srv.Handler(), "/sessions/abc/turns/stream", `{"text": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: delta")
	assert.Contains(t, body, `{"text":"full "}`)
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, `"reply":"full reply"`)
}

func TestGetSession(t *testing.T) {
	sess := session.New("abc")
	sess.CVText = "cv"
	srv := newTestServer(&stubAdvisor{state: sess})

	req := httptest.NewRequest(http.MethodGet, "/sessions/abc", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phase":"collecting"`)
}

func TestGetSessionNotFound(t *testing.T) {
	srv := newTestServer(&stubAdvisor{})

	req := httptest.NewRequest(http.MethodGet, "/sessions/missing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	stub := &stubAdvisor{state: session.New("abc")}
	srv := newTestServer(stub)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/abc", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"abc"}, stub.deleted)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubAdvisor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&stubAdvisor{})

	req := httptest.NewRequest(http.MethodOptions, "/sessions/abc/turns", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
