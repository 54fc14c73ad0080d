package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/mask"
)

type fakeStore struct {
	saved []string
	err   error
}

func (s *fakeStore) Save(ctx context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, text)
	return nil
}

type fakePreview struct {
	offers   []webrtc.SessionDescription
	closed   []string
	sessions int
	err      error
}

func (p *fakePreview) HandleOffer(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, string, error) {
	if p.err != nil {
		return webrtc.SessionDescription{}, "", p.err
	}
	p.offers = append(p.offers, offer)
	p.sessions++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, "session-1", nil
}

func (p *fakePreview) CloseSession(id string) error {
	if id != "session-1" {
		return errors.New("preview session not found")
	}
	p.closed = append(p.closed, id)
	p.sessions--
	return nil
}

func (p *fakePreview) Sessions() int { return p.sessions }

func newTestServer(opts Options) (*Server, *mask.Masker) {
	if opts.Masker == nil {
		opts.Masker = mask.New(zerolog.Nop())
	}
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"*"}
	}
	opts.Log = zerolog.Nop()
	return NewServer(opts), opts.Masker
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(Options{})
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMask_GetPut(t *testing.T) {
	store := &fakeStore{}
	s, m := newTestServer(Options{Store: store})

	rec := do(t, s, http.MethodGet, "/api/v1/mask", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(t, s, http.MethodPut, "/api/v1/mask", "0:0,bad, 5:5;;1:1\n")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0:0,5:5;1:1", rec.Body.String())
	assert.Equal(t, "0:0,5:5;1:1", m.Configuration())
	assert.Equal(t, []string{"0:0,5:5;1:1"}, store.saved)

	rec = do(t, s, http.MethodGet, "/api/v1/mask", "")
	assert.Equal(t, "0:0,5:5;1:1", rec.Body.String())
}

func TestMask_PutTooLarge(t *testing.T) {
	s, m := newTestServer(Options{})
	m.SetConfiguration("1:1")

	rec := do(t, s, http.MethodPut, "/api/v1/mask", strings.Repeat("1:1,", MaxMaskBody/4+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "1:1", m.Configuration())
}

func TestMask_PutStoreFailure(t *testing.T) {
	s, m := newTestServer(Options{Store: &fakeStore{err: errors.New("redis down")}})

	rec := do(t, s, http.MethodPut, "/api/v1/mask", "2:2,4:4")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "2:2,4:4", m.Configuration(), "the mask still applies locally")
}

func TestMask_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(Options{})
	rec := do(t, s, http.MethodDelete, "/api/v1/mask", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStats(t *testing.T) {
	s, m := newTestServer(Options{
		Preview:       &fakePreview{sessions: 2},
		PipelineStats: func() any { return map[string]int{"dropped": 3} },
	})
	m.SetConfiguration("0:0,3:0,3:3;1:1")
	require.NoError(t, m.SetGeometry(4, 4))
	require.NoError(t, m.Process(make([]byte, 24)))

	rec := do(t, s, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["frames_masked"])
	assert.Equal(t, float64(0), body["frames_failed"])
	assert.Equal(t, float64(2), body["polygons"])
	assert.Equal(t, float64(4), body["points"])
	assert.Equal(t, "4x4", body["geometry"])
	assert.Equal(t, float64(2), body["preview_sessions"])
	assert.Equal(t, map[string]any{"dropped": float64(3)}, body["pipeline"])
}

func TestStats_NoGeometry(t *testing.T) {
	s, _ := newTestServer(Options{})

	rec := do(t, s, http.MethodGet, "/api/v1/stats", "")
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "geometry")
	assert.NotContains(t, body, "preview_sessions")
	assert.NotContains(t, body, "pipeline")
}

func TestOffer(t *testing.T) {
	preview := &fakePreview{}
	s, _ := newTestServer(Options{Preview: preview})

	rec := do(t, s, http.MethodPost, "/webrtc/offer", `{"type":"offer","sdp":"v=0 offer"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "session-1", rec.Header().Get("X-Session-ID"))

	var answer webrtc.SessionDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, webrtc.SDPTypeAnswer, answer.Type)
	require.Len(t, preview.offers, 1)
	assert.Equal(t, "v=0 offer", preview.offers[0].SDP)

	rec = do(t, s, http.MethodDelete, "/webrtc/sessions/session-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/webrtc/sessions/other", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOffer_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"not json", "v=0", nil},
		{"answer instead of offer", `{"type":"answer","sdp":"v=0"}`, nil},
		{"rejected by preview", `{"type":"offer","sdp":"v=0"}`, errors.New("invalid offer")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(Options{Preview: &fakePreview{err: tt.err}})
			rec := do(t, s, http.MethodPost, "/webrtc/offer", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, rec.Header().Get("X-Session-ID"))
		})
	}
}

func TestOffer_DisabledWithoutPreview(t *testing.T) {
	s, _ := newTestServer(Options{})
	rec := do(t, s, http.MethodPost, "/webrtc/offer", `{"type":"offer","sdp":"v=0"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(Options{AllowedOrigins: []string{"http://studio.local"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/mask", nil)
	req.Header.Set("Origin", "http://studio.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://studio.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/mask", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
