// Package api serves the gateway's HTTP control surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/mask"
)

// MaxMaskBody is the largest accepted mask configuration.
const MaxMaskBody = 1 << 20

// Store persists accepted mask configurations.
type Store interface {
	Save(ctx context.Context, text string) error
}

// Preview answers WebRTC viewer offers.
type Preview interface {
	HandleOffer(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, string, error)
	CloseSession(id string) error
	Sessions() int
}

// Options configures a Server. Store, Preview and PipelineStats are optional.
type Options struct {
	Masker         *mask.Masker
	Store          Store
	Preview        Preview
	PipelineStats  func() any
	AllowedOrigins []string
	Log            zerolog.Logger
}

// Server routes control requests.
type Server struct {
	router        *mux.Router
	masker        *mask.Masker
	store         Store
	preview       Preview
	pipelineStats func() any
	log           zerolog.Logger
}

// NewServer builds the router.
func NewServer(opts Options) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		masker:        opts.Masker,
		store:         opts.Store,
		preview:       opts.Preview,
		pipelineStats: opts.PipelineStats,
		log:           opts.Log.With().Str("component", "api").Logger(),
	}

	s.router.Use(requestLogger(s.log))
	s.router.Use(cors(opts.AllowedOrigins))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/mask", s.handleGetMask).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/mask", s.handlePutMask).Methods(http.MethodPut, http.MethodOptions)
	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet, http.MethodOptions)

	if s.preview != nil {
		s.router.HandleFunc("/webrtc/offer", s.handleOffer).Methods(http.MethodPost, http.MethodOptions)
		s.router.HandleFunc("/webrtc/sessions/{id}", s.handleCloseSession).Methods(http.MethodDelete, http.MethodOptions)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleGetMask(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, s.masker.Configuration())
}

func (s *Server) handlePutMask(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxMaskBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "mask configuration too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	s.masker.SetConfiguration(string(body))
	normalized := s.masker.Configuration()

	if s.store != nil {
		if err := s.store.Save(r.Context(), normalized); err != nil {
			s.log.Error().Err(err).Msg("mask applied but not persisted")
			http.Error(w, "mask applied but not persisted", http.StatusBadGateway)
			return
		}
	}

	writeText(w, http.StatusOK, normalized)
}

type statsResponse struct {
	FramesMasked    uint64 `json:"frames_masked"`
	FramesFailed    uint64 `json:"frames_failed"`
	Polygons        int    `json:"polygons"`
	Points          int    `json:"points"`
	Geometry        string `json:"geometry,omitempty"`
	PreviewSessions *int   `json:"preview_sessions,omitempty"`
	Pipeline        any    `json:"pipeline,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.masker.Stats()
	resp := statsResponse{
		FramesMasked: st.FramesMasked,
		FramesFailed: st.FramesFailed,
		Polygons:     st.Polygons,
		Points:       st.Points,
	}
	if st.HasGeometry {
		resp.Geometry = st.Geometry.String()
	}
	if s.preview != nil {
		n := s.preview.Sessions()
		resp.PreviewSessions = &n
	}
	if s.pipelineStats != nil {
		resp.Pipeline = s.pipelineStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	var offer webrtc.SessionDescription
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxMaskBody)).Decode(&offer); err != nil {
		http.Error(w, "invalid offer", http.StatusBadRequest)
		return
	}
	if offer.Type != webrtc.SDPTypeOffer {
		http.Error(w, "expected an SDP offer", http.StatusBadRequest)
		return
	}

	answer, id, err := s.preview.HandleOffer(r.Context(), offer)
	if err != nil {
		s.log.Warn().Err(err).Msg("offer rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("X-Session-ID", id)
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.preview.CloseSession(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, text)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
