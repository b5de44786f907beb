// Package devserver is an in-memory stand-in for the face recognition API.
// It accepts any decodable image as a face and reports a configurable
// similarity, which is enough to drive the kiosk end to end without the
// real matching service.
package devserver

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// DefaultThreshold mirrors the server-side verification threshold.
const DefaultThreshold = 0.7

// Options configures the stub.
type Options struct {
	Similarity float64           // reported for every comparison
	Threshold  float64           // similarity needed for verified
	Latency    time.Duration     // artificial delay on comparison endpoints
	Admins     map[string]string // userId -> password
}

// Server serves the stub API under /api.
type Server struct {
	logger *slog.Logger
	router *chi.Mux

	mu         sync.Mutex
	opts       Options
	embeddings []embedding
	checkIns   []checkIn
	tokens     map[string]string
}

type embedding struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
}

type checkIn struct {
	ID         string
	Similarity float64
	At         time.Time
}

// New builds the stub and its routes.
func New(logger *slog.Logger, opts Options) *Server {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Admins == nil {
		opts.Admins = map[string]string{"admin": "admin"}
	}
	s := &Server{logger: logger, opts: opts, router: chi.NewRouter(), tokens: make(map[string]string)}

	s.router.Use(chiMiddleware.RequestID)
	s.router.Use(chiMiddleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/face/detect/public", s.detectPublic)
		r.Post("/face/verify-preview", s.verifyPreview)
		r.Post("/face/register-base64", s.registerFace)
		r.Get("/face/embeddings", s.listEmbeddings)
		r.Post("/access/check-in", s.checkIn)
		r.Post("/admin/face-preview", s.adminPreview)
		r.Post("/admin/login", s.adminLogin)
	})
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// SetSimilarity changes the similarity reported from now on.
func (s *Server) SetSimilarity(v float64) {
	s.mu.Lock()
	s.opts.Similarity = v
	s.mu.Unlock()
}

// SetLatency changes the artificial delay of comparison endpoints.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.opts.Latency = d
	s.mu.Unlock()
}

// Registered reports how many reference faces are stored.
func (s *Server) Registered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.embeddings)
}

// CheckIns reports how many access events were recorded.
func (s *Server) CheckIns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.checkIns)
}

func (s *Server) comparison() (similarity, threshold float64, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Similarity, s.opts.Threshold, s.opts.Latency
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if s.logger != nil {
			s.logger.Debug("stub request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chiMiddleware.GetReqID(r.Context()),
			)
		}
	})
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(payload string) (image.Image, bool) {
	if i := strings.Index(payload, ","); strings.HasPrefix(payload, "data:") && i >= 0 {
		payload = payload[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	return img, true
}

func wait(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

func newID() string { return uuid.NewString() }
