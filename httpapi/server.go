// Package httpapi exposes a Stream over HTTP: the HLS playlist and its
// segments, a raw continuous-mp4 endpoint for simple players, and a
// WebSocket status feed, wired together with gorilla/mux the way the
// rest of this codebase builds its routers.
package httpapi

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"fragmenter/mp4frag"
	"fragmenter/status"
)

// Server serves one Stream's playlist, segments, raw feed, and status
// socket.
type Server struct {
	stream    *mp4frag.Stream
	hub       *status.Hub
	hlsBase   string
	tokenHash []byte // bcrypt hash of the admin API token, nil if auth disabled
	router    *mux.Router
}

// New builds a Server for stream. If apiToken is non-empty, every
// route except /healthz requires it as a Bearer token.
func New(stream *mp4frag.Stream, hub *status.Hub, hlsBase, apiToken string) *Server {
	s := &Server{stream: stream, hub: hub, hlsBase: hlsBase}
	if apiToken != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(apiToken), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("httpapi: failed to hash API token, auth disabled: %v", err)
		} else {
			s.tokenHash = hash
		}
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(fmt.Sprintf("/init-%s.mp4", s.hlsBase), s.requireToken(s.handleInit)).Methods("GET")
	r.HandleFunc(fmt.Sprintf("/%s.m3u8", s.hlsBase), s.requireToken(s.handlePlaylist)).Methods("GET")
	r.HandleFunc(fmt.Sprintf("/{name:%s[0-9]+\\.m4s}", s.hlsBase), s.requireToken(s.handleSegmentByName)).Methods("GET")
	r.HandleFunc("/s.mp4", s.requireToken(s.handleRawFeed)).Methods("GET")
	if s.hub != nil {
		r.HandleFunc("/status", s.requireToken(s.hub.Upgrade))
	}
	// healthz stays open even when an API token is configured: liveness
	// probes (load balancers, orchestrators) generally can't carry a
	// bearer token, and it exposes nothing but a timestamp.
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/admin/stats", s.requireToken(s.handleStats)).Methods("GET")
	return r
}

// Handler returns the fully wired http.Handler, with CORS applied the
// way main.go applies it to the rest of this codebase's routes.
func (s *Server) Handler() http.Handler {
	allowedOrigins := handlers.AllowedOrigins([]string{"*"})
	allowedMethods := handlers.AllowedMethods([]string{"GET", "OPTIONS"})
	allowedHeaders := handlers.AllowedHeaders([]string{"Content-Type", "Authorization"})
	return handlers.CORS(allowedOrigins, allowedMethods, allowedHeaders)(s.router)
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	init := s.stream.Initialization()
	if init == nil {
		http.Error(w, "initialization not available yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Write(init)
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	m3u8, ok := s.stream.M3U8()
	if !ok {
		http.Error(w, "playlist not available yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Write([]byte(m3u8))
}

func (s *Server) handleSegmentByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".m4s")
	seg, ok := s.stream.GetHLSNamedSegment(name)
	if !ok {
		http.Error(w, "segment not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Write(seg)
}

// handleRawFeed streams the initialization fragment followed by every
// subsequently published segment, matching the reference single-file
// player's continuous /s.mp4 endpoint: a client that opens it and
// keeps reading sees an unbounded fragmented-MP4 stream.
func (s *Server) handleRawFeed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "close")

	flusher, _ := w.(http.Flusher)

	if init := s.stream.Initialization(); init != nil {
		if _, err := w.Write(init); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	id, ch := s.stream.Subscribe()
	defer s.stream.Unsubscribe(id)

	for {
		select {
		case <-r.Context().Done():
			return
		case segment, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(segment); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "ok %d\n", time.Now().Unix())
}

// handleStats reports internal counters useful for an admin dashboard;
// gated behind requireToken since it exposes buffer occupancy that
// isn't meant for public clients.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "sequence=%d buffered=%d duration_s=%.3f\n",
		s.stream.Sequence(), len(s.stream.BufferList()), s.stream.DurationS())
}

// requireToken wraps next with bearer-token auth. If auth is disabled
// (no token configured), next runs unconditionally.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	if s.tokenHash == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
