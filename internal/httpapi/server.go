// Package httpapi wires the HTTP surface: the documentation pages, the
// BPM-to-GIF endpoint, the per-IP request gate, and the Prometheus
// metrics endpoint.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ocx/smugdancer/internal/animation"
	"github.com/ocx/smugdancer/internal/cache"
	"github.com/ocx/smugdancer/internal/gate"
	"github.com/ocx/smugdancer/internal/ghosterr"
	"github.com/ocx/smugdancer/internal/metrics"
)

// Server holds everything the HTTP handlers need.
type Server struct {
	cache        *cache.Service
	gate         *gate.Gate
	anim         animation.Info
	reverseProxy bool
	root         string
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// New builds a Server. Call Router to get the http.Handler to serve.
func New(cacheSvc *cache.Service, g *gate.Gate, anim animation.Info, root string, reverseProxy bool, logger *slog.Logger, m *metrics.Metrics) *Server {
	return &Server{
		cache:        cacheSvc,
		gate:         g,
		anim:         anim,
		reverseProxy: reverseProxy,
		root:         root,
		logger:       logger,
		metrics:      m,
	}
}

// Router builds the mux router for this server.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/man", s.handleMan).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	render := r.NewRoute().Subrouter()
	render.Use(s.rateLimitMiddleware)
	render.HandleFunc("/{bpm}", s.handleRender).Methods(http.MethodGet)

	return r
}

// rateLimitMiddleware admits at most one in-flight render per client IP.
// It only applies to the render route's subrouter; the documentation and
// metrics routes are not wrapped by it.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := gate.ClientIP(r, s.reverseProxy)
		token, admitted := s.gate.Admit(ip)
		if !admitted {
			s.metrics.RateLimitRejections.Inc()
			writeErrorJSON(w, http.StatusTooManyRequests, "rate limited: one render at a time per client")
			return
		}
		defer token.Release()
		next.ServeHTTP(w, r)
	})
}

// errorMessage is the JSON shape written for any failed request.
type errorMessage struct {
	Error string `json:"error"`
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorMessage{Error: message})
}

// WriteError maps err's Kind to its HTTP status and writes the JSON body.
func WriteError(w http.ResponseWriter, err *ghosterr.Error) {
	writeErrorJSON(w, err.StatusCode(), err.UserMessage())
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	bpmText := strings.TrimSuffix(mux.Vars(r)["bpm"], ".gif")

	unquantized, err := strconv.ParseFloat(bpmText, 64)
	if err != nil || math.IsNaN(unquantized) || math.IsInf(unquantized, 0) || unquantized <= 0 {
		writeErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid bpm %q", bpmText))
		return
	}

	quantizedBPM, _ := s.anim.Quantize(unquantized)
	speed := s.anim.Speed(quantizedBPM)
	s.logger.Debug("serving request", "unquantized_bpm", unquantized, "quantized_bpm", quantizedBPM, "speed", speed)

	gif, rerr := s.cache.Request(r.Context(), speed)
	if rerr != nil {
		WriteError(w, rerr)
		return
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Write(gif)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{Root: s.root, MinimumBPM: s.anim.MinimumBPM()}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderIndex(w, data); err != nil {
		s.logger.Error("cannot render index page", "error", err)
	}
}

func (s *Server) handleMan(w http.ResponseWriter, r *http.Request) {
	data := indexData{Root: s.root, MinimumBPM: s.anim.MinimumBPM()}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderMan(w, data); err != nil {
		s.logger.Error("cannot render manual page", "error", err)
	}
}
