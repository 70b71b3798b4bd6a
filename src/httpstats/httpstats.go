// Package httpstats exposes read-only JSON introspection of a running
// buffer pool over HTTP: current occupancy, running hit/miss totals, and a
// liveness probe. It does not accept any request that could mutate pool
// state.
package httpstats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/clockhand-db/buffercore/src/bufferpool"
	"github.com/clockhand-db/buffercore/src/pkg/logging"
)

// Handler serves /stats and /healthz for a single bufferpool.Manager.
type Handler struct {
	Pool   *bufferpool.Manager
	Logger logging.Logger
}

// RegisterRoutes wires the handler's endpoints onto router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/stats", h.Stats).Methods("GET")
	router.HandleFunc("/healthz", h.Healthz).Methods("GET")
}

type statsResponse struct {
	InstanceID   string `json:"instance_id"`
	PoolSize     uint64 `json:"pool_size"`
	Resident     int    `json:"resident"`
	FreeListLen  int    `json:"free_list_len"`
	ReplacerSize int    `json:"replacer_size"`
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.Pool.Stats()

	resp := statsResponse{
		InstanceID:   h.Pool.ID().String(),
		PoolSize:     s.PoolSize,
		Resident:     s.Resident,
		FreeListLen:  s.FreeListLen,
		ReplacerSize: s.ReplacerSize,
		Hits:         s.Hits,
		Misses:       s.Misses,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Errorf("encoding stats response: %v", err)
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Server wraps an http.Server bound to a mux.Router of Handler's routes,
// following the same Run/Close lifecycle as the rest of the module's
// long-lived components.
type Server struct {
	Addr string

	logger logging.Logger
	http   *http.Server
}

// NewServer builds a Server for addr, registering h's routes.
func NewServer(addr string, h *Handler, logger logging.Logger) *Server {
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	return &Server{
		Addr:   addr,
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run blocks serving HTTP until Close is called or an unrecoverable error
// occurs.
func (s *Server) Run() error {
	s.logger.Infof("stats server listening on %s", s.Addr)

	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpstats: listen: %w", err)
	}
	return nil
}

// Close gracefully shuts the server down.
func (s *Server) Close(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpstats: shutdown: %w", err)
	}
	s.logger.Infof("stats server closed")
	return nil
}
