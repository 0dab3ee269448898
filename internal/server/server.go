// Package server exposes the procedural dungeon generator over HTTP and a
// websocket harness for browser clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lawnchairsociety/cloudquest/internal/config"
	"github.com/lawnchairsociety/cloudquest/internal/database"
	"github.com/lawnchairsociety/cloudquest/internal/dungeon"
	"github.com/lawnchairsociety/cloudquest/internal/logger"
	"github.com/lawnchairsociety/cloudquest/internal/throttle"
)

const (
	maxRequestBytes = 64 << 10
	defaultRecent   = 20
	maxRecent       = 100
	sweepInterval   = time.Minute
)

// HistoryStore records generated rooms. *database.Database implements it.
type HistoryStore interface {
	RecordGeneration(ctx context.Context, req dungeon.Request, room dungeon.Room, clientIP string) (*database.Generation, error)
	RecentGenerations(ctx context.Context, limit int) ([]database.Generation, error)
	Ping() error
}

// Server serves the dungeon generation API.
type Server struct {
	cfg         *config.Config
	gen         *dungeon.Generator
	store       HistoryStore
	connLimiter *ConnLimiter
	limiter     *throttle.Limiter
	throttleCfg throttle.Config
	proxies     proxyTrust
	seed        int64
}

// NewServer creates a server generating rooms from seed.
func NewServer(cfg *config.Config, seed int64) *Server {
	rl := cfg.RateLimit
	throttleCfg := throttle.FromSettings(rl.Enabled, rl.MaxRequests, rl.WindowSeconds)

	prefixes, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		logger.Warning("Ignoring trusted proxies", "error", err)
		prefixes = nil
	}

	return &Server{
		cfg:         cfg,
		gen:         dungeon.NewGenerator(seed),
		connLimiter: NewConnLimiter(cfg.Connections),
		limiter:     throttle.NewLimiter(throttleCfg),
		throttleCfg: throttleCfg,
		proxies:     proxyTrust{prefixes: prefixes},
		seed:        seed,
	}
}

// SetStore enables generation history. A nil store disables it.
func (s *Server) SetStore(store HistoryStore) {
	s.store = store
}

// Handler returns the routed, CORS-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /generate-dungeon", s.handleGenerate)
	mux.HandleFunc("GET /dungeons/recent", s.handleRecent)
	mux.HandleFunc("GET /ws", s.handleWebSocketUpgrade)
	return s.cors(mux)
}

// Run listens on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Dungeon API listening", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for running := true; running; {
		select {
		case err := <-errCh:
			return fmt.Errorf("listen: %w", err)
		case <-sweep.C:
			live := s.limiter.Sweep()
			logger.Debug("Rate limiter swept", "live_callers", live)
		case <-ctx.Done():
			running = false
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	logger.Info("Shutting down dungeon API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// generate validates req, builds a room and records it when a store is set.
func (s *Server) generate(ctx context.Context, req dungeon.Request, ip string) (dungeon.Room, error) {
	if err := req.Validate(); err != nil {
		return dungeon.Room{}, err
	}

	room := s.gen.Generate(req)
	logger.Info("Dungeon generated",
		"level", req.PlayerLevel,
		"skill", req.SkillScore,
		"type", req.DungeonType,
		"layout", room.Layout,
		"enemies", len(room.Enemies),
		"client_ip", ip)

	if s.store != nil {
		if _, err := s.store.RecordGeneration(ctx, req, room, ip); err != nil {
			logger.Error("Failed to record generation", "error", err)
		}
	}
	return room, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Cloud Quest Dungeon Generator API",
		"status":    "running",
		"generator": "procedural",
		"seed":      s.seed,
		"history":   s.store != nil,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disabled"
	status := http.StatusOK
	if s.store != nil {
		dbStatus = "ok"
		if err := s.store.Ping(); err != nil {
			logger.Warning("History store ping failed", "error", err)
			dbStatus = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	health := "healthy"
	if status != http.StatusOK {
		health = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":    health,
		"generator": "procedural",
		"database":  dbStatus,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ip := s.proxies.clientIP(r)
	if res := s.limiter.Allow(ip); !res.Allowed {
		logger.Warning("Generation throttled", "client_ip", ip, "wait_seconds", res.WaitSeconds)
		w.Header().Set("Retry-After", strconv.Itoa(res.WaitSeconds))
		writeError(w, http.StatusTooManyRequests, "too many generation requests, slow down")
		return
	}

	var req dungeon.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	room, err := s.generate(r.Context(), req, ip)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "generation history is disabled")
		return
	}

	limit := defaultRecent
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecent)
	}

	gens, err := s.store.RecentGenerations(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list generations", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	if gens == nil {
		gens = []database.Generation{}
	}
	writeJSON(w, http.StatusOK, gens)
}

// cors applies the configured cross-origin policy and answers preflights.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.cfg.CORS.IsOriginAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write response", "error", err)
	}
}

// writeError uses the {"detail": ...} shape clients already expect.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": strings.TrimSpace(detail)})
}
