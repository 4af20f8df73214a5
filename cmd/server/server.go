package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dstrand/pokerserver/internal/aidriver"
	"github.com/dstrand/pokerserver/internal/config"
	"github.com/dstrand/pokerserver/internal/engine"
	"github.com/dstrand/pokerserver/internal/hub"
	"github.com/dstrand/pokerserver/internal/monitor"
	"github.com/dstrand/pokerserver/internal/orchestrator"
	"github.com/dstrand/pokerserver/internal/randutil"
	"github.com/dstrand/pokerserver/internal/session"
	"github.com/dstrand/pokerserver/internal/store"
)

// Server wires every component (registry, hub, orchestrator, AI driver,
// durable store) behind an http.Handler, mirroring the teacher's Server
// struct + ensureRoutes pattern in internal/server/server.go.
type Server struct {
	cfg *config.Config

	registry     *engine.Registry
	hub          *hub.ConnectionHub
	orchestrator *orchestrator.Orchestrator
	driver       *aidriver.Driver
	store        *store.Store

	upgrader websocket.Upgrader

	mux *http.ServeMux

	zlog zerolog.Logger
	clog *chlog.Logger

	startedAt time.Time
	fallbacks *int64

	mu              sync.Mutex
	gameSeedCounter int64
}

// countingOracle wraps an Oracle to count every fallback-triggering failure,
// surfaced at /stats as timeout_count (§12).
type countingOracle struct {
	oracle    aidriver.Oracle
	fallbacks *int64
}

func (c *countingOracle) Decide(ctx context.Context, view aidriver.PublicView) (aidriver.Decision, error) {
	decision, err := c.oracle.Decide(ctx, view)
	if err != nil {
		atomic.AddInt64(c.fallbacks, 1)
	}
	return decision, err
}

// NewServer constructs a Server from a resolved Config, registering the
// default game plus any additional games named in the HCL file.
func NewServer(cfg *config.Config, zlog zerolog.Logger, clog *chlog.Logger, st *store.Store) (*Server, error) {
	reg := engine.NewRegistry()
	h := hub.New(clog)
	orch := orchestrator.New(h, quartz.NewReal(), zlog)

	var oracle aidriver.Oracle = aidriver.NopOracle{}
	if cfg.AIOracleURL != "" {
		oracle = aidriver.NewHTTPOracle(cfg.AIOracleURL)
	}
	fallbacks := new(int64)
	driver := aidriver.New(&countingOracle{oracle: oracle, fallbacks: fallbacks}, cfg.DecisionTimeout, zlog)

	s := &Server{
		cfg: cfg, registry: reg, hub: h, orchestrator: orch, driver: driver,
		store: st, zlog: zlog, clog: clog, mux: http.NewServeMux(),
		startedAt: time.Now(), fallbacks: fallbacks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	s.registerGame("default", cfg.DefaultGame)
	for id, gd := range cfg.Games {
		s.registerGame(id, gd)
	}

	s.routes()
	return s, nil
}

func (s *Server) registerGame(id string, gd config.GameDefaults) {
	s.registerGameWithAnte(id, gd, 0)
}

func (s *Server) registerGameWithAnte(id string, gd config.GameDefaults, ante int) {
	s.mu.Lock()
	s.gameSeedCounter++
	seed := s.cfg.Seed + s.gameSeedCounter
	s.mu.Unlock()
	s.registry.RegisterGame(id, gd.Type, gd.SmallBlind, gd.BigBlind, ante, gd.Structure, gd.Rake, randutil.New(seed))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/ws/", s.handleWebSocket)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/admin/games", s.handleAdminGames)
	s.mux.HandleFunc("/admin/games/", s.handleAdminGame)
}

func (s *Server) Handler() http.Handler { return s.mux }

// handleWebSocket upgrades the connection, resolves (game_id, seat) from the
// URL path and an optional player_id query parameter, and hands off to a
// new Session (§6 "channel URL path carries game_id; player_id identifies
// the subscriber").
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Path[len("/ws/"):]
	if gameID == "" {
		gameID = "default"
	}

	game, err := s.registry.GetGame(gameID)
	if err != nil {
		http.Error(w, "unknown game", http.StatusNotFound)
		return
	}

	seatID := 0
	if raw := r.URL.Query().Get("player_id"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			seatID = parsed
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.zlog.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	runner := session.NewRunner(s.hub, s.orchestrator, s.driver).WithMonitor(monitor.NewStoreMonitor(s.store, nowMillis))
	sess := session.New(hub.NewSubscriberID(), conn, gameID, seatID, game, s.hub, runner, s.clog)
	s.hub.Subscribe(sess, gameID, seatID)
	sess.Start()
}

// handleHealth reports process liveness, grounded on the teacher's
// server.WaitForHealthy helper (§12).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "uptime_seconds": time.Since(s.startedAt).Seconds()})
}

type statsResponse struct {
	Games           []string `json:"games"`
	ConnectedGames  int      `json:"connected_games"`
	TimeoutCount    int      `json:"timeout_count"`
}

// handleStats reports the supplemented /stats surface (§12): registered game
// ids, their count, and timeout count, without the teacher's full per-bot
// analytics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	games := s.registry.ListGames()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statsResponse{
		Games: games, ConnectedGames: len(games),
		TimeoutCount: int(atomic.LoadInt64(s.fallbacks)),
	})
}

type createGameRequest struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	SmallBlind int     `json:"small_blind"`
	BigBlind   int     `json:"big_blind"`
	Ante       int     `json:"ante"`
	Structure  string  `json:"structure"`
	RakePct    float64 `json:"rake_percent"`
	RakeCapBB  int      `json:"rake_cap_bb"`
}

// handleAdminGames lists (GET) or creates (POST) games, per the teacher's
// GameManager admin surface (§12).
func (s *Server) handleAdminGames(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"games": s.registry.ListGames()})
	case http.MethodPost:
		var req createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		gameType := engine.Cash
		if req.Type == "TOURNAMENT" {
			gameType = engine.Tournament
		}
		structure := engine.NoLimit
		switch req.Structure {
		case "POT_LIMIT":
			structure = engine.PotLimit
		case "FIXED_LIMIT":
			structure = engine.FixedLimit
		}
		rake := engine.RakeConfig{Percentage: req.RakePct, CapBB: req.RakeCapBB}
		s.registerGameWithAnte(req.ID, config.GameDefaults{
			Type: gameType, SmallBlind: req.SmallBlind, BigBlind: req.BigBlind,
			Structure: structure, Rake: rake,
		}, req.Ante)
		w.WriteHeader(http.StatusCreated)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAdminGame gets (GET) or removes (DELETE) one game by id.
func (s *Server) handleAdminGame(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/admin/games/"):]
	if id == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		game, err := s.registry.GetGame(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": game.GameID(), "status": string(game.Status)})
	case http.MethodDelete:
		s.registry.DeleteGame(id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Shutdown writes a final registry snapshot.
func (s *Server) Shutdown(ctx context.Context) error {
	snap := store.Snapshot{}
	for _, id := range s.registry.ListGames() {
		game, err := s.registry.GetGame(id)
		if err != nil {
			continue
		}
		game.Lock()
		gs := store.GameSnapshot{ID: game.GameID(), Type: string(game.Type), SmallBlind: game.SmallBlind, BigBlind: game.BigBlind, Ante: game.Ante, Structure: string(game.Structure)}
		for _, seat := range game.AllSeats() {
			gs.Seats = append(gs.Seats, store.SeatSnapshot{SeatID: seat.SeatID, DisplayName: seat.DisplayName, IsHuman: seat.IsHuman, Chips: seat.Chips})
		}
		game.Unlock()
		snap.Games = append(snap.Games, gs)
	}
	if err := s.store.SaveSnapshot(snap); err != nil {
		return fmt.Errorf("server: saving shutdown snapshot: %w", err)
	}
	return nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }
