package main

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

//go:embed frontend
var frontendFS embed.FS

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
	}
	// Cleanup stale entries every minute.
	go func() {
		for {
			time.Sleep(time.Minute)
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if time.Since(b.lastSeen) > 5*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	// Refill tokens based on elapsed time.
	elapsed := time.Since(b.lastSeen)
	refill := int(elapsed / rl.interval)
	if refill > 0 {
		b.tokens += refill * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Server is the main HTTP server.
type Server struct {
	mux      *http.ServeMux
	store    *Store
	sse      *Broadcaster
	cfg      *Config
	createRL *rateLimiter
	submitRL *rateLimiter
}

// NewServer creates a configured HTTP server.
func NewServer(cfg *Config, store *Store, sse *Broadcaster) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		store:    store,
		sse:      sse,
		cfg:      cfg,
		createRL: newRateLimiter(10, time.Minute), // 10 new games/min per IP
		submitRL: newRateLimiter(5, time.Second),  // 5 submissions/sec per IP
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Game API
	s.mux.HandleFunc("POST /api/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/games/{id}/words", s.handleSubmitWord)
	s.mux.HandleFunc("POST /api/games/{id}/reset", s.handleReset)
	s.mux.HandleFunc("GET /api/games/{id}/events", s.handleGameEvents)

	// Frontend static files
	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	fileServer := http.FileServer(http.FS(frontendDir))
	s.mux.HandleFunc("GET /game/{id}", s.handleGamePage)
	s.mux.Handle("GET /", fileServer)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
	s.mux.ServeHTTP(w, r)
}

// --- Game handlers ---

// POST /api/games — start a new game with player names and turn length.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	if !s.createRL.allow(r.RemoteAddr) {
		jsonError(w, "Too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	var req struct {
		Player1Name string `json:"player1_name"`
		Player2Name string `json:"player2_name"`
		TurnSeconds int    `json:"turn_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg := TurnConfig{
		TurnSeconds: req.TurnSeconds,
		Player1Name: sanitizeName(req.Player1Name, "Player 1"),
		Player2Name: sanitizeName(req.Player2Name, "Player 2"),
	}
	if cfg.TurnSeconds == 0 {
		cfg.TurnSeconds = s.cfg.TurnSeconds
	}
	if cfg.TurnSeconds < s.cfg.MinTurnSeconds || cfg.TurnSeconds > s.cfg.MaxTurnSeconds {
		jsonError(w, fmt.Sprintf("Turn length must be between %d and %d seconds",
			s.cfg.MinTurnSeconds, s.cfg.MaxTurnSeconds), http.StatusBadRequest)
		return
	}

	game := s.store.CreateGame(cfg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(game.Snapshot())
}

// GET /api/games — list running games, most recent first.
func (s *Server) handleListGames(w http.ResponseWriter, _ *http.Request) {
	games := s.store.ListGames()
	list := make([]Snapshot, 0, len(games))
	for _, g := range games {
		list = append(list, g.Snapshot())
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// GET /api/games/{id} — current game state.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Game not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(game.Snapshot())
}

// POST /api/games/{id}/words — play a word for the current player.
func (s *Server) handleSubmitWord(w http.ResponseWriter, r *http.Request) {
	if !s.submitRL.allow(r.RemoteAddr) {
		jsonError(w, "Too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Game not found", http.StatusNotFound)
		return
	}

	var req struct {
		Word string `json:"word"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := game.SubmitWord(req.Word); err != nil {
		if errors.Is(err, ErrLookupInProgress) {
			jsonError(w, "Previous word is still being checked", http.StatusConflict)
			return
		}
		jsonError(w, "Could not play word", http.StatusInternalServerError)
		return
	}

	// The outcome (penalty or lookup result) is part of the state; SSE
	// clients get it pushed, the submitter gets it here.
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(game.Snapshot())
}

// POST /api/games/{id}/reset — start the game over.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Game not found", http.StatusNotFound)
		return
	}

	game.Reset()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(game.Snapshot())
}

// GET /api/games/{id}/events — SSE stream.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Game not found", http.StatusNotFound)
		return
	}

	s.sse.ServeSSE(w, r, game.ID, func(c *client) {
		// Send initial game state on connect.
		evt, _ := json.Marshal(map[string]any{
			"type":  "state",
			"state": game.Snapshot(),
		})
		c.ch <- string(evt)
	})
}

// --- Frontend page handlers ---

// GET /game/{id} — serve the game page.
func (s *Server) handleGamePage(w http.ResponseWriter, _ *http.Request) {
	data, _ := frontendFS.ReadFile("frontend/game.html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// --- Helpers ---

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeName(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	if utf8.RuneCountInString(s) > 20 {
		s = string([]rune(s)[:20])
	}
	return s
}
