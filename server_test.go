package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		Port:            8080,
		TurnSeconds:     30,
		MinTurnSeconds:  5,
		MaxTurnSeconds:  120,
		LookupProvider:  ProviderDictAPI,
		LookupBaseURL:   defaultDictionaryURL,
		LookupTimeoutMs: 8000,
	}
}

func newTestServer(t *testing.T, dict Dictionary) *Server {
	t.Helper()
	sse := NewBroadcaster()
	store := NewStore(dict, sse)
	t.Cleanup(func() {
		for _, g := range store.ListGames() {
			g.Stop()
		}
	})
	return NewServer(testConfig(), store, sse)
}

func createGame(t *testing.T, srv *Server, body string) Snapshot {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/games", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create game: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var snap Snapshot
	json.NewDecoder(w.Body).Decode(&snap)
	if snap.ID == "" {
		t.Fatal("game ID is empty")
	}
	return snap
}

func getGame(t *testing.T, srv *Server, id string) Snapshot {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/games/"+id, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get game: expected 200, got %d", w.Code)
	}
	var snap Snapshot
	json.NewDecoder(w.Body).Decode(&snap)
	return snap
}

func TestGamePageRoute(t *testing.T) {
	srv := newTestServer(t, okDict())

	req := httptest.NewRequest("GET", "/game/abc123", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("expected text/html, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "Shiritori") {
		t.Fatal("game page does not contain expected title")
	}
}

func TestFullGameFlow(t *testing.T) {
	srv := newTestServer(t, okDict())

	game := createGame(t, srv, `{"player1_name":"Alice","player2_name":"Bob","turn_seconds":60}`)
	if game.Player1Name != "Alice" || game.Player2Name != "Bob" {
		t.Fatalf("unexpected player names: %q, %q", game.Player1Name, game.Player2Name)
	}
	if game.TurnSeconds != 60 || game.TimeLeft != 60 {
		t.Fatalf("expected 60 second turns, got %d/%d", game.TurnSeconds, game.TimeLeft)
	}

	// A structurally bad word resolves immediately with a penalty.
	body := `{"word":"cat"}`
	req := httptest.NewRequest("POST", "/api/games/"+game.ID+"/words", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var snap Snapshot
	json.NewDecoder(w.Body).Decode(&snap)
	if snap.Scores[PlayerOne] != -1 {
		t.Fatalf("expected p1 score -1, got %d", snap.Scores[PlayerOne])
	}
	if snap.CurrentPlayer != PlayerTwo {
		t.Fatalf("expected turn to pass to p2, got %s", snap.CurrentPlayer)
	}

	// A real word is checked asynchronously and then accepted.
	body = `{"word":"test"}`
	req = httptest.NewRequest("POST", "/api/games/"+game.ID+"/words", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap = getGame(t, srv, game.ID)
		if len(snap.History) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("word was never accepted, state: %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if snap.History[0].Word != "test" || snap.History[0].SubmittedBy != PlayerTwo {
		t.Fatalf("unexpected history entry: %+v", snap.History[0])
	}
	if snap.Scores[PlayerTwo] != 1 {
		t.Fatalf("expected p2 score 1, got %d", snap.Scores[PlayerTwo])
	}
	if snap.RequiredStartLetter != "t" {
		t.Fatalf("expected required letter 't', got %q", snap.RequiredStartLetter)
	}

	// Reset brings everything back.
	req = httptest.NewRequest("POST", "/api/games/"+game.ID+"/reset", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&snap)
	if snap.Scores[PlayerOne] != 0 || snap.Scores[PlayerTwo] != 0 || len(snap.History) != 0 {
		t.Fatalf("reset did not clear state: %+v", snap)
	}
}

func TestCreateGameDefaultsAndBounds(t *testing.T) {
	srv := newTestServer(t, okDict())

	// Missing names and duration fall back to defaults.
	game := createGame(t, srv, `{}`)
	if game.Player1Name != "Player 1" || game.Player2Name != "Player 2" {
		t.Fatalf("expected default names, got %q, %q", game.Player1Name, game.Player2Name)
	}
	if game.TurnSeconds != 30 {
		t.Fatalf("expected default 30 second turns, got %d", game.TurnSeconds)
	}

	// Out-of-range durations are rejected at configuration time.
	for _, body := range []string{`{"turn_seconds":3}`, `{"turn_seconds":500}`} {
		req := httptest.NewRequest("POST", "/api/games", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, w.Code)
		}
	}
}

func TestUnknownGame(t *testing.T) {
	srv := newTestServer(t, okDict())

	for _, r := range []struct{ method, path string }{
		{"GET", "/api/games/nope"},
		{"POST", "/api/games/nope/words"},
		{"POST", "/api/games/nope/reset"},
		{"GET", "/api/games/nope/events"},
	} {
		req := httptest.NewRequest(r.method, r.path, strings.NewReader(`{"word":"test"}`))
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", r.method, r.path, w.Code)
		}
	}
}

func TestSubmitWhileChecking(t *testing.T) {
	srv := newTestServer(t, blockingDict())
	game := createGame(t, srv, `{}`)

	req := httptest.NewRequest("POST", "/api/games/"+game.ID+"/words", strings.NewReader(`{"word":"test"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first submit: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/games/"+game.ID+"/words", strings.NewReader(`{"word":"toast"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("second submit: expected 409, got %d", w.Code)
	}
}

func TestListGamesRoute(t *testing.T) {
	srv := newTestServer(t, okDict())
	createGame(t, srv, `{}`)
	createGame(t, srv, `{}`)

	req := httptest.NewRequest("GET", "/api/games", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []Snapshot
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 2 {
		t.Fatalf("expected 2 games, got %d", len(list))
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, okDict())

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}

	for key, expected := range headers {
		if got := w.Header().Get(key); got != expected {
			t.Errorf("header %s: expected %q, got %q", key, expected, got)
		}
	}

	csp := w.Header().Get("Content-Security-Policy")
	if csp == "" {
		t.Error("Content-Security-Policy header missing")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3, time.Second)

	// First 3 should pass.
	for i := range 3 {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	// 4th should be blocked.
	if rl.allow("1.2.3.4") {
		t.Fatal("4th request should be rate limited")
	}

	// Different IP should still be allowed.
	if !rl.allow("5.6.7.8") {
		t.Fatal("different IP should be allowed")
	}
}
