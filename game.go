package main

import (
	"sync"
	"time"
)

// Player identifies one of the two seats at the table.
type Player string

const (
	PlayerOne Player = "p1"
	PlayerTwo Player = "p2"
)

// Other returns the opposing seat.
func (p Player) Other() Player {
	if p == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// HistoryEntry is one accepted word. Entries are immutable and appended in
// submission order.
type HistoryEntry struct {
	Word        string `json:"word"`
	SubmittedBy Player `json:"submitted_by"`
	Definition  string `json:"definition,omitempty"`
}

// TurnConfig is fixed at game creation; changing it requires a new game.
type TurnConfig struct {
	TurnSeconds int    `json:"turn_seconds"`
	Player1Name string `json:"player1_name"`
	Player2Name string `json:"player2_name"`
}

// gameState is the authoritative state of one game. It is owned by the
// Session and only ever mutated under the Session mutex, by the single
// resolve path in machine.go.
type gameState struct {
	scores              map[Player]int
	currentPlayer       Player
	requiredStartLetter string
	usedWords           map[string]bool
	history             []HistoryEntry
	timeLeft            int
	status              string
	checking            bool
}

// pendingLookup tracks the at-most-one in-flight dictionary request.
type pendingLookup struct {
	word   string
	cancel func()
}

// Session is one running game: the turn/score state machine plus its turn
// timer and its lookup slot. All transitions (submissions, lookup
// settlements, timer expiries, resets) serialize behind mu.
type Session struct {
	ID        string     `json:"id"`
	Config    TurnConfig `json:"config"`
	CreatedAt time.Time  `json:"created_at"`

	dict    Dictionary
	publish func(event map[string]any)

	// tick is the countdown granularity; one second in the real game.
	tick time.Duration

	mu         sync.Mutex
	state      gameState
	seq        int // bumped on every player switch or reset; stale async results check it
	pending    *pendingLookup
	timer      *turnTimer
	lastActive time.Time
}

// NewSession creates a game in its initial state (player one to move, no
// required letter, full clock) and starts the first countdown. The publish
// callback receives every observable event; nil is allowed.
func NewSession(id string, cfg TurnConfig, dict Dictionary, publish func(event map[string]any)) *Session {
	s := &Session{
		ID:        id,
		Config:    cfg,
		CreatedAt: time.Now(),
		dict:      dict,
		publish:   publish,
		tick:      time.Second,
	}

	s.mu.Lock()
	s.resetLocked("Game on! " + cfg.Player1Name + " starts.")
	s.mu.Unlock()
	return s
}

// Snapshot is the observable state rendered by the presentation layer.
type Snapshot struct {
	ID                  string         `json:"id"`
	Player1Name         string         `json:"player1_name"`
	Player2Name         string         `json:"player2_name"`
	TurnSeconds         int            `json:"turn_seconds"`
	Scores              map[Player]int `json:"scores"`
	CurrentPlayer       Player         `json:"current_player"`
	RequiredStartLetter string         `json:"required_start_letter,omitempty"`
	TimeLeft            int            `json:"time_left"`
	Checking            bool           `json:"checking"`
	Status              string         `json:"status,omitempty"`
	History             []HistoryEntry `json:"history"`
}

// Snapshot returns a copy of the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	scores := make(map[Player]int, len(s.state.scores))
	for p, v := range s.state.scores {
		scores[p] = v
	}
	history := make([]HistoryEntry, len(s.state.history))
	copy(history, s.state.history)

	return Snapshot{
		ID:                  s.ID,
		Player1Name:         s.Config.Player1Name,
		Player2Name:         s.Config.Player2Name,
		TurnSeconds:         s.Config.TurnSeconds,
		Scores:              scores,
		CurrentPlayer:       s.state.currentPlayer,
		RequiredStartLetter: s.state.requiredStartLetter,
		TimeLeft:            s.state.timeLeft,
		Checking:            s.state.checking,
		Status:              s.state.status,
		History:             history,
	}
}

// Reset wipes the game back to its initial state: zero scores, player one
// to move, empty history and used-word set, full clock. Any in-flight
// lookup is abandoned without penalty.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked("New game! " + s.Config.Player1Name + " starts.")
}

func (s *Session) resetLocked(status string) {
	s.abandonLookupLocked()
	s.seq++
	s.state = gameState{
		scores:        map[Player]int{PlayerOne: 0, PlayerTwo: 0},
		currentPlayer: PlayerOne,
		usedWords:     make(map[string]bool),
		history:       []HistoryEntry{},
		timeLeft:      s.Config.TurnSeconds,
		status:        status,
	}
	s.lastActive = time.Now()
	s.restartTimerLocked()
	s.publishStateLocked()
}

// Stop halts the countdown and abandons any in-flight lookup. Used when a
// session is removed from the store or the server shuts down.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.abandonLookupLocked()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// LastActive reports when the game last saw a submission or reset.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// PlayerName resolves a seat to its configured display name.
func (s *Session) PlayerName(p Player) string {
	if p == PlayerOne {
		return s.Config.Player1Name
	}
	return s.Config.Player2Name
}

func (s *Session) abandonLookupLocked() {
	if s.pending != nil {
		s.pending.cancel()
		s.pending = nil
		s.state.checking = false
	}
}

func (s *Session) publishStateLocked() {
	if s.publish == nil {
		return
	}
	s.publish(map[string]any{
		"type":  "state",
		"state": s.snapshotLocked(),
	})
}
