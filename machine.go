package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLookupInProgress rejects a submission made while the previous word is
// still being checked against the dictionary.
var ErrLookupInProgress = errors.New("a word is already being checked")

// resolution is the outcome of one turn. Every resolved submission and
// every timeout becomes exactly one resolution, and every resolution
// switches the active player and restarts the countdown.
type resolution struct {
	delta  int
	status string
	entry  *HistoryEntry // non-nil only for an accepted word
}

// SubmitWord plays a word for the current player. Structural failures
// resolve the turn immediately with a penalty; structurally valid words go
// to the dictionary asynchronously and resolve the turn when the lookup
// settles. The only error returned is ErrLookupInProgress — game-rule
// failures are outcomes, not errors.
func (s *Session) SubmitWord(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return ErrLookupInProgress
	}

	player := s.state.currentPlayer
	if serr := validateStructure(raw, s.state.requiredStartLetter, s.state.usedWords); serr != nil {
		s.resolveLocked(resolution{
			delta:  -1,
			status: s.PlayerName(player) + " loses a point: " + serr.Error(),
		})
		return nil
	}

	word := strings.ToLower(strings.TrimSpace(raw))
	ctx, cancel := context.WithCancel(context.Background())
	s.pending = &pendingLookup{word: word, cancel: cancel}
	s.state.checking = true
	s.state.status = fmt.Sprintf("Checking %q...", word)
	s.publishStateLocked()

	go s.runLookup(ctx, cancel, s.seq, player, word)
	return nil
}

// runLookup settles an in-flight dictionary request. A settlement only
// counts if the turn it belongs to is still the current one: a timeout or
// reset in the meantime bumps seq and clears the pending slot, and the
// late result is discarded without touching game state.
func (s *Session) runLookup(ctx context.Context, cancel func(), seq int, player Player, word string) {
	definition, err := s.dict.Lookup(ctx, word)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq || s.pending == nil || s.pending.word != word {
		return
	}
	s.pending = nil
	s.state.checking = false

	if err != nil {
		if errors.Is(err, ErrLookupCancelled) {
			// Abandoned, not failed: no penalty, no status, no switch.
			return
		}
		s.resolveLocked(resolution{
			delta:  -1,
			status: s.PlayerName(player) + " loses a point: " + lookupStatus(word, err),
		})
		return
	}

	last := word[len(word)-1:]
	s.resolveLocked(resolution{
		delta: 1,
		entry: &HistoryEntry{Word: word, SubmittedBy: player, Definition: definition},
		status: fmt.Sprintf("%q accepted! %s, your word must start with %q.",
			word, s.PlayerName(player.Other()), last),
	})
}

// lookupStatus turns a lookup verdict into the player-facing reason.
func lookupStatus(word string, err error) string {
	switch {
	case errors.Is(err, ErrWordNotFound):
		return fmt.Sprintf("%q is not in the dictionary", word)
	case errors.Is(err, ErrNoDefinition):
		return fmt.Sprintf("the dictionary has no definition for %q", word)
	case errors.Is(err, ErrLookupTimeout):
		return "the dictionary took too long to answer"
	default:
		return "the dictionary could not be reached"
	}
}

// resolveLocked is the single authoritative state mutation: score delta,
// optional history entry, status message, then a player switch with a
// fresh countdown.
func (s *Session) resolveLocked(res resolution) {
	player := s.state.currentPlayer
	s.state.scores[player] += res.delta

	if res.entry != nil {
		s.state.history = append(s.state.history, *res.entry)
		s.state.usedWords[res.entry.Word] = true
		s.state.requiredStartLetter = res.entry.Word[len(res.entry.Word)-1:]
	}

	s.state.status = res.status
	s.lastActive = time.Now()
	s.switchTurnLocked()
	s.publishStateLocked()
}

// switchTurnLocked hands the turn to the other player and restarts the
// countdown. Bumping seq invalidates every async callback of the old turn.
func (s *Session) switchTurnLocked() {
	s.seq++
	s.state.currentPlayer = s.state.currentPlayer.Other()
	s.restartTimerLocked()
}

func (s *Session) restartTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.state.timeLeft = s.Config.TurnSeconds

	seq := s.seq
	s.timer = newTurnTimer(s.Config.TurnSeconds, s.tick,
		func(left int) { s.handleTick(seq, left) },
		func() { s.handleExpiry(seq) },
	)
}

func (s *Session) handleTick(seq, left int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return
	}
	s.state.timeLeft = left
	if s.publish != nil {
		s.publish(map[string]any{"type": "tick", "time_left": left})
	}
}

// handleExpiry applies the timeout transition. The timer wins over a
// pending lookup: the in-flight request is cancelled and its settlement
// discarded, so the timeout penalty is the only outcome of the turn.
func (s *Session) handleExpiry(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return
	}

	player := s.state.currentPlayer
	s.abandonLookupLocked()
	s.resolveLocked(resolution{
		delta:  -1,
		status: s.PlayerName(player) + " ran out of time and loses a point!",
	})
}
