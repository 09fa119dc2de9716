package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const DefaultMaxTurns = 20

type Options struct {
	MaxTurns int
	Now      func() time.Time
	Logger   *slog.Logger
}

// Store keeps per-user histories capped at MaxTurns, evicting the oldest
// turns first. Appends are read-modify-write without locking, so two
// concurrent appends for the same user may lose one of the turns.
type Store struct {
	backend  Backend
	maxTurns int
	now      func() time.Time
	logger   *slog.Logger
}

func NewStore(backend Backend, opts Options) *Store {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:  backend,
		maxTurns: opts.MaxTurns,
		now:      opts.Now,
		logger:   logger.With("component", "history"),
	}
}

func (s *Store) MaxTurns() int { return s.maxTurns }

// Get returns the user's history. It never fails: a missing document or a
// read error yields an empty history.
func (s *Store) Get(ctx context.Context, userID string) History {
	h, found, err := s.backend.Load(ctx, userID)
	if err != nil {
		s.logger.Warn("history read failed, using empty history", "err", err)
		return History{}
	}
	if !found || h == nil {
		return History{}
	}
	return h
}

// Append adds one turn stamped with the current time and trims the history
// to MaxTurns.
func (s *Store) Append(ctx context.Context, userID string, role Role, content string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	h, _, err := s.backend.Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("append turn: load: %w", err)
	}
	h = append(h, Turn{Role: role, Content: content, Timestamp: s.now().UnixMilli()})
	h = capTurns(h, s.maxTurns)
	if err := s.backend.Save(ctx, userID, h); err != nil {
		return fmt.Errorf("append turn: save: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	users, err := s.backend.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []string{}
	}
	return users, nil
}

// Delete removes the user's history. Deleting a missing history succeeds.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	if err := s.backend.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.backend.Close() }

func capTurns(h History, max int) History {
	if len(h) <= max {
		return h
	}
	out := make(History, max)
	copy(out, h[len(h)-max:])
	return out
}
