package leveling

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sonroyaalmerol/kugybot/internal/repository"
)

const DefaultXPPerMessage = 10

// Store is the persistence the leveling service needs.
type Store interface {
	EnsureUser(ctx context.Context, userID string) (*repository.User, error)
	GetUser(ctx context.Context, userID string) (*repository.User, error)
	SaveUser(ctx context.Context, u *repository.User) error
}

type Service struct {
	store        Store
	xpPerMessage int

	// serializes read-modify-write per process
	mu sync.Mutex
}

// Result describes the outcome of awarding message XP.
type Result struct {
	User      repository.User
	LeveledUp bool
}

func NewService(store Store, xpPerMessage int) *Service {
	if xpPerMessage <= 0 {
		xpPerMessage = DefaultXPPerMessage
	}
	return &Service{store: store, xpPerMessage: xpPerMessage}
}

// Threshold is the xp needed to leave the given level.
func Threshold(level int) int {
	return level * 100
}

// Apply adds xp to u and levels up once xp reaches the threshold.
func Apply(u *repository.User, xp int) bool {
	u.XP += xp
	if u.XP >= Threshold(u.Level) {
		u.Level++
		u.XP = 0
		return true
	}
	return false
}

// AwardMessage grants the per-message xp to userID, creating the record on
// first interaction.
func (s *Service) AwardMessage(ctx context.Context, userID string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		u, err = s.store.EnsureUser(ctx, userID)
	}
	if err != nil {
		return Result{}, fmt.Errorf("load user %s: %w", userID, err)
	}

	up := Apply(u, s.xpPerMessage)
	if err := s.store.SaveUser(ctx, u); err != nil {
		return Result{}, fmt.Errorf("save user %s: %w", userID, err)
	}
	return Result{User: *u, LeveledUp: up}, nil
}

// Register creates a record for a new member without touching an existing one.
func (s *Service) Register(ctx context.Context, userID string) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.EnsureUser(ctx, userID)
}
