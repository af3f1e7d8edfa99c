package cache

import (
	"context"
	"fmt"
	"time"

	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/repository"
)

var _ repository.StateRepository = (*StateRepo)(nil)

// SessionTTL bounds how long an abandoned batch or rename stays open.
const SessionTTL = 12 * time.Hour

// StateRepo keeps admin conversation state in any Store.
type StateRepo struct {
	store Store
	ttl   time.Duration
}

func NewStateRepo(store Store) *StateRepo {
	return &StateRepo{store: store, ttl: SessionTTL}
}

func stateKey(tgID int64) string {
	return fmt.Sprintf("conv_state:%d", tgID)
}

func (s *StateRepo) SetState(ctx context.Context, tgID int64, state *model.SessionState) error {
	if state.IsZero() {
		return s.ClearState(ctx, tgID)
	}
	return s.store.Set(ctx, stateKey(tgID), state, s.ttl)
}

func (s *StateRepo) GetState(ctx context.Context, tgID int64) (*model.SessionState, error) {
	var state model.SessionState
	if _, err := s.store.Get(ctx, stateKey(tgID), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *StateRepo) ClearState(ctx context.Context, tgID int64) error {
	return s.store.Delete(ctx, stateKey(tgID))
}
