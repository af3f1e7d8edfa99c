//go:build !integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-file-vault/internal/domain/model"
)

func TestStateRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewStateRepo(NewMemory(time.Hour, 0))

	st, err := repo.GetState(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.IsZero())

	require.NoError(t, repo.SetState(ctx, 1, &model.SessionState{BatchOpen: true, Batch: []string{"a"}}))
	st, err = repo.GetState(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.BatchOpen)
	assert.Equal(t, []string{"a"}, st.Batch)

	require.NoError(t, repo.SetState(ctx, 1, &model.SessionState{}))
	st, err = repo.GetState(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.IsZero(), "saving an empty state clears it")
}

func TestStateRepo_SurvivesCacheChurn(t *testing.T) {
	ctx := context.Background()
	shared := NewMemory(time.Hour, 100)
	repo := NewStateRepo(NewSessionStore())

	require.NoError(t, repo.SetState(ctx, 7, &model.SessionState{BatchOpen: true, Batch: []string{"f1", "f2"}}))
	for i := 0; i < 500; i++ {
		require.NoError(t, shared.Set(ctx, fmt.Sprintf("ban_status_%d", i), false, 0))
	}
	assert.Equal(t, 100, shared.Stats().Size)

	st, err := repo.GetState(ctx, 7)
	require.NoError(t, err)
	assert.True(t, st.BatchOpen)
	assert.Equal(t, []string{"f1", "f2"}, st.Batch)
}
