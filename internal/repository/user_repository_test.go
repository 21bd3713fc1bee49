package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"buzzchat/internal/entities"
	"buzzchat/internal/infrastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentRegistrationsAllKept(t *testing.T) {
	repo := NewUserRepository(infrastructure.NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user_%02d", i)
			assert.NoError(t, repo.Create(ctx, &entities.User{ID: name, Username: name, PasswordHash: "h"}))
		}(i)
	}
	wg.Wait()

	users, err := repo.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 20)
}

func TestSameUsernameRegistersOnce(t *testing.T) {
	repo := NewUserRepository(infrastructure.NewMemoryStore())
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(ctx, &entities.User{ID: fmt.Sprint(i), Username: "Ana", PasswordHash: "h"})
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrUserExists)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	u, err := repo.GetByUsername(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "h", u.PasswordHash)
}

func TestUpdateStatusTouchesOneUser(t *testing.T) {
	repo := NewUserRepository(infrastructure.NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &entities.User{ID: "1", Username: "a", IsActive: true}))
	require.NoError(t, repo.Create(ctx, &entities.User{ID: "2", Username: "b", IsActive: true}))

	require.NoError(t, repo.UpdateStatus(ctx, "2", false))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "9", false), ErrNotFound)

	a, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, a.IsActive)
	b, err := repo.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.False(t, b.IsActive)
}
