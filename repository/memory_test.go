package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirableedge/go-auth"
)

func TestMemoryUsers_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUsers()

	id, err := store.Insert(ctx, &auth.User{Email: " Alice@Example.com ", PasswordHash: "digest", IsActive: true})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	user, err := store.FindByIdentity(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, auth.RoleStudent, user.Role)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestMemoryUsers_NotFound(t *testing.T) {
	_, err := NewMemoryUsers().FindByIdentity(context.Background(), "nobody@example.com")
	assert.True(t, auth.IsNotFound(err))
}

func TestMemoryUsers_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUsers()

	_, err := store.Insert(ctx, &auth.User{Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = store.Insert(ctx, &auth.User{Email: "ALICE@example.com"})
	assert.True(t, auth.IsIdentityAlreadyExists(err))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryUsers_ConcurrentInsertSameEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUsers()

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Insert(ctx, &auth.User{Email: "race@example.com"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, auth.IsIdentityAlreadyExists(err))
	}
	assert.Equal(t, 1, succeeded)
}

func TestMemoryUsers_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUsers()

	_, err := store.Insert(ctx, &auth.User{Email: "alice@example.com", IsActive: true})
	require.NoError(t, err)

	user, err := store.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	user.IsActive = false

	again, err := store.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, again.IsActive)
}

func TestMemoryUsers_UpdateFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUsers()

	id, err := store.Insert(ctx, &auth.User{Email: "alice@example.com", IsActive: true})
	require.NoError(t, err)

	login := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.UpdateFields(ctx, id, auth.UserPatch{LastLogin: &login}))

	user, err := store.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)
	assert.True(t, login.Equal(*user.LastLogin))

	err = store.UpdateFields(ctx, uuid.New(), auth.UserPatch{LastLogin: &login})
	assert.True(t, auth.IsNotFound(err))
}

func TestMemoryUsers_SoftDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUsers()

	id, err := store.Insert(ctx, &auth.User{Email: "alice@example.com", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, store.SoftDelete(ctx, id))

	_, err = store.FindByIdentity(ctx, "alice@example.com")
	assert.True(t, auth.IsNotFound(err))

	_, err = store.Insert(ctx, &auth.User{Email: "alice@example.com"})
	assert.True(t, auth.IsIdentityAlreadyExists(err), "email stays reserved after soft delete")
}

func TestMemoryUsers_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryUsers().FindByIdentity(ctx, "alice@example.com")
	assert.ErrorIs(t, err, context.Canceled)
}
