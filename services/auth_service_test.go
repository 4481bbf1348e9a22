package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benson/survivor/models"
)

func authServiceUnderTest(expiry time.Duration) (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	admin := &models.User{Username: "host"}
	if err := admin.HashPassword("torch-snuffer"); err != nil {
		panic(err)
	}
	users.Upsert(context.Background(), admin)
	return NewAuthService(users, "test-secret", expiry), users
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a verifiable token", func(t *testing.T) {
		svc, _ := authServiceUnderTest(time.Hour)

		resp, err := svc.Login(ctx, "host", "torch-snuffer")
		require.NoError(t, err)
		assert.Equal(t, "host", resp.Username)

		claims, err := svc.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "host", claims.Username)
	})

	t.Run("equal error for wrong password and unknown user", func(t *testing.T) {
		svc, _ := authServiceUnderTest(time.Hour)

		_, badPass := svc.Login(ctx, "host", "wrong")
		_, badUser := svc.Login(ctx, "ghost", "torch-snuffer")

		assert.ErrorIs(t, badPass, ErrInvalidCredentials)
		assert.ErrorIs(t, badUser, ErrInvalidCredentials)
		assert.Equal(t, badPass.Error(), badUser.Error())
	})

	t.Run("expired tokens fail validation", func(t *testing.T) {
		svc, _ := authServiceUnderTest(-time.Minute)

		resp, err := svc.Login(ctx, "host", "torch-snuffer")
		require.NoError(t, err)

		_, err = svc.ValidateToken(resp.Token)
		assert.Error(t, err)
	})

	t.Run("tokens from another secret are rejected", func(t *testing.T) {
		svc, _ := authServiceUnderTest(time.Hour)
		other := NewAuthService(newFakeUserRepo(), "different-secret", time.Hour)

		token, err := other.GenerateToken(&models.User{Username: "host"})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("token for a deleted account stops working", func(t *testing.T) {
		svc, users := authServiceUnderTest(time.Hour)

		resp, err := svc.Login(ctx, "host", "torch-snuffer")
		require.NoError(t, err)

		users.mu.Lock()
		delete(users.users, "host")
		users.mu.Unlock()

		_, err = svc.GetUserFromToken(ctx, resp.Token)
		assert.Error(t, err)
	})
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the bootstrap account once", func(t *testing.T) {
		users := newFakeUserRepo()
		svc := NewAuthService(users, "test-secret", time.Hour)

		require.NoError(t, svc.EnsureAdmin(ctx, "host", "torch-snuffer"))

		created, err := users.FindByUsername(ctx, "host")
		require.NoError(t, err)
		require.NotNil(t, created)
		firstHash := created.PasswordHash

		// A second call must not rotate the credential.
		require.NoError(t, svc.EnsureAdmin(ctx, "host", "different-password"))
		kept, err := users.FindByUsername(ctx, "host")
		require.NoError(t, err)
		assert.Equal(t, firstHash, kept.PasswordHash)
	})

	t.Run("missing credentials are a no-op", func(t *testing.T) {
		users := newFakeUserRepo()
		svc := NewAuthService(users, "test-secret", time.Hour)

		require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
		missing, err := users.FindByUsername(ctx, "host")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
