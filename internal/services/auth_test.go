package services

import (
	"context"
	"testing"

	"hivelog/internal/tester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	s := tester.Store(t)
	auth := NewAuthService(s)
	ctx := context.Background()

	user, err := auth.Register(ctx, RegisterInput{Username: "ada", Email: "Ada@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.Password)

	_, err = auth.Register(ctx, RegisterInput{Username: "ada", Email: "other@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := auth.Login(ctx, "ADA@example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = auth.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, s.SetUserActive(ctx, user.ID, false))
	_, err = auth.Login(ctx, "ada@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRegisterValidation(t *testing.T) {
	auth := NewAuthService(tester.Store(t))

	for name, in := range map[string]RegisterInput{
		"short username": {Username: "ab", Email: "a@example.com", Password: "secret1"},
		"bad email":      {Username: "abc", Email: "not-an-email", Password: "secret1"},
		"short password": {Username: "abc", Email: "a@example.com", Password: "12345"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Register(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
