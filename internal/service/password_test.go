package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword_SecurityQuestion(t *testing.T) {
	h := newHarness(t)

	q, err := h.password.SecurityQuestion(context.Background(), "neo")
	require.NoError(t, err)
	assert.Equal(t, "Favourite colour?", q)

	_, err = h.password.SecurityQuestion(context.Background(), "nobody")
	assert.Error(t, err)

	_, err = h.password.SecurityQuestion(context.Background(), " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPassword_Reset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.password.Reset(ctx, "neo", "blue", "newpass1"))
	assert.Error(t, h.password.Reset(ctx, "neo", "red", "newpass1"))

	before := h.backend.totalCalls()
	assert.ErrorIs(t, h.password.Reset(ctx, "neo", "blue", "123"), ErrValidation)
	assert.ErrorIs(t, h.password.Reset(ctx, "neo", "", "newpass1"), ErrValidation)
	assert.Equal(t, before, h.backend.totalCalls())
}
