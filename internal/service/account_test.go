package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/apperr"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, NewFleetService(store, zap.NewNop()).SeedDefaults(ctx))
	svc := NewAccountService(store, zap.NewNop())

	c, err := svc.RegisterCustomer(ctx, "  Jane Roe ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "C002", c.ID)
	assert.Equal(t, "Jane Roe", c.Name)

	_, err = svc.RegisterCustomer(ctx, "JOHN DOE", "x")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	_, err = svc.RegisterCustomer(ctx, "", "x")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = svc.RegisterCustomer(ctx, "Someone", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	got, err := svc.LoginCustomer(ctx, "c002", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", got.Name)

	_, err = svc.LoginCustomer(ctx, "C002", "wrong")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, "Invalid credentials", apperr.MessageOf(err))

	agent, err := svc.LoginAgent(ctx, "A001", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "Admin", agent.Name)

	// 客户账号不能登录员工入口
	_, err = svc.LoginAgent(ctx, "C001", "customer123")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
