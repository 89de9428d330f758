package ui

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
	"github.com/rovshanmuradov/curve-launchpad/internal/launchpad"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
)

func newService(t *testing.T, admin, operator solana.PublicKey) *launchpad.Service {
	t.Helper()
	cfg := protocol.DefaultConfig()
	cfg.Treasury = solana.NewWallet().PublicKey()
	svc, err := launchpad.NewService(&launchpad.ServiceConfig{
		Protocol:  cfg,
		Admins:    []solana.PublicKey{admin},
		Operators: []solana.PublicKey{operator},
		Logger:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return svc
}

func TestServiceMarket_AdminControls(t *testing.T) {
	admin := solana.NewWallet().PrivateKey
	svc := newService(t, admin.PublicKey(), solana.NewWallet().PublicKey())

	receipt, err := svc.CreateToken(solana.NewWallet().PublicKey(), 1_000_000_000, pool.CreateParams{Name: "Alpha", Symbol: "ALPHA"})
	require.NoError(t, err)
	id := receipt.State.ID

	m := NewServiceMarket(svc, admin)
	assert.Equal(t, auth.RoleAdmin, m.role)
	assert.Equal(t, protocol.DefaultConfig().GraduationThreshold, m.GraduationThreshold())

	require.NoError(t, m.SetPaused(id, true))
	pools := m.Pools()
	require.Len(t, pools, 1)
	assert.True(t, pools[0].Paused)

	err = m.Graduate(context.Background(), id)
	assert.Error(t, err, "a paused pool far from the threshold cannot graduate")
}

func TestServiceMarket_OperatorCannotPause(t *testing.T) {
	operator := solana.NewWallet().PrivateKey
	svc := newService(t, solana.NewWallet().PublicKey(), operator.PublicKey())

	receipt, err := svc.CreateToken(solana.NewWallet().PublicKey(), 1_000_000_000, pool.CreateParams{Name: "Beta", Symbol: "BETA"})
	require.NoError(t, err)

	m := NewServiceMarket(svc, operator)
	assert.Equal(t, auth.RoleOperator, m.role)
	assert.ErrorIs(t, m.SetPaused(receipt.State.ID, true), auth.ErrUnauthorized)
}
