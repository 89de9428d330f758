package ui

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
	"github.com/rovshanmuradov/curve-launchpad/internal/launchpad"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
)

// Market is what the dashboard reads and controls.
type Market interface {
	Pools() []pool.State
	GraduationThreshold() uint64
	SetPaused(id solana.PublicKey, paused bool) error
	Graduate(ctx context.Context, id solana.PublicKey) error
}

// ServiceMarket drives a launchpad service, signing a fresh credential
// with key for every control action.
type ServiceMarket struct {
	svc  *launchpad.Service
	key  solana.PrivateKey
	role auth.Role
	now  func() time.Time
}

// NewServiceMarket uses key with the admin role when it holds one and the
// operator role otherwise.
func NewServiceMarket(svc *launchpad.Service, key solana.PrivateKey) *ServiceMarket {
	role := auth.RoleOperator
	if svc.Auth().HasRole(key.PublicKey(), auth.RoleAdmin) {
		role = auth.RoleAdmin
	}
	return &ServiceMarket{svc: svc, key: key, role: role, now: time.Now}
}

func (m *ServiceMarket) Pools() []pool.State { return m.svc.Pools() }

func (m *ServiceMarket) GraduationThreshold() uint64 {
	return m.svc.Config().Snapshot().GraduationThreshold
}

func (m *ServiceMarket) SetPaused(id solana.PublicKey, paused bool) error {
	cred, err := auth.Sign(m.key, m.role, m.now())
	if err != nil {
		return err
	}
	return m.svc.SetPaused(cred, id, paused)
}

func (m *ServiceMarket) Graduate(ctx context.Context, id solana.PublicKey) error {
	cred, err := auth.Sign(m.key, m.role, m.now())
	if err != nil {
		return err
	}
	_, err = m.svc.Graduate(ctx, cred, id, "")
	return err
}
