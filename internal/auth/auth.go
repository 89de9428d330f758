// internal/auth/auth.go
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Role names a capability a credential may carry.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleOperator     Role = "operator"
	RoleStakingAdmin Role = "staking_admin"
	RoleDAOAdmin     Role = "dao_admin"
	// RoleCreator is implied for the creator of a pool and is never granted through the ACL.
	RoleCreator Role = "creator"
)

// DefaultTTL bounds how long a signed credential stays valid.
const DefaultTTL = 5 * time.Minute

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadSignature = errors.New("credential signature is invalid")
	ErrExpired      = errors.New("credential expired")
)

// Credential is a per-call proof that Holder controls its key and claims Role.
type Credential struct {
	Holder    solana.PublicKey
	Role      Role
	IssuedAt  time.Time
	Signature solana.Signature
}

func credentialMessage(holder solana.PublicKey, role Role, issuedAt time.Time) []byte {
	return []byte(fmt.Sprintf("launchpad:%s:%s:%d", role, holder, issuedAt.Unix()))
}

// Sign issues a credential for role using key.
func Sign(key solana.PrivateKey, role Role, issuedAt time.Time) (Credential, error) {
	holder := key.PublicKey()
	issuedAt = issuedAt.Truncate(time.Second)
	sig, err := key.Sign(credentialMessage(holder, role, issuedAt))
	if err != nil {
		return Credential{}, fmt.Errorf("sign credential: %w", err)
	}
	return Credential{Holder: holder, Role: role, IssuedAt: issuedAt, Signature: sig}, nil
}

// Authorizer validates credentials against an access control list.
type Authorizer struct {
	mu     sync.RWMutex
	grants map[solana.PublicKey]map[Role]struct{}
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewAuthorizer creates an Authorizer with the given admins.
func NewAuthorizer(logger *zap.Logger, admins ...solana.PublicKey) *Authorizer {
	a := &Authorizer{
		grants: make(map[solana.PublicKey]map[Role]struct{}),
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger.Named("auth"),
	}
	for _, admin := range admins {
		a.grant(admin, RoleAdmin)
	}
	return a
}

// Seed grants role to holders without a credential. It is meant for the ACL
// loaded from configuration before the authorizer is shared.
func (a *Authorizer) Seed(role Role, holders ...solana.PublicKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, h := range holders {
		a.grant(h, role)
	}
}

// SetClock replaces the time source; used by tests and simulations.
func (a *Authorizer) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// SetTTL changes the credential freshness window.
func (a *Authorizer) SetTTL(ttl time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ttl = ttl
}

func (a *Authorizer) grant(holder solana.PublicKey, role Role) {
	roles, ok := a.grants[holder]
	if !ok {
		roles = make(map[Role]struct{})
		a.grants[holder] = roles
	}
	roles[role] = struct{}{}
}

// verify checks signature and freshness only.
func (a *Authorizer) verify(cred Credential) error {
	if !cred.Signature.Verify(cred.Holder, credentialMessage(cred.Holder, cred.Role, cred.IssuedAt)) {
		return ErrBadSignature
	}
	now := a.now()
	if cred.IssuedAt.After(now.Add(time.Minute)) || now.Sub(cred.IssuedAt) > a.ttl {
		return ErrExpired
	}
	return nil
}

// Require checks that cred is valid and its holder was granted one of roles.
func (a *Authorizer) Require(cred Credential, roles ...Role) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.verify(cred); err != nil {
		a.logger.Warn("Rejected credential",
			zap.String("holder", cred.Holder.String()),
			zap.String("role", string(cred.Role)),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	held := a.grants[cred.Holder]
	for _, r := range roles {
		if r != cred.Role {
			continue
		}
		if _, ok := held[r]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s lacks role %v", ErrUnauthorized, cred.Holder, roles)
}

// RequireHolder checks that cred is validly signed by holder. The ACL is not consulted.
func (a *Authorizer) RequireHolder(cred Credential, holder solana.PublicKey) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.verify(cred); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !cred.Holder.Equals(holder) {
		return fmt.Errorf("%w: credential holder %s is not %s", ErrUnauthorized, cred.Holder, holder)
	}
	return nil
}

// Grant gives role to holder. The caller must present an admin credential.
func (a *Authorizer) Grant(cred Credential, holder solana.PublicKey, role Role) error {
	if role == RoleCreator {
		return fmt.Errorf("%w: creator role cannot be granted", ErrUnauthorized)
	}
	if err := a.Require(cred, RoleAdmin); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.grant(holder, role)
	a.logger.Info("Role granted",
		zap.String("holder", holder.String()),
		zap.String("role", string(role)),
		zap.String("by", cred.Holder.String()))
	return nil
}

// Revoke removes role from holder. The caller must present an admin credential.
func (a *Authorizer) Revoke(cred Credential, holder solana.PublicKey, role Role) error {
	if err := a.Require(cred, RoleAdmin); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if roles, ok := a.grants[holder]; ok {
		delete(roles, role)
		if len(roles) == 0 {
			delete(a.grants, holder)
		}
	}
	a.logger.Info("Role revoked",
		zap.String("holder", holder.String()),
		zap.String("role", string(role)))
	return nil
}

// HasRole reports whether holder was granted role.
func (a *Authorizer) HasRole(holder solana.PublicKey, role Role) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.grants[holder][role]
	return ok
}
