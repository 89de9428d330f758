// internal/registry/registry.go
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrNotFound     = errors.New("graduation not found")
	ErrDuplicateKey = errors.New("pool already graduated")
)

// Entry records one completed graduation.
type Entry struct {
	Pool         solana.PublicKey
	Mint         solana.PublicKey
	Symbol       string
	Exchange     string
	ExchangePool solana.PublicKey
	// LPKind is "fungible" or "position".
	LPKind            string
	BaseToLiquidity   uint64
	TokensToLiquidity uint64
	TotalLP           uint64
	CreatorLP         uint64
	ProtocolLP        uint64
	CommunityLP       uint64
	Positions         []string
	StakingPool       solana.PublicKey
	Governance        solana.PublicKey
	GraduationFee     uint64
	GraduatedAt       time.Time
}

// Store is an append-only log of graduations keyed by pool.
type Store interface {
	// Record appends e. Returns ErrDuplicateKey if the pool is already recorded.
	Record(ctx context.Context, e Entry) error
	// Get returns the entry for pool. Returns ErrNotFound if absent.
	Get(ctx context.Context, pool solana.PublicKey) (Entry, error)
	// List returns all entries in recording order.
	List(ctx context.Context) ([]Entry, error)
	Count(ctx context.Context) (int, error)
}
