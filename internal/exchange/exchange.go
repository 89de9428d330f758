// internal/exchange/exchange.go
package exchange

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrUnknownExchange  = errors.New("exchange is not supported")
	ErrEmptyLiquidity   = errors.New("liquidity requires both base and tokens")
	ErrUnknownLiquidity = errors.New("liquidity not found")
)

// Kind distinguishes exchanges that mint a divisible LP balance from those
// that issue indivisible positions.
type Kind int

const (
	KindFungible Kind = iota
	KindPosition
)

func (k Kind) String() string {
	if k == KindPosition {
		return "position"
	}
	return "fungible"
}

// Liquidity is the result of providing liquidity: either an LP balance or a
// single position handle.
type Liquidity struct {
	Kind     Kind
	Exchange string
	// PoolID is the exchange-side pool address.
	PoolID   solana.PublicKey
	LPMint   solana.PublicKey
	LPAmount uint64
	Position string
	Base     uint64
	Tokens   uint64
}

// Adapter opens and unwinds liquidity on one exchange.
type Adapter interface {
	ID() string
	Kind() Kind
	// ProgramID is the exchange program the adapter targets.
	ProgramID() solana.PublicKey
	CreateLiquidity(ctx context.Context, mint solana.PublicKey, base, tokens uint64) (Liquidity, error)
	RemoveLiquidity(ctx context.Context, liq Liquidity) error
}

// PositionTransferer is implemented by adapters that track who holds each
// position.
type PositionTransferer interface {
	// TransferPosition hands the position to owner and returns the previous holder.
	TransferPosition(liq Liquidity, owner solana.PublicKey) (solana.PublicKey, error)
	PositionOwner(position string) (solana.PublicKey, error)
}

// poolAddress derives the exchange pool for a base/token pair.
func poolAddress(program, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte("pool"),
		solana.WrappedSol.Bytes(),
		mint.Bytes(),
	}, program)
	return addr, err
}
