// internal/distribution/split.go
package distribution

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
)

var ErrBpsExceeded = errors.New("distribution: shares exceed 10000 bps")

// Split divides total into len(bps)+1 shares. The first shares are floored
// bps fractions of total; the last share receives the remainder, so the
// result always sums to total.
func Split(total uint64, bps ...uint64) ([]uint64, error) {
	var sumBps uint64
	for _, b := range bps {
		if b > curve.BpsDenominator-sumBps {
			return nil, fmt.Errorf("%w: %d + %d", ErrBpsExceeded, sumBps, b)
		}
		sumBps += b
	}
	shares := make([]uint64, len(bps)+1)
	rest := total
	for i, b := range bps {
		shares[i] = curve.Bps(total, b)
		rest -= shares[i]
	}
	shares[len(bps)] = rest
	return shares, nil
}

// Shares is the three-way LP division applied at graduation.
type Shares struct {
	Creator   uint64
	Protocol  uint64
	Community uint64
}

// Total returns the sum of all shares.
func (s Shares) Total() uint64 {
	return s.Creator + s.Protocol + s.Community
}

// SplitLP divides total LP between creator, protocol and community.
func SplitLP(total, creatorBps, protocolBps uint64) (Shares, error) {
	parts, err := Split(total, creatorBps, protocolBps)
	if err != nil {
		return Shares{}, err
	}
	return Shares{Creator: parts[0], Protocol: parts[1], Community: parts[2]}, nil
}

// Deposit is a pair of base and token amounts used to open one liquidity position.
type Deposit struct {
	Base   uint64
	Tokens uint64
}

// IsZero reports whether neither side carries funds.
func (d Deposit) IsZero() bool {
	return d.Base == 0 && d.Tokens == 0
}

// Deposits is the per-recipient division of graduation liquidity for
// exchanges whose positions cannot be divided after creation.
type Deposits struct {
	Creator   Deposit
	Protocol  Deposit
	Community Deposit
}

// SplitDeposits applies the LP bps to both sides of the liquidity so that each
// recipient can receive its own whole position.
func SplitDeposits(base, tokens, creatorBps, protocolBps uint64) (Deposits, error) {
	b, err := SplitLP(base, creatorBps, protocolBps)
	if err != nil {
		return Deposits{}, err
	}
	t, err := SplitLP(tokens, creatorBps, protocolBps)
	if err != nil {
		return Deposits{}, err
	}
	return Deposits{
		Creator:   Deposit{Base: b.Creator, Tokens: t.Creator},
		Protocol:  Deposit{Base: b.Protocol, Tokens: t.Protocol},
		Community: Deposit{Base: b.Community, Tokens: t.Community},
	}, nil
}
