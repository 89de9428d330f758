// internal/ledger/ledger.go
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// BaseAsset identifies the quote asset pools are priced in.
var BaseAsset = solana.WrappedSol

// BurnAddress receives amounts that must leave circulation permanently.
var BurnAddress = solana.MustPublicKeyFromBase58("1nc1nerator11111111111111111111111111111111")

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

type balanceKey struct {
	account solana.PublicKey
	asset   solana.PublicKey
}

// Holding is one non-zero balance.
type Holding struct {
	Account solana.PublicKey
	Asset   solana.PublicKey
	Amount  uint64
}

// Ledger tracks balances per (account, asset). Safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	balances map[balanceKey]uint64
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Ledger {
	return &Ledger{
		balances: make(map[balanceKey]uint64),
		logger:   logger.Named("ledger"),
	}
}

// Credit adds amount to account.
func (l *Ledger) Credit(account, asset solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := balanceKey{account, asset}
	if l.balances[k] > math.MaxUint64-amount {
		return fmt.Errorf("%w: %s/%s", ErrBalanceOverflow, account, asset)
	}
	l.balances[k] += amount
	return nil
}

// Debit removes amount from account, failing without effect if the balance is short.
func (l *Ledger) Debit(account, asset solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debitLocked(balanceKey{account, asset}, amount)
}

func (l *Ledger) debitLocked(k balanceKey, amount uint64) error {
	have := l.balances[k]
	if have < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientBalance, k.account, have, k.asset, amount)
	}
	if have == amount {
		delete(l.balances, k)
	} else {
		l.balances[k] = have - amount
	}
	return nil
}

// Transfer moves amount between accounts atomically.
func (l *Ledger) Transfer(from, to, asset solana.PublicKey, amount uint64) error {
	if amount == 0 || from.Equals(to) {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	toKey := balanceKey{to, asset}
	if l.balances[toKey] > math.MaxUint64-amount {
		return fmt.Errorf("%w: %s/%s", ErrBalanceOverflow, to, asset)
	}
	if err := l.debitLocked(balanceKey{from, asset}, amount); err != nil {
		return err
	}
	l.balances[toKey] += amount
	return nil
}

// Entry is one leg of an atomic ledger update.
type Entry struct {
	Account solana.PublicKey
	Asset   solana.PublicKey
	Amount  uint64
	Debit   bool
}

// CreditEntry adds amount to account.
func CreditEntry(account, asset solana.PublicKey, amount uint64) Entry {
	return Entry{Account: account, Asset: asset, Amount: amount}
}

// DebitEntry removes amount from account.
func DebitEntry(account, asset solana.PublicKey, amount uint64) Entry {
	return Entry{Account: account, Asset: asset, Amount: amount, Debit: true}
}

// Reverse returns entries that undo e, in reverse order.
func Reverse(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		e.Debit = !e.Debit
		out = append(out, e)
	}
	return out
}

// Apply commits all entries or none of them. Entries are evaluated in order,
// so a debit may spend a credit made earlier in the same call.
func (l *Ledger) Apply(entries ...Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := make(map[balanceKey]uint64)
	for _, e := range entries {
		if e.Amount == 0 {
			continue
		}
		k := balanceKey{e.Account, e.Asset}
		cur, ok := pending[k]
		if !ok {
			cur = l.balances[k]
		}
		if e.Debit {
			if cur < e.Amount {
				return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientBalance, e.Account, cur, e.Asset, e.Amount)
			}
			pending[k] = cur - e.Amount
			continue
		}
		if cur > math.MaxUint64-e.Amount {
			return fmt.Errorf("%w: %s/%s", ErrBalanceOverflow, e.Account, e.Asset)
		}
		pending[k] = cur + e.Amount
	}
	for k, v := range pending {
		if v == 0 {
			delete(l.balances, k)
		} else {
			l.balances[k] = v
		}
	}
	return nil
}

// Balance returns the balance of account in asset.
func (l *Ledger) Balance(account, asset solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{account, asset}]
}

// Holdings lists every non-zero balance of account ordered by asset.
func (l *Ledger) Holdings(account solana.PublicKey) []Holding {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Holding
	for k, v := range l.balances {
		if k.account.Equals(account) {
			out = append(out, Holding{Account: k.account, Asset: k.asset, Amount: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset.String() < out[j].Asset.String() })
	return out
}

// Supply returns the total amount of asset held across all accounts.
func (l *Ledger) Supply(asset solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total uint64
	for k, v := range l.balances {
		if k.asset.Equals(asset) {
			total += v
		}
	}
	return total
}
