// ==================================
// File: internal/task/wallet.go
// ==================================
package task

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-launchpad/internal/auth"
)

// Wallet is a named scenario participant.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet builds a wallet from a base58-encoded private key.
func NewWallet(name, privateKeyBase58 string) (*Wallet, error) {
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Wallet{Name: name, PrivateKey: privateKey, PublicKey: privateKey.PublicKey()}, nil
}

// DeriveWallet returns the same key for the same name and seed, so replays
// of a scenario touch the same accounts.
func DeriveWallet(name, seed string) *Wallet {
	sum := sha256.Sum256([]byte(seed + "/" + name))
	privateKey := solana.PrivateKey(ed25519.NewKeyFromSeed(sum[:]))
	return &Wallet{Name: name, PrivateKey: privateKey, PublicKey: privateKey.PublicKey()}
}

// Credential signs a credential for role at issuedAt.
func (w *Wallet) Credential(role auth.Role, issuedAt time.Time) (auth.Credential, error) {
	return auth.Sign(w.PrivateKey, role, issuedAt)
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
