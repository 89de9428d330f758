// internal/exchange/factory.go
package exchange

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// New creates the adapter for an exchange id.
func New(id string, program solana.PublicKey, logger *zap.Logger) (Adapter, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "cpamm":
		return NewConstantProduct(program, logger), nil
	case "clmm":
		return NewConcentrated(program, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExchange, id)
	}
}

// Set holds one adapter per exchange id.
type Set struct {
	adapters map[string]Adapter
}

// NewSet builds adapters for every configured exchange package.
func NewSet(packages map[string]solana.PublicKey, logger *zap.Logger) (*Set, error) {
	s := &Set{adapters: make(map[string]Adapter, len(packages))}
	for id, program := range packages {
		a, err := New(id, program, logger)
		if err != nil {
			return nil, err
		}
		s.adapters[a.ID()] = a
	}
	return s, nil
}

// Get returns the adapter for id.
func (s *Set) Get(id string) (Adapter, error) {
	a, ok := s.adapters[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExchange, id)
	}
	return a, nil
}

// IDs lists the available exchange ids in sorted order.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.adapters))
	for id := range s.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
