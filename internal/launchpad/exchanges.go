// internal/launchpad/exchanges.go
package launchpad

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/exchange"
	"github.com/rovshanmuradov/curve-launchpad/internal/protocol"
)

// exchangeResolver builds adapters for whatever packages the config store
// currently lists. An adapter is rebuilt when its program address changes.
type exchangeResolver struct {
	mu       sync.Mutex
	config   *protocol.Store
	adapters map[string]exchange.Adapter
	logger   *zap.Logger
}

func newExchangeResolver(config *protocol.Store, logger *zap.Logger) *exchangeResolver {
	return &exchangeResolver{
		config:   config,
		adapters: make(map[string]exchange.Adapter),
		logger:   logger,
	}
}

func (r *exchangeResolver) Get(id string) (exchange.Adapter, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	program, ok := r.config.Snapshot().ExchangePackages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", exchange.ErrUnknownExchange, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.adapters[id]; ok && a.ProgramID().Equals(program) {
		return a, nil
	}
	a, err := exchange.New(id, program, r.logger)
	if err != nil {
		return nil, err
	}
	r.adapters[id] = a
	return a, nil
}
