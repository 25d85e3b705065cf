package chain

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/poolparty/pool-backend/pkg/config"
)

// Registry holds one client per configured network. Every read and write
// path selects its client through the registry by chain id so a session that
// switches networks never keeps talking to the old one.
type Registry struct {
	clients map[int64]*Client
}

// NewRegistry dials every configured chain.
func NewRegistry(cfg *config.Config, logger *zap.Logger) (*Registry, error) {
	clients := make(map[int64]*Client, len(cfg.Chains))
	for i := range cfg.Chains {
		chainCfg := &cfg.Chains[i]
		client, err := NewClient(chainCfg, cfg.TxFlow.SignerKey, logger)
		if err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, fmt.Errorf("chain %d: %w", chainCfg.ChainID, err)
		}
		clients[chainCfg.ChainID] = client
	}
	return &Registry{clients: clients}, nil
}

// Client returns the client for chainID, or nil when the chain is not
// configured. A nil client means "no data from this source", not an error.
func (r *Registry) Client(chainID int64) *Client {
	return r.clients[chainID]
}

// Close closes all chain connections.
func (r *Registry) Close() {
	for _, c := range r.clients {
		c.Close()
	}
}
