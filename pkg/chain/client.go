// Package chain is the thin read/write client against a blockchain RPC
// endpoint. One Client is bound to one network; the Registry hands out the
// client for whichever chain a request targets, so a wallet chain switch
// mid-session selects a different client instead of reusing a stale one.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/poolparty/pool-backend/pkg/config"
	"github.com/poolparty/pool-backend/pkg/pool"
)

// ErrNoContract is returned for reads on a chain where the pool contract is
// not deployed. Callers must treat it as "skip this source", not a failure.
var ErrNoContract = errors.New("pool contract not deployed on this chain")

// Client represents a chain client bound to a single network
type Client struct {
	chainID    int64
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	logger     *zap.Logger

	poolAddress common.Address
	poolBound   *bind.BoundContract
}

// NewClient creates a new chain client for one configured network. The
// signer key is optional; without it the client is read-only.
func NewClient(cfg *config.ChainConfig, signerKey string, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	c := &Client{
		chainID: cfg.ChainID,
		client:  client,
		logger:  logger,
	}

	if signerKey != "" {
		privateKey, err := crypto.HexToECDSA(signerKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load signer key: %w", err)
		}
		c.privateKey = privateKey
		c.address = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	if cfg.PoolContract != "" {
		c.poolAddress = common.HexToAddress(cfg.PoolContract)
		c.poolBound = bind.NewBoundContract(c.poolAddress, poolABI, client, client, client)
	}

	logger.Info("Connected to chain",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("pool_contract", cfg.PoolContract))

	return c, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// ChainID returns the network the client is bound to.
func (c *Client) ChainID() int64 { return c.chainID }

// From returns the configured signer address.
func (c *Client) From() common.Address { return c.address }

// PoolContract returns the pool contract address on this chain.
func (c *Client) PoolContract() common.Address { return c.poolAddress }

// HasPoolContract reports whether the pool contract is deployed here.
func (c *Client) HasPoolContract() bool { return c.poolBound != nil }

// GetPoolInfo reads the on-chain tuple for one pool.
func (c *Client) GetPoolInfo(ctx context.Context, poolID uint64) (*pool.ContractRecord, error) {
	if c.poolBound == nil {
		return nil, ErrNoContract
	}

	var out []interface{}
	err := c.poolBound.Call(&bind.CallOpts{Context: ctx}, &out, "getAllPoolInfo", new(big.Int).SetUint64(poolID))
	if err != nil {
		return nil, fmt.Errorf("getAllPoolInfo(%d): %w", poolID, err)
	}
	if len(out) != 9 {
		return nil, fmt.Errorf("getAllPoolInfo(%d): unexpected output arity %d", poolID, len(out))
	}

	record := &pool.ContractRecord{
		ID:               poolID,
		Host:             out[0].(common.Address),
		Name:             out[1].(string),
		DepositPerPerson: out[2].(*big.Int),
		StartTime:        time.Unix(out[3].(*big.Int).Int64(), 0).UTC(),
		EndTime:          time.Unix(out[4].(*big.Int).Int64(), 0).UTC(),
		Balance:          out[5].(*big.Int),
		Status:           pool.ContractStatus(out[6].(uint8)),
		Token:            out[7].(common.Address),
		Participants:     out[8].([]common.Address),
	}

	// Token metadata lives on the token contract, not the pool tuple.
	// Failures here degrade to zero values; display falls back to raw units.
	if record.Token != (common.Address{}) {
		if decimals, err := c.GetTokenDecimals(ctx, record.Token); err == nil {
			record.TokenDecimals = decimals
		}
		if symbol, err := c.GetTokenSymbol(ctx, record.Token); err == nil {
			record.TokenSymbol = symbol
		}
	}

	return record, nil
}

// LatestPoolID reads the highest pool id minted on this chain.
func (c *Client) LatestPoolID(ctx context.Context) (uint64, error) {
	if c.poolBound == nil {
		return 0, ErrNoContract
	}

	var out []interface{}
	if err := c.poolBound.Call(&bind.CallOpts{Context: ctx}, &out, "latestPoolId"); err != nil {
		return 0, fmt.Errorf("latestPoolId: %w", err)
	}
	return out[0].(*big.Int).Uint64(), nil
}

// PoolIDFromReceipt extracts the pool id minted by a createPool transaction
// from its PoolCreated log. Reading the id out of the confirmed receipt ties
// it to that exact transaction; a latestPoolId read after confirmation could
// observe a pool minted by a concurrent create.
func (c *Client) PoolIDFromReceipt(receipt *types.Receipt) (uint64, error) {
	event := poolABI.Events["PoolCreated"]
	for _, entry := range receipt.Logs {
		if entry.Address != c.poolAddress || len(entry.Topics) == 0 || entry.Topics[0] != event.ID {
			continue
		}
		if len(entry.Topics) < 2 {
			return 0, fmt.Errorf("PoolCreated log in %s is missing the indexed pool id", receipt.TxHash.Hex())
		}
		return new(big.Int).SetBytes(entry.Topics[1].Bytes()).Uint64(), nil
	}
	return 0, fmt.Errorf("no PoolCreated log in receipt %s", receipt.TxHash.Hex())
}

// GetContractPools enumerates all pools on this chain. Individual pool reads
// that revert are skipped so one bad pool cannot empty the whole list.
func (c *Client) GetContractPools(ctx context.Context) ([]*pool.ContractRecord, error) {
	if c.poolBound == nil {
		return nil, ErrNoContract
	}

	latest, err := c.LatestPoolID(ctx)
	if err != nil {
		return nil, err
	}

	pools := make([]*pool.ContractRecord, 0, latest)
	for id := uint64(1); id <= latest; id++ {
		record, err := c.GetPoolInfo(ctx, id)
		if err != nil {
			c.logger.Warn("Skipping unreadable pool",
				zap.Uint64("pool_id", id),
				zap.Int64("chain_id", c.chainID),
				zap.Error(err))
			continue
		}
		pools = append(pools, record)
	}

	return pools, nil
}

// BalanceOf reads the ERC-20 balance of owner, in token base units.
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	bound := bind.NewBoundContract(token, erc20ABI, c.client, c.client, c.client)

	var out []interface{}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	return out[0].(*big.Int), nil
}

// GetTokenDecimals reads the ERC-20 decimals of a token.
func (c *Client) GetTokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	bound := bind.NewBoundContract(token, erc20ABI, c.client, c.client, c.client)

	var out []interface{}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("decimals: %w", err)
	}
	return out[0].(uint8), nil
}

// GetTokenSymbol reads the ERC-20 symbol of a token.
func (c *Client) GetTokenSymbol(ctx context.Context, token common.Address) (string, error) {
	bound := bind.NewBoundContract(token, erc20ABI, c.client, c.client, c.client)

	var out []interface{}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "symbol"); err != nil {
		return "", fmt.Errorf("symbol: %w", err)
	}
	return out[0].(string), nil
}

// transactor returns signing opts for a write call
func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	if c.privateKey == nil {
		return nil, fmt.Errorf("chain %d client is read-only (no signer key)", c.chainID)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, big.NewInt(c.chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = big.NewInt(int64(nonce))
	auth.Context = ctx

	return auth, nil
}

// Submit signs and submits one contract write described by target address,
// ABI, method name and args, returning the transaction hash.
func (c *Client) Submit(ctx context.Context, to common.Address, contractABI string, method string, args ...interface{}) (common.Hash, error) {
	auth, err := c.transactor(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	var bound *bind.BoundContract
	switch contractABI {
	case ABIKindPool:
		bound = bind.NewBoundContract(to, poolABI, c.client, c.client, c.client)
	case ABIKindERC20:
		bound = bind.NewBoundContract(to, erc20ABI, c.client, c.client, c.client)
	default:
		return common.Hash{}, fmt.Errorf("unknown contract ABI %q", contractABI)
	}

	tx, err := bound.Transact(auth, method, args...)
	if err != nil {
		return common.Hash{}, err
	}

	c.logger.Info("Transaction submitted",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("method", method),
		zap.String("to", to.Hex()),
		zap.Int64("chain_id", c.chainID))

	return tx.Hash(), nil
}

// ABI kinds accepted by Submit.
const (
	ABIKindPool  = "pool"
	ABIKindERC20 = "erc20"
)

// WaitMined polls for the receipt of hash until it lands or ctx expires.
func (c *Client) WaitMined(ctx context.Context, hash common.Hash, pollInterval time.Duration) (*types.Receipt, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
