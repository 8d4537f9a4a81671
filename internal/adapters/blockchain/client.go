package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	gasBufferPercent    = 20
)

var errNoKey = errors.New("no deployer private key configured (set TREB_PRIVATE_KEY or PRIVATE_KEY)")

// Client signs and sends transactions from the deployer account. It connects
// lazily so commands that never touch the chain don't need an RPC endpoint.
type Client struct {
	rpcURL  string
	keyHex  string
	chainID uint64
	log     *slog.Logger

	mu        sync.Mutex
	eth       *ethclient.Client
	key       *ecdsa.PrivateKey
	from      common.Address
	signer    types.Signer
	nextNonce *uint64

	PollInterval time.Duration
}

// NewClient creates a client for the configured network and deployer key
func NewClient(cfg *config.RuntimeConfig, log *slog.Logger) *Client {
	c := &Client{
		keyHex:       cfg.PrivateKey,
		log:          log,
		PollInterval: defaultPollInterval,
	}
	if cfg.Network != nil {
		c.rpcURL = cfg.Network.RPCURL
		c.chainID = cfg.Network.ChainID
	}
	return c
}

// Connect dials the RPC endpoint and loads the deployer key. It is safe to call repeatedly.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.eth != nil {
		return nil
	}
	if c.rpcURL == "" {
		return fmt.Errorf("no RPC URL configured (set --network or --rpc-url)")
	}
	// reads work without a key; Send and From require one
	if c.keyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(c.keyHex, "0x"))
		if err != nil {
			return fmt.Errorf("invalid deployer private key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	eth, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}

	networkChainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if c.chainID != 0 && networkChainID.Uint64() != c.chainID {
		eth.Close()
		return fmt.Errorf("chain ID mismatch: expected %d, got %d", c.chainID, networkChainID.Uint64())
	}

	c.eth = eth
	c.chainID = networkChainID.Uint64()
	c.signer = types.LatestSignerForChainID(networkChainID)
	c.log.Debug("connected to chain", "chain_id", c.chainID, "deployer", c.from.Hex())
	return nil
}

// From returns the deployer address
func (c *Client) From(ctx context.Context) (common.Address, error) {
	if err := c.Connect(ctx); err != nil {
		return common.Address{}, err
	}
	if c.key == nil {
		return common.Address{}, errNoKey
	}
	return c.from, nil
}

// Send signs and submits a transaction without waiting for it to be mined.
// A nil to creates a contract.
func (c *Client) Send(ctx context.Context, to *common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	if c.key == nil {
		return nil, errNoKey
	}
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := c.nonceLocked(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gas += gas * gasBufferPercent / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, c.signer, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		// the node may or may not have seen the nonce, refetch next time
		c.nextNonce = nil
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	next := nonce + 1
	c.nextNonce = &next
	c.log.Debug("transaction sent", "hash", signed.Hash().Hex(), "nonce", nonce)
	return signed, nil
}

// nonceLocked tracks nonces locally so unconfirmed transfers don't collide
// with the deploys that follow them.
func (c *Client) nonceLocked(ctx context.Context) (uint64, error) {
	if c.nextNonce != nil {
		return *c.nextNonce, nil
	}
	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return nonce, nil
}

// WaitMined polls for the receipt of tx and fails if it reverted
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Call executes a read-only call against to
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", to.Hex(), err)
	}
	return out, nil
}

// Close releases the RPC connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
}

// HasCode reports whether a contract is deployed at addr
func (c *Client) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	if err := c.Connect(ctx); err != nil {
		return false, err
	}
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check code at %s: %w", addr.Hex(), err)
	}
	return len(code) > 0, nil
}
