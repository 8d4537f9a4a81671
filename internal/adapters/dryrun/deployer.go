// Package dryrun simulates deployments without sending transactions. Addresses
// are predicted from the deployer account and a local nonce the same way the
// chain assigns them.
package dryrun

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// DefaultSender is used when no deployer key is configured (anvil account 0)
var DefaultSender = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// Deployer predicts contract addresses with CREATE semantics
type Deployer struct {
	mu     sync.Mutex
	sender common.Address
	nonce  uint64
	log    *slog.Logger
}

// NewDeployer creates a simulated deployer starting at nonce 0
func NewDeployer(sender common.Address, log *slog.Logger) *Deployer {
	return &Deployer{sender: sender, log: log}
}

// NewDeployerFromConfig derives the sender from the configured private key
func NewDeployerFromConfig(cfg *config.RuntimeConfig, log *slog.Logger) *Deployer {
	return NewDeployer(SenderFromKey(cfg.PrivateKey), log)
}

// SenderFromKey returns the address of a hex private key, or DefaultSender
func SenderFromKey(keyHex string) common.Address {
	if keyHex == "" {
		return DefaultSender
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return DefaultSender
	}
	return crypto.PubkeyToAddress(key.PublicKey)
}

// Deploy returns the address the next creation would get
func (d *Deployer) Deploy(_ context.Context, req models.DeployRequest) (*models.DeployResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	address := crypto.CreateAddress(d.sender, d.nonce)
	res := &models.DeployResult{Address: address, TxHash: fakeTxHash(d.sender, d.nonce)}
	d.nonce++

	d.log.Debug("simulated deployment", "component", req.Component.ID, "address", address.Hex())
	return res, nil
}

// consume accounts for a non-creating transaction
func (d *Deployer) consume() {
	d.mu.Lock()
	d.nonce++
	d.mu.Unlock()
}

func fakeTxHash(sender common.Address, nonce uint64) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(sender.Bytes(), n[:])
}

// Transferer records transfers without sending them. Each transfer uses up a
// nonce so later predicted addresses match a real run.
type Transferer struct {
	deployer *Deployer
	log      *slog.Logger
}

// NewTransferer creates a simulated transferer sharing the deployer's nonce
func NewTransferer(deployer *Deployer, log *slog.Logger) *Transferer {
	return &Transferer{deployer: deployer, log: log}
}

// TransferFunds logs the transfer
func (t *Transferer) TransferFunds(_ context.Context, to common.Address, amount *big.Int) error {
	t.deployer.consume()
	t.log.Debug("simulated transfer", "to", to.Hex(), "wei", amount.String())
	return nil
}

var (
	_ usecase.ContractDeployer = (*Deployer)(nil)
	_ usecase.FundsTransferer  = (*Transferer)(nil)
)
