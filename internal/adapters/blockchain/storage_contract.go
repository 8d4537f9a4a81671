package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// storageABI is the subset of the eternal storage contract the bootstrap uses
const storageABI = `[
	{"type":"function","name":"getAddress","stateMutability":"view",
	 "inputs":[{"name":"_key","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getBool","stateMutability":"view",
	 "inputs":[{"name":"_key","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"setAddress","stateMutability":"nonpayable",
	 "inputs":[{"name":"_key","type":"bytes32"},{"name":"_value","type":"address"}],"outputs":[]},
	{"type":"function","name":"setBool","stateMutability":"nonpayable",
	 "inputs":[{"name":"_key","type":"bytes32"},{"name":"_value","type":"bool"}],"outputs":[]}
]`

// StorageBinder binds the deployed storage contract as an AddressRegistry
type StorageBinder struct {
	client *Client
	abi    abi.ABI
}

// NewStorageBinder creates a binder for on-chain registries
func NewStorageBinder(client *Client) (*StorageBinder, error) {
	parsed, err := abi.JSON(strings.NewReader(storageABI))
	if err != nil {
		return nil, fmt.Errorf("parse storage ABI: %w", err)
	}
	return &StorageBinder{client: client, abi: parsed}, nil
}

// Bind checks there is a contract at registry and returns a view of it
func (b *StorageBinder) Bind(ctx context.Context, registry common.Address) (usecase.AddressRegistry, error) {
	ok, err := b.client.HasCode(ctx, registry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no contract at registry address %s", domain.ErrInvalidAddress, registry.Hex())
	}
	return &StorageContract{client: b.client, abi: b.abi, address: registry}, nil
}

// StorageContract reads and writes registry entries through contract calls
type StorageContract struct {
	client  *Client
	abi     abi.ABI
	address common.Address
}

// SetAddress writes value under key and waits for the transaction
func (s *StorageContract) SetAddress(ctx context.Context, key common.Hash, value common.Address) error {
	return s.transact(ctx, "setAddress", key, value)
}

// SetBool writes value under key and waits for the transaction
func (s *StorageContract) SetBool(ctx context.Context, key common.Hash, value bool) error {
	return s.transact(ctx, "setBool", key, value)
}

func (s *StorageContract) transact(ctx context.Context, method string, key common.Hash, value interface{}) error {
	// the contract rejects writes once initialised; surface that before paying for a revert
	locked, err := s.GetBool(ctx, domain.InitialisedKey())
	if err != nil {
		return err
	}
	if locked {
		return domain.ErrWriteAfterLock
	}

	data, err := s.abi.Pack(method, [32]byte(key), value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	tx, err := s.client.Send(ctx, &s.address, nil, data)
	if err != nil {
		return err
	}
	if _, err := s.client.WaitMined(ctx, tx); err != nil {
		return err
	}
	return nil
}

// GetAddress returns the address stored under key. The contract returns the
// zero address for unset keys, which is reported as not found.
func (s *StorageContract) GetAddress(ctx context.Context, key common.Hash) (common.Address, error) {
	out, err := s.call(ctx, "getAddress", key)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, errors.New("getAddress: unexpected return type")
	}
	if addr == (common.Address{}) {
		return common.Address{}, domain.ErrNotFound
	}
	return addr, nil
}

// GetBool returns the flag stored under key
func (s *StorageContract) GetBool(ctx context.Context, key common.Hash) (bool, error) {
	out, err := s.call(ctx, "getBool", key)
	if err != nil {
		return false, err
	}
	value, ok := out[0].(bool)
	if !ok {
		return false, errors.New("getBool: unexpected return type")
	}
	return value, nil
}

func (s *StorageContract) call(ctx context.Context, method string, key common.Hash) ([]interface{}, error) {
	data, err := s.abi.Pack(method, [32]byte(key))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	raw, err := s.client.Call(ctx, s.address, data)
	if err != nil {
		return nil, err
	}
	out, err := s.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("decode %s: expected 1 value, got %d", method, len(out))
	}
	return out, nil
}

var (
	_ usecase.AddressRegistry = (*StorageContract)(nil)
	_ usecase.RegistryBinder  = (*StorageBinder)(nil)
)
