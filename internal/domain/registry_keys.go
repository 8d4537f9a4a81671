package domain

import (
	"fmt"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Registry key namespaces shared with the on-chain storage contract.
const (
	NamespaceContractAddress    = "contract.address"
	NamespaceContractName       = "contract.name"
	NamespaceStorageInitialised = "contract.storage.initialised"
)

// Discriminant is the second half of a registry key. It is packed the same
// way Solidity's abi.encodePacked packs the corresponding type.
type Discriminant interface {
	packed() ([]byte, error)
}

// NameDiscriminant is a human readable component name, packed as raw UTF-8.
type NameDiscriminant string

func (n NameDiscriminant) packed() ([]byte, error) {
	if !utf8.ValidString(string(n)) {
		return nil, fmt.Errorf("%w: name is not valid UTF-8", ErrInvalidInput)
	}
	if n == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidInput)
	}
	return []byte(n), nil
}

// AddressDiscriminant is a component address, packed as its 20 raw bytes.
type AddressDiscriminant common.Address

func (a AddressDiscriminant) packed() ([]byte, error) {
	return common.Address(a).Bytes(), nil
}

// DeriveKey computes keccak256(abi.encodePacked(namespace, discriminant)).
// A nil discriminant hashes the namespace alone. The result is identical to
// what the storage contract and any later reader derive for the same input.
func DeriveKey(namespace string, discriminant Discriminant) (common.Hash, error) {
	if namespace == "" {
		return common.Hash{}, fmt.Errorf("%w: empty namespace", ErrInvalidInput)
	}
	if !utf8.ValidString(namespace) {
		return common.Hash{}, fmt.Errorf("%w: namespace is not valid UTF-8", ErrInvalidInput)
	}

	data := []byte(namespace)
	if discriminant != nil {
		tail, err := discriminant.packed()
		if err != nil {
			return common.Hash{}, err
		}
		data = append(data, tail...)
	}

	return crypto.Keccak256Hash(data), nil
}

// AddressKey is the key under which a component registers its own address.
func AddressKey(addr common.Address) common.Hash {
	// address discriminants are always valid
	key, _ := DeriveKey(NamespaceContractAddress, AddressDiscriminant(addr))
	return key
}

// NameKey is the key under which a component is looked up by name.
func NameKey(name string) (common.Hash, error) {
	return DeriveKey(NamespaceContractName, NameDiscriminant(name))
}

// InitialisedKey is the key of the terminal lock flag.
func InitialisedKey() common.Hash {
	key, _ := DeriveKey(NamespaceStorageInitialised, nil)
	return key
}
