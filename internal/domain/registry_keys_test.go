package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDeriveKey_Encoding(t *testing.T) {
	addr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	t.Run("address key packs 20 raw bytes", func(t *testing.T) {
		want := crypto.Keccak256Hash(append([]byte("contract.address"), addr.Bytes()...))
		assert.Equal(t, want, AddressKey(addr))
	})

	t.Run("name key packs raw UTF-8", func(t *testing.T) {
		want := crypto.Keccak256Hash([]byte("contract.namerocketPool"))
		got, err := NameKey("rocketPool")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("initialised key is the namespace alone", func(t *testing.T) {
		assert.Equal(t, crypto.Keccak256Hash([]byte("contract.storage.initialised")), InitialisedKey())
	})

	t.Run("checksum casing does not matter", func(t *testing.T) {
		lower := common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
		assert.Equal(t, AddressKey(addr), AddressKey(lower))
	})
}

func TestDeriveKey_InvalidInput(t *testing.T) {
	tests := []struct {
		name         string
		namespace    string
		discriminant Discriminant
	}{
		{"empty namespace", "", NameDiscriminant("x")},
		{"invalid UTF-8 namespace", "contract.\xff", nil},
		{"invalid UTF-8 name", NamespaceContractName, NameDiscriminant("rocket\xfePool")},
		{"empty name", NamespaceContractName, NameDiscriminant("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKey(tt.namespace, tt.discriminant)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDeriveKey_Properties(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			name := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9]{0,30}`).Draw(rt, "name")
			a, err := NameKey(name)
			require.NoError(rt, err)
			b, err := NameKey(name)
			require.NoError(rt, err)
			assert.Equal(rt, a, b)
		})
	})

	t.Run("distinct names give distinct keys", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			a := rapid.StringMatching(`[a-z][a-zA-Z0-9]{0,20}`).Draw(rt, "a")
			b := rapid.StringMatching(`[a-z][a-zA-Z0-9]{0,20}`).Draw(rt, "b")
			if a == b {
				rt.Skip("equal names")
			}
			ka, _ := NameKey(a)
			kb, _ := NameKey(b)
			assert.NotEqual(rt, ka, kb)
		})
	})

	t.Run("address and name namespaces never collide", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			raw := rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(rt, "addr")
			addr := common.BytesToAddress(raw)
			name := rapid.StringMatching(`[a-z]{1,20}`).Draw(rt, "name")
			nk, _ := NameKey(name)
			assert.NotEqual(rt, AddressKey(addr), nk)
			assert.NotEqual(rt, AddressKey(addr), InitialisedKey())
		})
	})
}
