package models

import (
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

// ComponentKind represents the role a component plays in the bootstrap
type ComponentKind string

const (
	ComponentKindContract ComponentKind = "contract"
	ComponentKindLibrary  ComponentKind = "library"
	ComponentKindRegistry ComponentKind = "registry"
)

// ComponentSpec is the static description of one deployable unit.
// DependsOn always contains the registry for every other component;
// ConstructorArgs is the ordered subset whose addresses are passed to the
// constructor.
type ComponentSpec struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"` // registry name, e.g. "rocketPool"
	Kind            ComponentKind `json:"kind"`
	Artifact        string        `json:"artifact,omitempty"`
	DependsOn       []string      `json:"dependsOn,omitempty"`
	ConstructorArgs []string      `json:"constructorArgs,omitempty"`
	Libraries       []string      `json:"libraries,omitempty"`
	Funding         *big.Int      `json:"funding,omitempty"` // seed capital in wei
}

// IsLibrary returns true for shared libraries linked into consumers
func (c *ComponentSpec) IsLibrary() bool {
	return c.Kind == ComponentKindLibrary
}

// IsRegistry returns true for the address registry itself
func (c *ComponentSpec) IsRegistry() bool {
	return c.Kind == ComponentKindRegistry
}

// Registrable reports whether the component gets name and address entries
// in the registry once deployed.
func (c *ComponentSpec) Registrable() bool {
	return c.Kind == ComponentKindContract
}

// ContractName is the compiled contract name of the artifact, the name solc
// uses for link references: "src/Math.sol:Arithmetic" -> "Arithmetic"
func (c *ComponentSpec) ContractName() string {
	artifact := c.Artifact
	if artifact == "" {
		artifact = c.ID
	}
	if idx := strings.LastIndex(artifact, ":"); idx >= 0 {
		return artifact[idx+1:]
	}
	return artifact
}

// DefaultRegistryName lower-cases the first rune of an ID: RocketPool -> rocketPool
func DefaultRegistryName(id string) string {
	r, size := utf8.DecodeRuneInString(id)
	if r == utf8.RuneError {
		return id
	}
	return string(unicode.ToLower(r)) + id[size:]
}

// DeployedComponent is created once per successful deploy and never mutated
type DeployedComponent struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Address common.Address `json:"address"`
	TxHash  common.Hash    `json:"txHash,omitempty"`
}

// DeployRequest is what the orchestrator hands to the deploy capability
type DeployRequest struct {
	Component       *ComponentSpec
	ConstructorArgs []common.Address
	Libraries       map[string]common.Address // keyed by library contract name
}

// DeployResult is returned by the deploy capability
type DeployResult struct {
	Address common.Address
	TxHash  common.Hash
}

// Confirmation is the user visible record of a registered component
type Confirmation struct {
	Component  string         `json:"component"`
	Name       string         `json:"name"`
	Address    common.Address `json:"address"`
	AddressKey common.Hash    `json:"addressKey"`
	NameKey    common.Hash    `json:"nameKey"`
}

// RegistryEntry is a single key/value row of the registry
type RegistryEntry struct {
	Key     common.Hash     `json:"key"`
	Address *common.Address `json:"address,omitempty"`
	Bool    *bool           `json:"bool,omitempty"`
}
