package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
)

// ContractDeployer provisions a new component instance. Re-invocation is not
// idempotent, so callers must deploy each component at most once per run.
type ContractDeployer interface {
	Deploy(ctx context.Context, req models.DeployRequest) (*models.DeployResult, error)
}

// FundsTransferer moves seed capital to a deployed component. Implementations
// submit the transfer and return without waiting for confirmation.
type FundsTransferer interface {
	TransferFunds(ctx context.Context, to common.Address, amount *big.Int) error
}

// AddressRegistry is the shared key/value store written during bootstrap
type AddressRegistry interface {
	SetAddress(ctx context.Context, key common.Hash, value common.Address) error
	SetBool(ctx context.Context, key common.Hash, value bool) error
	GetAddress(ctx context.Context, key common.Hash) (common.Address, error)
	GetBool(ctx context.Context, key common.Hash) (bool, error)
}

// RegistryBinder binds an AddressRegistry to the address of a deployed registry component
type RegistryBinder interface {
	Bind(ctx context.Context, registry common.Address) (AddressRegistry, error)
}

// ManifestLoader reads a bootstrap manifest from disk
type ManifestLoader interface {
	Load(ctx context.Context, path string) (*Manifest, error)
}

// BootstrapStateStore persists bootstrap state between runs
type BootstrapStateStore interface {
	Load(ctx context.Context, manifestPath string) (*models.BootstrapState, error)
	Save(ctx context.Context, state *models.BootstrapState) error
}

// LockConfirmer gates the irreversible lock write
type LockConfirmer interface {
	ConfirmLock(ctx context.Context, group string, registry common.Address) (bool, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// Progress stages emitted by the bootstrap use case
const (
	StagePlanCreated         = "plan_created"
	StageComponentDeploying  = "component_deploying"
	StageComponentDeployed   = "component_deployed"
	StageComponentFailed     = "component_failed"
	StageComponentFunded     = "component_funded"
	StageFundingFailed       = "funding_failed"
	StageRegistering         = "registering"
	StageComponentRegistered = "component_registered"
	StageLocked              = "locked"
	StageBootstrapCompleted  = "bootstrap_completed"
)
