package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ComponentStatus is the per component state of the deployment state machine
type ComponentStatus string

const (
	ComponentPending   ComponentStatus = "pending"
	ComponentDeploying ComponentStatus = "deploying"
	ComponentDeployed  ComponentStatus = "deployed"
	ComponentFailed    ComponentStatus = "failed"
)

// BootstrapStatus is the global state of a bootstrap run
type BootstrapStatus string

const (
	BootstrapDeploying   BootstrapStatus = "deploying"
	BootstrapRegistering BootstrapStatus = "registering"
	BootstrapRegistered  BootstrapStatus = "registered" // entries written, lock declined
	BootstrapLocked      BootstrapStatus = "locked"
	BootstrapFailed      BootstrapStatus = "failed"
)

// FailedPhase records where a failed bootstrap stopped
type FailedPhase string

const (
	PhaseDeploy   FailedPhase = "deploy"
	PhaseRegister FailedPhase = "register"
	PhaseLock     FailedPhase = "lock"
)

// ComponentState tracks one plan step
type ComponentState struct {
	ID      string          `json:"id"`
	Status  ComponentStatus `json:"status"`
	Address *common.Address `json:"address,omitempty"`
	TxHash  *common.Hash    `json:"txHash,omitempty"`
	Error   string          `json:"error,omitempty"`
	Funded  bool            `json:"funded,omitempty"`
}

// BootstrapState is the persisted state of a bootstrap run
type BootstrapState struct {
	RunID           string                     `json:"runId"`
	Group           string                     `json:"group"`
	ManifestPath    string                     `json:"manifestPath"`
	Network         string                     `json:"network,omitempty"`
	DryRun          bool                       `json:"dryRun,omitempty"`
	StartedAt       time.Time                  `json:"startedAt"`
	UpdatedAt       time.Time                  `json:"updatedAt"`
	Status          BootstrapStatus            `json:"status"`
	FailedPhase     FailedPhase                `json:"failedPhase,omitempty"`
	Error           string                     `json:"error,omitempty"`
	RegistryAddress *common.Address            `json:"registryAddress,omitempty"`
	Order           []string                   `json:"order"`
	Components      map[string]*ComponentState `json:"components"`
}

// NewBootstrapState creates a state with every component pending
func NewBootstrapState(runID, group, manifestPath string, order []string) *BootstrapState {
	now := time.Now()
	state := &BootstrapState{
		RunID:        runID,
		Group:        group,
		ManifestPath: manifestPath,
		StartedAt:    now,
		UpdatedAt:    now,
		Status:       BootstrapDeploying,
		Order:        order,
		Components:   make(map[string]*ComponentState, len(order)),
	}
	for _, id := range order {
		state.Components[id] = &ComponentState{ID: id, Status: ComponentPending}
	}
	return state
}

// AllDeployed returns true when every planned component reached deployed
func (s *BootstrapState) AllDeployed() bool {
	if s == nil || len(s.Order) == 0 {
		return false
	}
	for _, id := range s.Order {
		cs, ok := s.Components[id]
		if !ok || cs.Status != ComponentDeployed || cs.Address == nil {
			return false
		}
	}
	return true
}
