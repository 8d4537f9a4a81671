package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
)

// BootstrapRegistry deploys the components of a manifest in dependency order,
// registers them in the address registry and finally locks the registry.
type BootstrapRegistry struct {
	loader    ManifestLoader
	deployer  ContractDeployer
	funds     FundsTransferer
	binder    RegistryBinder
	states    BootstrapStateStore
	confirmer LockConfirmer
	progress  ProgressSink
	log       *slog.Logger
}

// NewBootstrapRegistry creates a new bootstrap use case
func NewBootstrapRegistry(
	loader ManifestLoader,
	deployer ContractDeployer,
	funds FundsTransferer,
	binder RegistryBinder,
	states BootstrapStateStore,
	confirmer LockConfirmer,
	progress ProgressSink,
	log *slog.Logger,
) *BootstrapRegistry {
	if progress == nil {
		progress = NopProgress{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &BootstrapRegistry{
		loader:    loader,
		deployer:  deployer,
		funds:     funds,
		binder:    binder,
		states:    states,
		confirmer: confirmer,
		progress:  progress,
		log:       log,
	}
}

// BootstrapParams contains parameters for a bootstrap run
type BootstrapParams struct {
	ManifestPath string
	Network      string
	Resume       bool // re-run registration and lock of a fully deployed previous run
	DryRun       bool // simulated runs never persist state
}

// BootstrapResult contains the outcome of a bootstrap run
type BootstrapResult struct {
	Plan            *DeploymentPlan
	State           *models.BootstrapState
	Registry        common.Address
	Deployed        []*models.DeployedComponent
	Confirmations   []*models.Confirmation
	Warnings        []error
	FailedComponent string
	Resumed         bool
	Locked          bool
	Success         bool
	Error           error
}

// run carries the mutable state of a single execution
type run struct {
	plan      *DeploymentPlan
	state     *models.BootstrapState
	result    *BootstrapResult
	addresses map[string]common.Address
}

// Run executes the bootstrap. On failure the returned result describes where
// it stopped and the error is also returned.
func (b *BootstrapRegistry) Run(ctx context.Context, params BootstrapParams) (*BootstrapResult, error) {
	manifest, err := b.loader.Load(ctx, params.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	plan, err := BuildPlan(manifest)
	if err != nil {
		return nil, err
	}

	r := &run{
		plan:      plan,
		addresses: make(map[string]common.Address, len(plan.Steps)),
		result: &BootstrapResult{
			Plan:     plan,
			Deployed: make([]*models.DeployedComponent, 0, len(plan.Steps)),
		},
	}

	if params.Resume {
		state, err := b.resumableState(ctx, params, plan)
		if err != nil {
			return nil, err
		}
		r.state = state
		r.result.Resumed = true
		for _, spec := range plan.Steps {
			cs := state.Components[spec.ID]
			r.addresses[spec.ID] = *cs.Address
			r.result.Deployed = append(r.result.Deployed, deployedFromState(spec, cs))
		}
	} else {
		r.state = models.NewBootstrapState(uuid.NewString(), plan.Group, params.ManifestPath, plan.Order())
		r.state.Network = params.Network
		r.state.DryRun = params.DryRun
		b.save(ctx, r.state)
	}
	r.result.State = r.state

	b.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StagePlanCreated,
		Total:    len(plan.Steps),
		Metadata: plan,
	})

	if !params.Resume {
		if err := b.deployAll(ctx, r); err != nil {
			return r.result, err
		}
	}

	r.result.Registry = r.addresses[plan.Registry.ID]
	r.state.RegistryAddress = &r.result.Registry

	store, err := b.binder.Bind(ctx, r.result.Registry)
	if err != nil {
		return r.result, b.fail(ctx, r, models.PhaseRegister, "", fmt.Errorf("failed to bind registry: %w", err))
	}

	if err := b.registerAll(ctx, r, store); err != nil {
		return r.result, err
	}

	if err := b.lock(ctx, r, store); err != nil {
		return r.result, err
	}

	b.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StageBootstrapCompleted,
		Metadata: r.result,
	})

	return r.result, nil
}

// resumableState loads the previous state and checks that only the
// registration pass and lock remain.
func (b *BootstrapRegistry) resumableState(ctx context.Context, params BootstrapParams, plan *DeploymentPlan) (*models.BootstrapState, error) {
	if params.DryRun {
		return nil, fmt.Errorf("%w: dry runs cannot resume", domain.ErrNotResumable)
	}

	state, err := b.states.Load(ctx, params.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resume: %w", err)
	}

	switch {
	case state.DryRun:
		return nil, fmt.Errorf("%w: previous run was a dry run", domain.ErrNotResumable)
	case state.Network != params.Network:
		return nil, fmt.Errorf("%w: previous run targeted network %q, not %q", domain.ErrNotResumable, state.Network, params.Network)
	case state.Status == models.BootstrapLocked:
		return nil, fmt.Errorf("%w: registry for %s is already locked", domain.ErrNotResumable, state.Group)
	case state.FailedPhase == models.PhaseDeploy:
		return nil, fmt.Errorf("%w: deploy failed, re-run the bootstrap from scratch", domain.ErrNotResumable)
	case !slices.Equal(state.Order, plan.Order()):
		return nil, fmt.Errorf("%w: manifest changed since the previous run", domain.ErrNotResumable)
	case !state.AllDeployed():
		return nil, fmt.Errorf("%w: previous run did not finish deploying", domain.ErrNotResumable)
	}

	state.FailedPhase = ""
	state.Error = ""
	return state, nil
}

func deployedFromState(spec *models.ComponentSpec, cs *models.ComponentState) *models.DeployedComponent {
	dc := &models.DeployedComponent{ID: spec.ID, Name: spec.Name, Address: *cs.Address}
	if cs.TxHash != nil {
		dc.TxHash = *cs.TxHash
	}
	return dc
}

// deployAll deploys every step sequentially, aborting on the first failure.
func (b *BootstrapRegistry) deployAll(ctx context.Context, r *run) error {
	total := len(r.plan.Steps)

	for i, spec := range r.plan.Steps {
		req, err := r.request(spec)
		if err != nil {
			return b.fail(ctx, r, models.PhaseDeploy, spec.ID, &domain.DeployError{Component: spec.ID, Cause: err})
		}

		cs := r.state.Components[spec.ID]
		cs.Status = models.ComponentDeploying
		b.save(ctx, r.state)
		b.log.Debug("deploying component", "component", spec.ID, "step", i+1, "total", total)
		b.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageComponentDeploying,
			Current:  i + 1,
			Total:    total,
			Message:  fmt.Sprintf("Deploying %s", spec.ID),
			Spinner:  true,
			Metadata: spec,
		})

		res, err := b.deployer.Deploy(ctx, req)
		if err != nil {
			cs.Status = models.ComponentFailed
			cs.Error = err.Error()
			b.progress.OnProgress(ctx, ProgressEvent{
				Stage:    StageComponentFailed,
				Current:  i + 1,
				Total:    total,
				Message:  err.Error(),
				Metadata: spec,
			})
			return b.fail(ctx, r, models.PhaseDeploy, spec.ID, &domain.DeployError{Component: spec.ID, Cause: err})
		}

		address := res.Address
		txHash := res.TxHash
		cs.Status = models.ComponentDeployed
		cs.Address = &address
		cs.TxHash = &txHash
		r.addresses[spec.ID] = address
		b.save(ctx, r.state)

		deployed := &models.DeployedComponent{ID: spec.ID, Name: spec.Name, Address: address, TxHash: txHash}
		r.result.Deployed = append(r.result.Deployed, deployed)
		b.log.Debug("component deployed", "component", spec.ID, "address", address.Hex())
		b.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageComponentDeployed,
			Current:  i + 1,
			Total:    total,
			Metadata: deployed,
		})

		if spec.Funding != nil && spec.Funding.Sign() > 0 {
			b.fund(ctx, r, spec, address)
		}
	}

	return nil
}

// request builds the deploy request for spec from already deployed addresses.
// The plan order guarantees every dependency is present.
func (r *run) request(spec *models.ComponentSpec) (models.DeployRequest, error) {
	for _, dep := range append(append([]string(nil), spec.DependsOn...), spec.Libraries...) {
		if _, ok := r.addresses[dep]; !ok {
			return models.DeployRequest{}, fmt.Errorf("dependency %s is not deployed", dep)
		}
	}

	args := make([]common.Address, 0, len(spec.ConstructorArgs))
	for _, dep := range spec.ConstructorArgs {
		args = append(args, r.addresses[dep])
	}

	var libs map[string]common.Address
	if len(spec.Libraries) > 0 {
		libs = make(map[string]common.Address, len(spec.Libraries))
		for _, lib := range spec.Libraries {
			libs[r.plan.Get(lib).ContractName()] = r.addresses[lib]
		}
	}

	return models.DeployRequest{Component: spec, ConstructorArgs: args, Libraries: libs}, nil
}

// fund seeds a freshly deployed component. Failures are reported, never retried.
func (b *BootstrapRegistry) fund(ctx context.Context, r *run, spec *models.ComponentSpec, to common.Address) {
	cs := r.state.Components[spec.ID]

	if err := b.funds.TransferFunds(ctx, to, spec.Funding); err != nil {
		terr := &domain.TransferError{Component: spec.ID, To: to, Cause: err}
		r.result.Warnings = append(r.result.Warnings, terr)
		b.log.Warn("seed funding failed", "component", spec.ID, "amount", spec.Funding.String(), "error", err)
		b.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageFundingFailed,
			Message:  terr.Error(),
			Metadata: terr,
		})
		return
	}

	cs.Funded = true
	b.save(ctx, r.state)
	b.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageComponentFunded,
		Message: fmt.Sprintf("Funded %s with %s", spec.ID, domain.FormatEther(spec.Funding)),
	})
}

// registerAll writes the address and name entries of every registrable
// component in plan order. Writes are idempotent so a failed pass can be retried.
func (b *BootstrapRegistry) registerAll(ctx context.Context, r *run, store AddressRegistry) error {
	r.state.Status = models.BootstrapRegistering
	b.save(ctx, r.state)

	steps := r.plan.Registrable()
	b.progress.OnProgress(ctx, ProgressEvent{
		Stage: StageRegistering,
		Total: len(steps),
	})

	for i, spec := range steps {
		address := r.addresses[spec.ID]

		addressKey := domain.AddressKey(address)
		if err := store.SetAddress(ctx, addressKey, address); err != nil {
			return b.fail(ctx, r, models.PhaseRegister, spec.ID, &domain.RegistrationError{Component: spec.ID, Key: addressKey, Cause: err})
		}

		nameKey, err := domain.NameKey(spec.Name)
		if err != nil {
			return b.fail(ctx, r, models.PhaseRegister, spec.ID, &domain.RegistrationError{Component: spec.ID, Cause: err})
		}
		if err := store.SetAddress(ctx, nameKey, address); err != nil {
			return b.fail(ctx, r, models.PhaseRegister, spec.ID, &domain.RegistrationError{Component: spec.ID, Key: nameKey, Cause: err})
		}

		confirmation := &models.Confirmation{
			Component:  spec.ID,
			Name:       spec.Name,
			Address:    address,
			AddressKey: addressKey,
			NameKey:    nameKey,
		}
		r.result.Confirmations = append(r.result.Confirmations, confirmation)
		b.log.Debug("component registered", "component", spec.ID, "name", spec.Name, "address", address.Hex())
		b.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageComponentRegistered,
			Current:  i + 1,
			Total:    len(steps),
			Metadata: confirmation,
		})
	}

	return nil
}

// lock writes the terminal initialised flag. It is the last write of a run.
func (b *BootstrapRegistry) lock(ctx context.Context, r *run, store AddressRegistry) error {
	if b.confirmer != nil {
		ok, err := b.confirmer.ConfirmLock(ctx, r.plan.Group, r.result.Registry)
		if err != nil {
			return b.fail(ctx, r, models.PhaseLock, "", fmt.Errorf("lock confirmation: %w", err))
		}
		if !ok {
			r.state.Status = models.BootstrapRegistered
			b.save(ctx, r.state)
			b.log.Info("registry left unlocked", "group", r.plan.Group, "registry", r.result.Registry.Hex())
			r.result.Success = true
			return nil
		}
	}

	if err := store.SetBool(ctx, domain.InitialisedKey(), true); err != nil {
		return b.fail(ctx, r, models.PhaseLock, "", fmt.Errorf("failed to lock registry: %w", err))
	}

	r.state.Status = models.BootstrapLocked
	b.save(ctx, r.state)
	r.result.Locked = true
	r.result.Success = true
	b.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StageLocked,
		Metadata: r.result.Registry,
	})

	return nil
}

// fail records a terminal failure on the state and result
func (b *BootstrapRegistry) fail(ctx context.Context, r *run, phase models.FailedPhase, component string, err error) error {
	r.state.Status = models.BootstrapFailed
	r.state.FailedPhase = phase
	r.state.Error = err.Error()
	b.save(ctx, r.state)

	r.result.Success = false
	r.result.FailedComponent = component
	r.result.Error = err

	b.log.Error("bootstrap failed", "phase", phase, "component", component, "error", err,
		"write_after_lock", errors.Is(err, domain.ErrWriteAfterLock))
	return err
}

// save persists state after a transition. Dry runs are never written so they
// cannot clobber the state of a live run on the same manifest.
func (b *BootstrapRegistry) save(ctx context.Context, state *models.BootstrapState) {
	if b.states == nil || state.DryRun {
		return
	}
	state.UpdatedAt = time.Now()
	if err := b.states.Save(ctx, state); err != nil {
		b.log.Warn("failed to save bootstrap state", "error", err)
	}
}
