package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-bootstrap/internal/adapters/registry"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// fakeDeployer hands out sequential addresses and records the call order
type fakeDeployer struct {
	calls    []models.DeployRequest
	failures map[string]error
	onDeploy func(id string)
}

func (f *fakeDeployer) Deploy(_ context.Context, req models.DeployRequest) (*models.DeployResult, error) {
	if f.onDeploy != nil {
		f.onDeploy(req.Component.ID)
	}
	f.calls = append(f.calls, req)
	if err := f.failures[req.Component.ID]; err != nil {
		return nil, err
	}
	addr := common.BigToAddress(big.NewInt(int64(0x1000 + len(f.calls))))
	return &models.DeployResult{Address: addr, TxHash: common.BigToHash(big.NewInt(int64(len(f.calls))))}, nil
}

func (f *fakeDeployer) order() []string {
	ids := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		ids = append(ids, c.Component.ID)
	}
	return ids
}

// MockFundsTransferer is a mock implementation of FundsTransferer
type MockFundsTransferer struct {
	mock.Mock
}

func (m *MockFundsTransferer) TransferFunds(ctx context.Context, to common.Address, amount *big.Int) error {
	args := m.Called(ctx, to, amount)
	return args.Error(0)
}

// MockLockConfirmer is a mock implementation of LockConfirmer
type MockLockConfirmer struct {
	mock.Mock
}

func (m *MockLockConfirmer) ConfirmLock(ctx context.Context, group string, registry common.Address) (bool, error) {
	args := m.Called(ctx, group, registry)
	return args.Bool(0), args.Error(1)
}

// memStateStore keeps the last saved state per manifest
type memStateStore struct {
	states map[string]*models.BootstrapState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]*models.BootstrapState)}
}

func (s *memStateStore) Load(_ context.Context, path string) (*models.BootstrapState, error) {
	st, ok := s.states[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return st, nil
}

func (s *memStateStore) Save(_ context.Context, st *models.BootstrapState) error {
	s.states[st.ManifestPath] = st
	return nil
}

// flakyBinder fails the first write of a given key
type flakyBinder struct {
	inner  usecase.RegistryBinder
	failOn common.Hash
	failed bool
}

func (b *flakyBinder) Bind(ctx context.Context, addr common.Address) (usecase.AddressRegistry, error) {
	store, err := b.inner.Bind(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &flakyStore{AddressRegistry: store, binder: b}, nil
}

type flakyStore struct {
	usecase.AddressRegistry
	binder *flakyBinder
}

func (s *flakyStore) SetAddress(ctx context.Context, key common.Hash, value common.Address) error {
	if key == s.binder.failOn && !s.binder.failed {
		s.binder.failed = true
		return errors.New("out of gas")
	}
	return s.AddressRegistry.SetAddress(ctx, key, value)
}

// recordingProgress collects emitted stages
type recordingProgress struct {
	usecase.NopProgress
	stages []string
}

func (p *recordingProgress) OnProgress(_ context.Context, e usecase.ProgressEvent) {
	p.stages = append(p.stages, e.Stage)
}

type harness struct {
	deployer  *fakeDeployer
	funds     *MockFundsTransferer
	binder    *registry.MemoryBinder
	states    *memStateStore
	progress  *recordingProgress
	confirmer usecase.LockConfirmer
	manifest  *usecase.Manifest
}

func newHarness(m *usecase.Manifest) *harness {
	return &harness{
		deployer: &fakeDeployer{failures: map[string]error{}},
		funds:    &MockFundsTransferer{},
		binder:   registry.NewMemoryBinder(),
		states:   newMemStateStore(),
		progress: &recordingProgress{},
		manifest: m,
	}
}

func (h *harness) useCase(binder usecase.RegistryBinder) *usecase.BootstrapRegistry {
	if binder == nil {
		binder = h.binder
	}
	loader := &fakeLoader{manifests: map[string]*usecase.Manifest{"bootstrap.yaml": h.manifest}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return usecase.NewBootstrapRegistry(loader, h.deployer, h.funds, binder, h.states, h.confirmer, h.progress, log)
}

func (h *harness) run(t *testing.T, binder usecase.RegistryBinder, resume bool) (*usecase.BootstrapResult, error) {
	t.Helper()
	return h.runWith(t, binder, usecase.BootstrapParams{Network: "anvil", Resume: resume})
}

func (h *harness) runWith(t *testing.T, binder usecase.RegistryBinder, params usecase.BootstrapParams) (*usecase.BootstrapResult, error) {
	t.Helper()
	params.ManifestPath = "bootstrap.yaml"
	return h.useCase(binder).Run(context.Background(), params)
}

func scenarioManifest() *usecase.Manifest {
	return &usecase.Manifest{
		Group: "scenario",
		Components: []*usecase.ComponentConfig{
			{ID: "Registry", Kind: "registry"},
			{ID: "LibraryX", Kind: "library"},
			{ID: "ComponentA", Deps: []string{"Registry"}, Libraries: []string{"LibraryX"}},
		},
	}
}

func TestBootstrapRegistry_ScenarioA(t *testing.T) {
	h := newHarness(scenarioManifest())

	var entriesDuringDeploy []int
	h.deployer.onDeploy = func(string) {
		entriesDuringDeploy = append(entriesDuringDeploy, len(h.binder.Store(common.BigToAddress(big.NewInt(0x1001))).Entries()))
	}

	result, err := h.run(t, nil, false)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Locked)
	assert.Equal(t, []string{"Registry", "LibraryX", "ComponentA"}, h.deployer.order())
	assert.Equal(t, []int{0, 0, 0}, entriesDuringDeploy, "no registry writes before every deploy finished")

	reg := h.deployer.calls[0]
	comp := h.deployer.calls[2]
	registryAddr := common.BigToAddress(big.NewInt(0x1001))
	libAddr := common.BigToAddress(big.NewInt(0x1002))
	compAddr := common.BigToAddress(big.NewInt(0x1003))
	assert.Empty(t, reg.ConstructorArgs)
	assert.Equal(t, []common.Address{registryAddr}, comp.ConstructorArgs)
	assert.Equal(t, map[string]common.Address{"LibraryX": libAddr}, comp.Libraries)

	assert.Equal(t, registryAddr, result.Registry)
	store := h.binder.Store(registryAddr)
	assert.Len(t, store.Entries(), 3)
	assert.True(t, store.Locked())

	ctx := context.Background()
	got, err := store.GetAddress(ctx, domain.AddressKey(compAddr))
	require.NoError(t, err)
	assert.Equal(t, compAddr, got)
	nameKey, _ := domain.NameKey("componentA")
	got, err = store.GetAddress(ctx, nameKey)
	require.NoError(t, err)
	assert.Equal(t, compAddr, got)

	require.Len(t, result.Confirmations, 1)
	assert.Equal(t, "componentA", result.Confirmations[0].Name)
	assert.Equal(t, nameKey, result.Confirmations[0].NameKey)

	state := h.states.states["bootstrap.yaml"]
	assert.Equal(t, models.BootstrapLocked, state.Status)
	assert.True(t, state.AllDeployed())

	assert.Equal(t, []string{
		usecase.StagePlanCreated,
		usecase.StageComponentDeploying, usecase.StageComponentDeployed,
		usecase.StageComponentDeploying, usecase.StageComponentDeployed,
		usecase.StageComponentDeploying, usecase.StageComponentDeployed,
		usecase.StageRegistering, usecase.StageComponentRegistered,
		usecase.StageLocked, usecase.StageBootstrapCompleted,
	}, h.progress.stages)

	// any later write is rejected
	assert.ErrorIs(t, store.SetAddress(ctx, nameKey, registryAddr), domain.ErrWriteAfterLock)
}

func TestBootstrapRegistry_LibraryLinkedByContractName(t *testing.T) {
	h := newHarness(&usecase.Manifest{
		Group: "scenario",
		Components: []*usecase.ComponentConfig{
			{ID: "Registry", Kind: "registry"},
			{ID: "MathLib", Kind: "library", Artifact: "src/libraries/Arithmetic.sol:Arithmetic"},
			{ID: "StringLib", Kind: "library", Artifact: "Strings"},
			{ID: "Pool", Deps: []string{"Registry"}, Libraries: []string{"MathLib", "StringLib"}},
		},
	})

	_, err := h.run(t, nil, false)
	require.NoError(t, err)

	require.Equal(t, []string{"Registry", "MathLib", "StringLib", "Pool"}, h.deployer.order())
	pool := h.deployer.calls[3]
	assert.Equal(t, map[string]common.Address{
		"Arithmetic": common.BigToAddress(big.NewInt(0x1002)),
		"Strings":    common.BigToAddress(big.NewInt(0x1003)),
	}, pool.Libraries)
}

func TestBootstrapRegistry_ScenarioB(t *testing.T) {
	h := newHarness(scenarioManifest())
	cause := errors.New("constructor reverted")
	h.deployer.failures["ComponentA"] = cause

	result, err := h.run(t, nil, false)
	require.Error(t, err)

	var deployErr *domain.DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, "ComponentA", deployErr.Component)
	assert.ErrorIs(t, err, cause)

	assert.False(t, result.Success)
	assert.Equal(t, "ComponentA", result.FailedComponent)
	assert.Len(t, result.Deployed, 2)

	store := h.binder.Store(common.BigToAddress(big.NewInt(0x1001)))
	assert.Empty(t, store.Entries())
	assert.False(t, store.Locked())

	state := h.states.states["bootstrap.yaml"]
	assert.Equal(t, models.BootstrapFailed, state.Status)
	assert.Equal(t, models.PhaseDeploy, state.FailedPhase)
	assert.Equal(t, models.ComponentFailed, state.Components["ComponentA"].Status)
	assert.Contains(t, h.progress.stages, usecase.StageComponentFailed)

	// a failed deploy cannot be resumed
	_, err = h.run(t, nil, true)
	assert.ErrorIs(t, err, domain.ErrNotResumable)
}

func TestBootstrapRegistry_ScenarioC(t *testing.T) {
	h := newHarness(&usecase.Manifest{
		Group: "scenario",
		Components: []*usecase.ComponentConfig{
			{ID: "Registry", Kind: "registry"},
			{ID: "A", Deps: []string{"Registry"}},
			{ID: "B", Deps: []string{"Registry"}},
		},
	})
	registryAddr := common.BigToAddress(big.NewInt(0x1001))

	var entries []int
	h.deployer.onDeploy = func(string) {
		entries = append(entries, len(h.binder.Store(registryAddr).Entries()))
	}

	result, err := h.run(t, nil, false)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Registry", "A", "B"}, h.deployer.order())
	assert.Equal(t, "Registry", h.deployer.order()[0])
	assert.Equal(t, []int{0, 0, 0}, entries)
	assert.Len(t, result.Confirmations, 2)
	assert.Len(t, h.binder.Store(registryAddr).Entries(), 5)
}

func TestBootstrapRegistry_Funding(t *testing.T) {
	manifest := &usecase.Manifest{
		Group: "rocketpool",
		Components: []*usecase.ComponentConfig{
			{ID: "RocketStorage", Kind: "registry"},
			{ID: "DummyCasper", Name: "casper", Fund: "6 ether"},
			{ID: "RocketPool", Deps: []string{"RocketStorage"}},
		},
	}
	six, _ := domain.ParseAmount("6 ether")
	sixEther := mock.MatchedBy(func(v *big.Int) bool { return v.Cmp(six) == 0 })
	casperAddr := common.BigToAddress(big.NewInt(0x1002))

	t.Run("funded after deploy", func(t *testing.T) {
		h := newHarness(manifest)
		h.funds.On("TransferFunds", mock.Anything, casperAddr, sixEther).Return(nil).Once()

		result, err := h.run(t, nil, false)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Empty(t, result.Warnings)
		assert.True(t, h.states.states["bootstrap.yaml"].Components["DummyCasper"].Funded)
		assert.Contains(t, h.progress.stages, usecase.StageComponentFunded)
		h.funds.AssertExpectations(t)
	})

	t.Run("failed transfer is only a warning", func(t *testing.T) {
		h := newHarness(manifest)
		h.funds.On("TransferFunds", mock.Anything, casperAddr, sixEther).Return(errors.New("insufficient funds")).Once()

		result, err := h.run(t, nil, false)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.True(t, result.Locked)
		require.Len(t, result.Warnings, 1)

		var transferErr *domain.TransferError
		require.ErrorAs(t, result.Warnings[0], &transferErr)
		assert.Equal(t, "DummyCasper", transferErr.Component)
		assert.Equal(t, casperAddr, transferErr.To)

		// deployment continued past the failed transfer
		assert.Equal(t, []string{"RocketStorage", "DummyCasper", "RocketPool"}, h.deployer.order())
		assert.False(t, h.states.states["bootstrap.yaml"].Components["DummyCasper"].Funded)
		assert.Contains(t, h.progress.stages, usecase.StageFundingFailed)
	})
}

func TestBootstrapRegistry_RegistrationFailureAndResume(t *testing.T) {
	h := newHarness(scenarioManifest())
	nameKey, _ := domain.NameKey("componentA")
	flaky := &flakyBinder{inner: h.binder, failOn: nameKey}

	result, err := h.run(t, flaky, false)
	require.Error(t, err)

	var regErr *domain.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "ComponentA", regErr.Component)
	assert.Equal(t, nameKey, regErr.Key)
	assert.False(t, result.Locked)

	state := h.states.states["bootstrap.yaml"]
	assert.Equal(t, models.PhaseRegister, state.FailedPhase)
	assert.True(t, state.AllDeployed())

	registryAddr := common.BigToAddress(big.NewInt(0x1001))
	assert.False(t, h.binder.Store(registryAddr).Locked())

	// resume re-runs registration and the lock without deploying again
	result, err = h.run(t, flaky, true)
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.True(t, result.Locked)
	assert.Len(t, h.deployer.calls, 3)
	assert.Equal(t, registryAddr, result.Registry)
	assert.Len(t, h.binder.Store(registryAddr).Entries(), 3)

	// nothing is left to resume once locked
	_, err = h.run(t, flaky, true)
	assert.ErrorIs(t, err, domain.ErrNotResumable)
}

func TestBootstrapRegistry_ResumeRejectsChangedManifest(t *testing.T) {
	h := newHarness(scenarioManifest())
	nameKey, _ := domain.NameKey("componentA")
	_, err := h.run(t, &flakyBinder{inner: h.binder, failOn: nameKey}, false)
	require.Error(t, err)

	h.manifest = &usecase.Manifest{
		Group: "scenario",
		Components: append(scenarioManifest().Components,
			&usecase.ComponentConfig{ID: "ComponentB", Deps: []string{"Registry"}}),
	}
	_, err = h.run(t, nil, true)
	assert.ErrorIs(t, err, domain.ErrNotResumable)
}

func TestBootstrapRegistry_DryRunLeavesLiveStateResumable(t *testing.T) {
	h := newHarness(scenarioManifest())
	nameKey, _ := domain.NameKey("componentA")
	flaky := &flakyBinder{inner: h.binder, failOn: nameKey}

	_, err := h.run(t, flaky, false)
	require.Error(t, err)
	live := h.states.states["bootstrap.yaml"]
	require.Equal(t, models.PhaseRegister, live.FailedPhase)

	// a simulated run on its own registry completes and locks it
	result, err := h.runWith(t, registry.NewMemoryBinder(), usecase.BootstrapParams{Network: "anvil", DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.Locked)
	assert.True(t, result.State.DryRun)

	// the live state is untouched
	assert.Same(t, live, h.states.states["bootstrap.yaml"])
	assert.False(t, live.DryRun)
	assert.Equal(t, models.BootstrapFailed, live.Status)

	result, err = h.run(t, flaky, true)
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.True(t, result.Locked)
}

func TestBootstrapRegistry_ResumeRejectsMismatchedRun(t *testing.T) {
	h := newHarness(scenarioManifest())
	nameKey, _ := domain.NameKey("componentA")
	_, err := h.run(t, &flakyBinder{inner: h.binder, failOn: nameKey}, false)
	require.Error(t, err)

	t.Run("other network", func(t *testing.T) {
		_, err := h.runWith(t, nil, usecase.BootstrapParams{Network: "sepolia", Resume: true})
		assert.ErrorIs(t, err, domain.ErrNotResumable)
	})

	t.Run("dry run", func(t *testing.T) {
		_, err := h.runWith(t, nil, usecase.BootstrapParams{Network: "anvil", Resume: true, DryRun: true})
		assert.ErrorIs(t, err, domain.ErrNotResumable)
	})

	t.Run("state from a dry run", func(t *testing.T) {
		h.states.states["bootstrap.yaml"].DryRun = true
		defer func() { h.states.states["bootstrap.yaml"].DryRun = false }()

		_, err := h.run(t, nil, true)
		assert.ErrorIs(t, err, domain.ErrNotResumable)
	})

	_, err = h.run(t, nil, true)
	require.NoError(t, err)
}

func TestBootstrapRegistry_ResumeWithoutState(t *testing.T) {
	h := newHarness(scenarioManifest())
	_, err := h.run(t, nil, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBootstrapRegistry_AlreadyLockedRegistry(t *testing.T) {
	h := newHarness(scenarioManifest())
	registryAddr := common.BigToAddress(big.NewInt(0x1001))

	// a registry at the same address was locked by an earlier bootstrap
	require.NoError(t, h.binder.Store(registryAddr).SetBool(context.Background(), domain.InitialisedKey(), true))

	result, err := h.run(t, nil, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrWriteAfterLock)
	assert.False(t, result.Success)
	assert.Equal(t, models.PhaseRegister, h.states.states["bootstrap.yaml"].FailedPhase)
}

func TestBootstrapRegistry_LockConfirmation(t *testing.T) {
	registryAddr := common.BigToAddress(big.NewInt(0x1001))

	t.Run("declined", func(t *testing.T) {
		h := newHarness(scenarioManifest())
		confirmer := &MockLockConfirmer{}
		confirmer.On("ConfirmLock", mock.Anything, "scenario", registryAddr).Return(false, nil).Once()
		h.confirmer = confirmer

		result, err := h.run(t, nil, false)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.False(t, result.Locked)
		assert.False(t, h.binder.Store(registryAddr).Locked())
		assert.Equal(t, models.BootstrapRegistered, h.states.states["bootstrap.yaml"].Status)
		confirmer.AssertExpectations(t)

		// the registry can still be locked by resuming
		confirmer.On("ConfirmLock", mock.Anything, "scenario", registryAddr).Return(true, nil).Once()
		result, err = h.run(t, nil, true)
		require.NoError(t, err)
		assert.True(t, result.Locked)
		assert.True(t, h.binder.Store(registryAddr).Locked())
	})

	t.Run("confirmation error", func(t *testing.T) {
		h := newHarness(scenarioManifest())
		confirmer := &MockLockConfirmer{}
		confirmer.On("ConfirmLock", mock.Anything, "scenario", registryAddr).Return(false, errors.New("no tty")).Once()
		h.confirmer = confirmer

		_, err := h.run(t, nil, false)
		require.Error(t, err)
		assert.False(t, h.binder.Store(registryAddr).Locked())
		assert.Equal(t, models.PhaseLock, h.states.states["bootstrap.yaml"].FailedPhase)
	})
}

func TestBootstrapRegistry_InvalidManifest(t *testing.T) {
	h := newHarness(&usecase.Manifest{Group: "g"})
	_, err := h.run(t, nil, false)
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)
	assert.Empty(t, h.deployer.calls)
}
