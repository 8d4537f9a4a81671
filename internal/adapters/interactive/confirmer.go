package interactive

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// LockConfirmer asks the operator before the registry is locked
type LockConfirmer struct {
	config *config.RuntimeConfig
	prompt func(label string) (string, error)
}

// NewLockConfirmer creates a new confirmer
func NewLockConfirmer(cfg *config.RuntimeConfig) *LockConfirmer {
	return &LockConfirmer{config: cfg, prompt: runPrompt}
}

func runPrompt(label string) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	return p.Run()
}

// ConfirmLock returns true when the lock should be written. Non-interactive
// and dry runs always confirm.
func (c *LockConfirmer) ConfirmLock(_ context.Context, group string, registry common.Address) (bool, error) {
	if c.config.NonInteractive || c.config.DryRun {
		return true, nil
	}

	color.New(color.FgYellow).Printf("\nLocking %s is irreversible: registry %s will reject every further write.\n",
		group, registry.Hex())

	_, err := c.prompt("Lock the registry now")
	if err != nil {
		// promptui reports a "no" answer as ErrAbort
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, fmt.Errorf("lock confirmation interrupted")
		}
		return false, fmt.Errorf("lock confirmation failed: %w", err)
	}
	return true, nil
}

// Ensure LockConfirmer implements LockConfirmer
var _ usecase.LockConfirmer = (*LockConfirmer)(nil)
