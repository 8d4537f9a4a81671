package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// BootstrapRenderer handles rendering of bootstrap runs
type BootstrapRenderer struct {
	out io.Writer
}

// NewBootstrapRenderer creates a new bootstrap renderer
func NewBootstrapRenderer(out io.Writer) *BootstrapRenderer {
	return &BootstrapRenderer{out: out}
}

// GetWriter returns the io.Writer used by this renderer
func (r *BootstrapRenderer) GetWriter() io.Writer {
	return r.out
}

// RenderPlan displays the deployment plan
func (r *BootstrapRenderer) RenderPlan(plan *usecase.DeploymentPlan) {
	fmt.Fprintf(r.out, "\n🎯 Bootstrapping %s\n", plan.Group)
	fmt.Fprintf(r.out, "📋 Deployment plan: %d components\n\n", len(plan.Steps))

	color.New(color.Bold).Fprintf(r.out, "📋 Deployment Plan:\n")
	fmt.Fprintf(r.out, "%s\n", strings.Repeat("─", 50))

	for i, step := range plan.Steps {
		fmt.Fprintf(r.out, "%d. ", i+1)
		color.New(color.FgCyan).Fprintf(r.out, "%s", step.ID)

		switch {
		case step.IsRegistry():
			color.New(color.FgMagenta).Fprintf(r.out, " [registry]")
		case step.IsLibrary():
			color.New(color.FgBlue).Fprintf(r.out, " [library]")
		default:
			fmt.Fprintf(r.out, " → ")
			color.New(color.FgGreen).Fprintf(r.out, "%s", step.Name)
		}

		if len(step.ConstructorArgs) > 0 {
			color.New(color.FgHiBlack).Fprintf(r.out, " (args: %v)", step.ConstructorArgs)
		}
		if len(step.Libraries) > 0 {
			color.New(color.FgHiBlack).Fprintf(r.out, " (links: %v)", step.Libraries)
		}
		if step.Funding != nil && step.Funding.Sign() > 0 {
			color.New(color.FgYellow).Fprintf(r.out, " (fund %s)", domain.FormatEther(step.Funding))
		}
		fmt.Fprintln(r.out)
	}

	fmt.Fprintln(r.out)
}

// RenderDeploying shows the step header of a deployment
func (r *BootstrapRenderer) RenderDeploying(current, total int, spec *models.ComponentSpec) {
	fmt.Fprintf(r.out, "[%d/%d] Deploying %s\n", current, total, spec.ID)
}

// RenderDeployed shows a finished deployment
func (r *BootstrapRenderer) RenderDeployed(dc *models.DeployedComponent) {
	color.New(color.FgGreen).Fprintf(r.out, "  ✓ %s", dc.ID)
	fmt.Fprintf(r.out, " at %s\n", dc.Address.Hex())
	if dc.TxHash != (common.Hash{}) {
		color.New(color.FgHiBlack).Fprintf(r.out, "    tx %s\n", dc.TxHash.Hex())
	}
}

// RenderConfirmation prints one registration the way the legacy migration did
func (r *BootstrapRenderer) RenderConfirmation(c *models.Confirmation) {
	color.New(color.FgYellow).Fprintf(r.out, "Set Storage %s Address", c.Component)
	fmt.Fprintf(r.out, ": %s\n", c.Address.Hex())
}

// RenderRegistering shows the registration header
func (r *BootstrapRenderer) RenderRegistering(total int) {
	fmt.Fprintf(r.out, "\n")
	color.New(color.Bold).Fprintf(r.out, "📝 Registering %d components\n", total)
	fmt.Fprintf(r.out, "%s\n", strings.Repeat("─", 50))
}

// RenderLocked shows the final lock write
func (r *BootstrapRenderer) RenderLocked() {
	color.New(color.FgYellow).Fprintf(r.out, "Set Storage Owner Access Removed")
	fmt.Fprintln(r.out)
}

// RenderResult renders the final summary
func (r *BootstrapRenderer) RenderResult(result *usecase.BootstrapResult, dryRun bool) error {
	fmt.Fprintf(r.out, "\n%s\n", strings.Repeat("═", 70))

	for _, warning := range result.Warnings {
		fmt.Fprintln(r.out, FormatWarning(warning.Error()))
	}

	total := 0
	if result.Plan != nil {
		total = len(result.Plan.Steps)
	}

	if !result.Success {
		color.New(color.FgRed, color.Bold).Fprintf(r.out, "❌ Bootstrap failed\n")
		fmt.Fprintf(r.out, "\n📊 Summary:\n")
		if result.FailedComponent != "" {
			fmt.Fprintf(r.out, "  • Failed at: %s\n", result.FailedComponent)
		}
		if result.State != nil && result.State.FailedPhase != "" {
			fmt.Fprintf(r.out, "  • Phase: %s\n", result.State.FailedPhase)
		}
		fmt.Fprintf(r.out, "  • Components deployed: %d/%d\n", len(result.Deployed), total)
		if result.Error != nil {
			fmt.Fprintf(r.out, "  • Error: %v\n", result.Error)
		}
		if result.State != nil && result.State.FailedPhase != models.PhaseDeploy && result.State.AllDeployed() {
			color.New(color.FgHiBlack).Fprintf(r.out, "\nRe-run with --resume to retry registration\n")
		}
		return nil
	}

	prefix := ""
	if dryRun {
		prefix = "[dry run] "
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("%sSuccessfully bootstrapped %s", prefix, result.Plan.Group)))

	fmt.Fprintf(r.out, "\n📊 Summary:\n")
	fmt.Fprintf(r.out, "  • Registry: %s\n", result.Registry.Hex())
	fmt.Fprintf(r.out, "  • Components deployed: %d/%d\n", len(result.Deployed), total)
	fmt.Fprintf(r.out, "  • Components registered: %d\n", len(result.Confirmations))
	if result.Resumed {
		fmt.Fprintf(r.out, "  • Resumed previous run %s\n", result.State.RunID)
	}
	if result.Locked {
		fmt.Fprintf(r.out, "  • Lock: %s\n", color.New(color.FgGreen).Sprint("set"))
	} else {
		fmt.Fprintf(r.out, "  • Lock: %s\n", color.New(color.FgYellow).Sprint("not set, registry still writable"))
	}
	return nil
}
