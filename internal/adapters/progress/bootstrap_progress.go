package progress

import (
	"context"

	"github.com/trebuchet-org/treb-bootstrap/internal/cli/render"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// BootstrapProgress handles progress events for bootstrap runs
type BootstrapProgress struct {
	renderer *render.BootstrapRenderer
	spinner  *SpinnerProgressReporter

	planRendered bool
}

// NewBootstrapProgress creates a new bootstrap progress reporter
func NewBootstrapProgress(renderer *render.BootstrapRenderer) *BootstrapProgress {
	return &BootstrapProgress{
		renderer: renderer,
		spinner:  NewSpinnerProgressReporter(),
	}
}

// OnProgress handles progress events for bootstrap operations
func (p *BootstrapProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	switch event.Stage {
	case usecase.StagePlanCreated:
		if plan, ok := event.Metadata.(*usecase.DeploymentPlan); ok && !p.planRendered {
			p.renderer.RenderPlan(plan)
			p.planRendered = true
		}

	case usecase.StageComponentDeploying:
		p.spinner.Stop()
		if spec, ok := event.Metadata.(*models.ComponentSpec); ok {
			p.renderer.RenderDeploying(event.Current, event.Total, spec)
		}
		p.spinner.OnProgress(ctx, event)

	case usecase.StageComponentDeployed:
		p.spinner.Stop()
		if dc, ok := event.Metadata.(*models.DeployedComponent); ok {
			p.renderer.RenderDeployed(dc)
		}

	case usecase.StageComponentFailed:
		p.spinner.Stop()
		p.spinner.Error("  ✗ " + event.Message)

	case usecase.StageComponentFunded:
		p.spinner.Info("  " + event.Message)

	case usecase.StageFundingFailed:
		p.spinner.Stop()
		p.spinner.Error("  ⚠ " + event.Message)

	case usecase.StageRegistering:
		p.spinner.Stop()
		p.renderer.RenderRegistering(event.Total)

	case usecase.StageComponentRegistered:
		if c, ok := event.Metadata.(*models.Confirmation); ok {
			p.renderer.RenderConfirmation(c)
		}

	case usecase.StageLocked:
		p.renderer.RenderLocked()

	case usecase.StageBootstrapCompleted:
		// Final summary is rendered by the CLI command after this returns
		p.spinner.Stop()

	default:
		p.spinner.OnProgress(ctx, event)
	}
}

// Info forwards info messages to the spinner
func (p *BootstrapProgress) Info(message string) {
	p.spinner.Info(message)
}

// Error forwards error messages to the spinner
func (p *BootstrapProgress) Error(message string) {
	p.spinner.Error(message)
}

// Ensure BootstrapProgress implements ProgressSink
var _ usecase.ProgressSink = (*BootstrapProgress)(nil)
