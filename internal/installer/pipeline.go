package installer

import (
	"context"

	sharederrors "github.com/juagargi/scion-box/internal/shared/errors"
	"github.com/juagargi/scion-box/internal/shared/logger"
	"github.com/juagargi/scion-box/pkg/events"
)

// Outcome reports what a step did. Changed is false when the host already
// was in the desired state and the step was a no-op.
type Outcome struct {
	Changed bool
	Detail  string
}

// Step is one idempotent provisioning action. Run inspects the host, applies
// the action if needed, and reports whether anything changed.
type Step interface {
	Name() string
	Run(ctx context.Context) (Outcome, error)
}

type stepFunc struct {
	name string
	fn   func(ctx context.Context) (Outcome, error)
}

func (s stepFunc) Name() string { return s.name }

func (s stepFunc) Run(ctx context.Context) (Outcome, error) { return s.fn(ctx) }

// NewStep wraps a function as a Step
func NewStep(name string, fn func(ctx context.Context) (Outcome, error)) Step {
	return stepFunc{name: name, fn: fn}
}

// StepResult is the recorded result of one executed step
type StepResult struct {
	Step    string
	Outcome Outcome
	Err     error
}

// Pipeline runs steps strictly in order and short-circuits on the first
// failure. There is no rollback: recovery is re-running the whole pipeline,
// which the steps' idempotence makes safe.
type Pipeline struct {
	runID  string
	steps  []Step
	logger *logger.Logger
	bus    *events.Bus
}

// NewPipeline creates a pipeline for one provisioning run
func NewPipeline(runID string, log *logger.Logger, bus *events.Bus) *Pipeline {
	if log == nil {
		log = logger.NewDevelopment("installer")
	}
	return &Pipeline{runID: runID, logger: log, bus: bus}
}

// Add appends steps to the pipeline
func (p *Pipeline) Add(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Run executes the steps in order. It returns the results of every step that
// ran, including the failed one, and the error that aborted the run.
func (p *Pipeline) Run(ctx context.Context) ([]StepResult, error) {
	results := make([]StepResult, 0, len(p.steps))

	for _, step := range p.steps {
		stepCtx := logger.WithStep(ctx, step.Name())

		p.logger.LogStepStart(stepCtx, step.Name())
		p.publish(stepCtx, events.NewEvent(events.TypeStepStarted, p.runID, step.Name()))

		outcome, err := step.Run(stepCtx)
		if err != nil {
			p.logger.LogStepFailure(stepCtx, step.Name(), err)

			e := events.NewEvent(events.TypeStepFailed, p.runID, step.Name())
			e.Err = err
			p.publish(stepCtx, e)

			results = append(results, StepResult{Step: step.Name(), Err: err})
			return results, sharederrors.NewStepError(step.Name(), "provisioning aborted", err)
		}

		p.logger.LogStepDone(stepCtx, step.Name(), outcome.Changed, outcome.Detail)

		eventType := events.TypeStepCompleted
		if !outcome.Changed {
			eventType = events.TypeStepSkipped
		}
		e := events.NewEvent(eventType, p.runID, step.Name())
		e.Changed = outcome.Changed
		e.Detail = outcome.Detail
		p.publish(stepCtx, e)

		results = append(results, StepResult{Step: step.Name(), Outcome: outcome})
	}

	return results, nil
}

func (p *Pipeline) publish(ctx context.Context, e events.Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, e); err != nil {
		p.logger.WarnContext(ctx, "failed to publish progress event", "error", err)
	}
}
