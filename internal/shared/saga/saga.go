// Package saga runs an ordered list of compensable steps. Each step is
// re-driven on transient failure; when a step finally fails, the steps that
// already completed are compensated in reverse order.
package saga

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

// Action is the forward or compensating half of a step.
type Action func(ctx context.Context) error

type step struct {
	name       string
	do         Action
	compensate Action
}

// Saga is built once per run and is not safe for concurrent use.
type Saga struct {
	name   string
	policy retry.Policy
	logger logger.Interface
	steps  []step
}

// New creates an empty saga.
func New(name string, policy retry.Policy, log logger.Interface) *Saga {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &Saga{name: name, policy: policy, logger: log}
}

// Step appends a step. compensate may be nil for steps with nothing to undo,
// typically the last one.
func (s *Saga) Step(name string, do, compensate Action) *Saga {
	s.steps = append(s.steps, step{name: name, do: do, compensate: compensate})
	return s
}

// StepError reports which step failed and whether compensation completed.
type StepError struct {
	Saga           string
	RunID          string
	Step           string
	Err            error
	CompensateErrs []error
}

func (e *StepError) Error() string {
	if len(e.CompensateErrs) > 0 {
		return fmt.Sprintf("saga %s step %s failed: %v (compensation failed: %v)", e.Saga, e.Step, e.Err, e.CompensateErrs)
	}
	return fmt.Sprintf("saga %s step %s failed: %v", e.Saga, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Compensated reports whether every completed step was rolled back.
func (e *StepError) Compensated() bool {
	return len(e.CompensateErrs) == 0
}

// Execute runs every step in order.
func (s *Saga) Execute(ctx context.Context) error {
	runID := uuid.NewString()
	log := s.logger.With("saga", s.name, "run_id", runID)

	for i, st := range s.steps {
		err := retry.Do(ctx, s.policy, log, s.name+"."+st.name, st.do)
		if err == nil {
			log.Debugw("saga step completed", "step", st.name)
			continue
		}

		log.Errorw("saga step failed, compensating", "step", st.name, "error", err)
		stepErr := &StepError{Saga: s.name, RunID: runID, Step: st.name, Err: err}

		for j := i - 1; j >= 0; j-- {
			done := s.steps[j]
			if done.compensate == nil {
				continue
			}
			// compensation must run even if the caller's context is gone
			cctx := context.WithoutCancel(ctx)
			if cerr := retry.Do(cctx, s.policy, log, s.name+"."+done.name+".compensate", done.compensate); cerr != nil {
				log.Errorw("saga compensation failed", "step", done.name, "error", cerr)
				stepErr.CompensateErrs = append(stepErr.CompensateErrs, cerr)
			}
		}
		return stepErr
	}

	log.Infow("saga completed", "steps", len(s.steps))
	return nil
}
