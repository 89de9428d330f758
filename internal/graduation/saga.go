// internal/graduation/saga.go
package graduation

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type compensation struct {
	name string
	undo func() error
}

// saga records how to undo each completed step.
type saga struct {
	steps  []compensation
	logger *zap.Logger
}

func (s *saga) onRollback(name string, undo func() error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// rollback runs compensations newest first. Every compensation is attempted.
func (s *saga) rollback() error {
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(); err != nil {
			s.logger.Error("Compensation failed", zap.String("step", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		s.logger.Debug("Compensated", zap.String("step", c.name))
	}
	s.steps = nil
	return errors.Join(errs...)
}

// StepError reports the settlement step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("graduation step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
