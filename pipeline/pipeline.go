// Package pipeline drives the build matrix: every cell is built,
// validated and, when its environment is configured, deployed.
package pipeline

import (
	"context"
	"fmt"
)

// Stage is a single unit of work for one matrix cell.
type Stage interface {
	Name() string
	Execute(ctx context.Context, cc *CellContext) error
}

// Pipeline executes a sequence of stages in order.
type Pipeline struct {
	stages []Stage
}

// New creates a Pipeline from the given stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run executes each stage sequentially. It stops on the first error and
// after a stage marks the cell skipped.
func (p *Pipeline) Run(ctx context.Context, cc *CellContext) error {
	for _, s := range p.stages {
		if cc.Skipped {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline cancelled before stage %s: %w", s.Name(), err)
		}
		if err := s.Execute(ctx, cc); err != nil {
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
	}
	return nil
}
