package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/initializ/pipeline-runner/internal/ctxlog"
	"github.com/initializ/pipeline-runner/types"
)

// DefaultTag is the image tag used for pipeline builds.
const DefaultTag = "pipeline"

// Orchestrator runs every cell of a config's build matrix through build,
// validate and deploy.
//
// By default the first failing cell aborts the run and no later cell is
// started. KeepGoing runs every cell and joins the failures. Parallelism
// above one runs that many cells at once; callers must then give each cell
// its own Dockerfile.
type Orchestrator struct {
	Config    *types.PipelineConfig
	Builder   Builder
	Validator Validator
	Deployer  Deployer

	// Policy defaults to NewStablePolicy(Config.Policy).
	Policy EnvironmentPolicy

	// Tag defaults to DefaultTag.
	Tag string

	KeepGoing   bool
	Parallelism int
	Observer    Observer
}

// Run drives the matrix to completion. The summary is returned even when
// the run fails and lists every cell that was attempted.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	cfg := o.Config
	if cfg == nil {
		return nil, fmt.Errorf("orchestrator: no pipeline config")
	}

	policy := o.Policy
	if policy == nil {
		policy = NewStablePolicy(cfg.Policy)
	}
	tag := o.Tag
	if tag == "" {
		tag = DefaultTag
	}
	obs := o.observer()

	p := New(
		&BuildStage{Builder: o.Builder},
		&ValidateStage{Validator: o.Validator},
		&DeployStage{Deployer: o.Deployer, Policy: policy, Environments: cfg},
	)

	cells := cfg.Cells()
	logger := ctxlog.FromContext(ctx).With("pipeline", cfg.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("starting pipeline",
		"cells", len(cells),
		"keep_going", o.KeepGoing,
		"parallelism", o.Parallelism,
	)
	obs.PipelineStarted(cfg.Name, len(cells))

	results := make([]*CellResult, len(cells))
	var err error
	if o.Parallelism > 1 {
		err = o.runParallel(ctx, p, cells, tag, results)
	} else {
		err = o.runSequential(ctx, p, cells, tag, results)
	}

	summary := &Summary{Name: cfg.Name, Total: len(cells)}
	for _, r := range results {
		if r != nil {
			summary.Cells = append(summary.Cells, *r)
		}
	}

	obs.PipelineFinished(summary, err)
	return summary, err
}

func (o *Orchestrator) runSequential(ctx context.Context, p *Pipeline, cells []types.Cell, tag string, results []*CellResult) error {
	var errs []error
	for i, cell := range cells {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, fmt.Errorf("pipeline cancelled before cell %s: %w", cell, err))...)
		}

		res := o.runCell(ctx, p, cell, tag)
		results[i] = res
		if res.Err != nil {
			if !o.KeepGoing {
				return res.Err
			}
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) runParallel(ctx context.Context, p *Pipeline, cells []types.Cell, tag string, results []*CellResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Parallelism)

	var (
		mu   sync.Mutex
		errs []error
	)
	for i, cell := range cells {
		g.Go(func() error {
			// Cells queued behind a failure never start.
			if gctx.Err() != nil {
				return nil
			}

			res := o.runCell(gctx, p, cell, tag)
			results[i] = res
			if res.Err == nil {
				return nil
			}
			if !o.KeepGoing {
				return res.Err
			}
			mu.Lock()
			errs = append(errs, res.Err)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline cancelled: %w", err))
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) runCell(ctx context.Context, p *Pipeline, cell types.Cell, tag string) *CellResult {
	obs := o.observer()
	obs.CellStarted(cell)

	cc := NewCellContext(cell, tag)
	err := p.Run(ctx, cc)

	res := &CellResult{
		Cell:        cell,
		Artifact:    cc.Artifact,
		Environment: cc.Environment,
	}
	switch {
	case err != nil:
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("cell %s: %w", cell, err)
		obs.CellFailed(cell, res.Err)
	case cc.Skipped:
		res.Outcome = OutcomeSkipped
		obs.CellSkipped(cell, cc.Artifact, cc.Environment)
	default:
		res.Outcome = OutcomeDeployed
		obs.CellDeployed(cell, cc.Artifact, cc.Environment)
	}
	return res
}

func (o *Orchestrator) observer() Observer {
	if o.Observer == nil {
		return nopObserver{}
	}
	return o.Observer
}
