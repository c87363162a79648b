package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huangsam/ratingfit/core/learn"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
	"github.com/sirupsen/logrus"
)

const ensembleOp = "ensemble"

// EnsembleOptions configures RunEnsemble.
type EnsembleOptions struct {
	Groups  int
	Seed    uint64 // 0 draws a fresh seed
	Workers int
	Timeout time.Duration // 0 disables the deadline
	Learn   learn.Options

	// NewTrainer builds the trainer of each group; nil uses learn.NewTrainer.
	NewTrainer func(learn.Options) (learn.Trainer, error)
}

// EnsembleOptionsFromConfig extracts the ensemble settings from a validated config.
func EnsembleOptionsFromConfig(cfg *contract.Config) EnsembleOptions {
	return EnsembleOptions{
		Groups:  cfg.Groups,
		Seed:    cfg.Seed,
		Workers: cfg.Workers,
		Timeout: cfg.Timeout,
		Learn: learn.Options{
			Kind:      cfg.Model,
			MaxIter:   cfg.MaxIter,
			Tolerance: cfg.Tolerance,
			C:         cfg.C,
		},
	}
}

// EnsembleResult is the outcome of a successful ensemble run.
type EnsembleResult struct {
	Table  schema.FinalTable
	Models []contract.Model // Models[i] was trained on group i
	Groups []schema.GroupSummary
	Seed   uint64
}

// RunEnsemble partitions the table, trains one model per group, and scores every
// group with the models trained on the other groups. All training finishes before
// any scoring starts. Any failure aborts the run without a partial table.
func RunEnsemble(ctx context.Context, table schema.AnalysisTable, opts EnsembleOptions) (*EnsembleResult, error) {
	if opts.Groups < 2 {
		return nil, schema.NewError(schema.InvalidArgument, ensembleOp, "need at least 2 groups, got %d", opts.Groups)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = RandomSeed()
	}
	log := runLogger(ctx).WithFields(logrus.Fields{"seed": seed, "groups": opts.Groups, "rows": table.Len()})
	log.Info("Starting ensemble")

	groups, err := Partition(table, opts.Groups, NewSeededRand(seed))
	if err != nil {
		return nil, err
	}

	workers := max(opts.Workers, 1)
	newTrainer := opts.NewTrainer
	if newTrainer == nil {
		newTrainer = learn.NewTrainer
	}
	k := len(groups)

	// --- Phase 1: train one model per group ---
	models := make([]contract.Model, k)
	summaries := make([]schema.GroupSummary, k)
	err = runGroupTasks(ctx, workers, k, func(i int) error {
		trainer, err := newTrainer(opts.Learn.WithSeed(seed + uint64(i) + 1))
		if err != nil {
			return schema.WrapError(schema.InvalidArgument, trainOp, err)
		}
		model, summary, err := TrainGroup(groups[i], trainer)
		summaries[i] = summary
		if err != nil {
			return err
		}
		models[i] = model
		return nil
	})
	if err != nil {
		return nil, err
	}

	// --- Phase 2: score each group with the other models ---
	scored := make([]schema.ScoredGroup, k)
	err = runGroupTasks(ctx, workers, k, func(i int) error {
		sg, err := ScoreGroup(groups[i], otherModels(models, i))
		if err != nil {
			return err
		}
		scored[i] = sg
		return nil
	})
	if err != nil {
		return nil, err
	}

	final := Aggregate(scored)
	final.Features = append([]string(nil), table.Features...)
	log.WithField("scored", len(final.Rows)).Info("Ensemble finished")

	return &EnsembleResult{Table: final, Models: models, Groups: summaries, Seed: seed}, nil
}

// runGroupTasks runs task for every group index on a pool of workers.
// Each task writes only to its own index. The first task failure cancels
// the tasks that have not started yet and is returned.
func runGroupTasks(ctx context.Context, workers, n int, task func(i int) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobCh := make(chan int, n)
	errCh := make(chan error, n)
	var wg sync.WaitGroup

	for range min(workers, n) {
		wg.Go(func() {
			for i := range jobCh {
				if err := ctx.Err(); err != nil {
					errCh <- err
					continue
				}
				if err := task(i); err != nil {
					errCh <- err
					cancel()
				}
			}
		})
	}

	for i := range n {
		jobCh <- i
	}
	close(jobCh)

	wg.Wait()
	close(errCh)

	var ctxErr error
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr == nil {
				ctxErr = err
			}
			continue
		}
		return err
	}
	if ctxErr != nil {
		return fmt.Errorf("ensemble aborted: %w", ctxErr)
	}
	return nil
}
