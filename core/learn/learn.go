// Package learn has the estimators fitted on each group of the ensemble.
package learn

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
)

var (
	// ErrTooFewClasses is returned when a classifier sees a single label.
	ErrTooFewClasses = errors.New("fewer than two distinct labels")

	// ErrNonFinite is returned when a feature or label is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value")

	// ErrShape is returned for ragged or empty inputs.
	ErrShape = errors.New("inconsistent input shape")
)

// Options configures an estimator.
type Options struct {
	Kind      schema.ModelKind
	MaxIter   int     // Epoch cap for iterative solvers
	Tolerance float64 // Relative weight change that counts as converged
	C         float64 // Inverse L2 regularization strength
	Seed      uint64  // Sample order of the stochastic solver
}

// DefaultOptions returns the options used by the ratingfit CLI.
func DefaultOptions() Options {
	return Options{
		Kind:      schema.LogisticModel,
		MaxIter:   contract.DefaultMaxIter,
		Tolerance: contract.DefaultTolerance,
		C:         contract.DefaultC,
	}
}

// FitInfo describes how a fit went.
type FitInfo struct {
	Classes    int
	Iterations int
	Converged  bool
}

// Trainer fits a model on a feature matrix and label vector.
type Trainer interface {
	Fit(x [][]float64, y []float64) (contract.Model, FitInfo, error)
}

// NewTrainer returns the trainer for opts.Kind.
func NewTrainer(opts Options) (Trainer, error) {
	switch opts.Kind {
	case schema.LogisticModel, "":
		if opts.MaxIter <= 0 || opts.Tolerance <= 0 || opts.C <= 0 {
			return nil, fmt.Errorf("invalid solver options: max_iter=%d tol=%g C=%g", opts.MaxIter, opts.Tolerance, opts.C)
		}
		return &LogisticTrainer{opts: opts}, nil
	case schema.LinearModel:
		return &LinearTrainer{}, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", opts.Kind)
	}
}

// WithSeed returns a copy of opts with a different solver seed.
func (o Options) WithSeed(seed uint64) Options {
	o.Seed = seed
	return o
}

// NewSeededRand builds a PCG generator from a single seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// checkInput validates the shape and finiteness of a training set.
func checkInput(x [][]float64, y []float64) (n, d int, err error) {
	n = len(x)
	if n == 0 || n != len(y) {
		return 0, 0, fmt.Errorf("%w: %d rows, %d labels", ErrShape, len(x), len(y))
	}
	d = len(x[0])
	if d == 0 {
		return 0, 0, fmt.Errorf("%w: no features", ErrShape)
	}
	for i, row := range x {
		if len(row) != d {
			return 0, 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), d)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, 0, fmt.Errorf("%w: row %d feature %d", ErrNonFinite, i, j)
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return 0, 0, fmt.Errorf("%w: label of row %d", ErrNonFinite, i)
		}
	}
	return n, d, nil
}
