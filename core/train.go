package core

import (
	"errors"
	"math"
	"time"

	"github.com/huangsam/ratingfit/core/learn"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
)

const trainOp = "train"

// TrainGroup fits one model on the rows of a group.
// The rating is the label; the player key never reaches the estimator.
func TrainGroup(group schema.Group, trainer learn.Trainer) (contract.Model, schema.GroupSummary, error) {
	summary := schema.GroupSummary{Index: group.Index, Size: len(group.Rows)}
	if trainer == nil {
		return nil, summary, schema.NewError(schema.InvalidArgument, trainOp, "group %d: no trainer", group.Index)
	}
	if len(group.Rows) == 0 {
		return nil, summary, schema.NewError(schema.InvalidArgument, trainOp, "group %d is empty", group.Index)
	}

	labels := make(map[int]struct{})
	for _, r := range group.Rows {
		labels[r.Rating] = struct{}{}
	}
	summary.Classes = len(labels)
	if len(labels) < 2 {
		return nil, summary, schema.NewError(schema.TrainingFailure, trainOp,
			"group %d has %d distinct rating(s), need at least 2", group.Index, len(labels))
	}

	x, y := group.Matrix()
	for i, row := range x {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, summary, schema.NewError(schema.TrainingFailure, trainOp,
					"group %d player %q has a non-finite feature", group.Index, group.Rows[i].Player)
			}
		}
	}

	start := time.Now()
	model, info, err := trainer.Fit(x, y)
	summary.Duration = time.Since(start)
	summary.Iterations = info.Iterations
	summary.Converged = info.Converged
	if err != nil {
		if errors.Is(err, learn.ErrShape) {
			return nil, summary, schema.WrapError(schema.InvalidArgument, trainOp, err)
		}
		return nil, summary, schema.WrapError(schema.TrainingFailure, trainOp, err)
	}

	log := contract.WithGroup(group.Index).WithField("iterations", info.Iterations)
	if !info.Converged {
		log.Warn("Solver reached the iteration cap without converging")
	} else {
		log.WithField("duration", summary.Duration).Debug("Group model trained")
	}
	return model, summary, nil
}
