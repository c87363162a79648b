package core

import (
	"fmt"
	"math"
	"slices"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
)

const scoreOp = "score"

// RoundHalfUp rounds to the nearest integer with ties going up, so 79.5 becomes 80.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// ScoreGroup predicts every row of the group with each model and rounds the
// mean prediction into the approximate rating. The caller passes the models
// that were not trained on this group. A model that fails to predict, or returns
// the wrong number of predictions, is reported as a TRAINING_FAILURE.
func ScoreGroup(group schema.Group, models []contract.Model) (schema.ScoredGroup, error) {
	if len(models) == 0 {
		return schema.ScoredGroup{}, schema.NewError(schema.InvalidArgument, scoreOp, "group %d: no models to score with", group.Index)
	}

	x, _ := group.Matrix()
	sums := make([]float64, len(x))
	for m, model := range models {
		pred, err := model.Predict(x)
		if err != nil {
			return schema.ScoredGroup{}, schema.WrapError(schema.TrainingFailure, scoreOp,
				fmt.Errorf("group %d: model %d: %w", group.Index, m, err))
		}
		if len(pred) != len(x) {
			return schema.ScoredGroup{}, schema.NewError(schema.TrainingFailure, scoreOp,
				"group %d: model %d returned %d predictions for %d rows", group.Index, m, len(pred), len(x))
		}
		for i, p := range pred {
			sums[i] += p
		}
	}

	out := schema.ScoredGroup{Index: group.Index, Rows: make([]schema.ScoredRow, len(group.Rows))}
	for i, r := range group.Rows {
		out.Rows[i] = schema.ScoredRow{
			AnalysisRow:  r,
			GroupIndex:   group.Index,
			ApproxRating: RoundHalfUp(sums[i] / float64(len(models))),
		}
	}
	return out, nil
}

// Aggregate concatenates the scored groups in group index order.
// Row order inside each group is kept.
func Aggregate(groups []schema.ScoredGroup) schema.FinalTable {
	ordered := slices.Clone(groups)
	slices.SortStableFunc(ordered, func(a, b schema.ScoredGroup) int {
		return a.Index - b.Index
	})

	total := 0
	for _, g := range ordered {
		total += len(g.Rows)
	}
	table := schema.FinalTable{Rows: make([]schema.ScoredRow, 0, total)}
	for _, g := range ordered {
		table.Rows = append(table.Rows, g.Rows...)
	}
	return table
}

// otherModels returns every model except the one at index skip.
func otherModels(models []contract.Model, skip int) []contract.Model {
	out := make([]contract.Model, 0, len(models)-1)
	for j, m := range models {
		if j != skip {
			out = append(out, m)
		}
	}
	return out
}
