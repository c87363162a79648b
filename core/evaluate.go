package core

import (
	"math"

	"github.com/huangsam/ratingfit/schema"
	"gonum.org/v1/gonum/stat"
)

// Evaluate compares the approximate ratings of the final table with the true ratings.
// Pearson is 0 when either column is constant.
func Evaluate(table schema.FinalTable) schema.Evaluation {
	n := len(table.Rows)
	ev := schema.Evaluation{Rows: n}
	if n == 0 {
		return ev
	}

	truth := make([]float64, n)
	approx := make([]float64, n)
	var absSum, sqSum float64
	for i, r := range table.Rows {
		truth[i] = float64(r.Rating)
		approx[i] = float64(r.ApproxRating)
		d := r.Delta()
		switch {
		case d == 0:
			ev.Exact++
			ev.WithinOne++
		case d == 1 || d == -1:
			ev.WithinOne++
		}
		absSum += math.Abs(float64(d))
		sqSum += float64(d * d)
	}

	ev.Accuracy = float64(ev.Exact) / float64(n)
	ev.WithinOneRate = float64(ev.WithinOne) / float64(n)
	ev.MAE = absSum / float64(n)
	ev.RMSE = math.Sqrt(sqSum / float64(n))
	if n > 1 {
		if corr := stat.Correlation(truth, approx, nil); !math.IsNaN(corr) && !math.IsInf(corr, 0) {
			ev.Pearson = corr
		}
	}
	return ev
}
