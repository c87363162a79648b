package learn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Standardizer centers each column on its mean and scales it to unit variance.
type Standardizer struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardizer learns the column statistics of x.
// Constant columns keep a scale of 1 so that they map to zero.
func FitStandardizer(x mat.Matrix) Standardizer {
	n, d := x.Dims()
	s := Standardizer{Mean: make([]float64, d), Scale: make([]float64, d)}
	col := make([]float64, n)
	for j := range d {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		s.Mean[j] = mean
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

// Transform returns a standardized copy of x.
func (s Standardizer) Transform(x mat.Matrix) *mat.Dense {
	n, d := x.Dims()
	out := mat.NewDense(n, d, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return out
}

// TransformRow standardizes a single row in place.
func (s Standardizer) TransformRow(row []float64) {
	for j := range row {
		row[j] = (row[j] - s.Mean[j]) / s.Scale[j]
	}
}

// check verifies a decoded standardizer against the feature count of its model.
func (s Standardizer) check(d int) error {
	if len(s.Mean) != d || len(s.Scale) != d {
		return fmt.Errorf("%w: scaler has %d means and %d scales for %d features", ErrShape, len(s.Mean), len(s.Scale), d)
	}
	for j, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("%w: scaler column %d has zero scale", ErrShape, j)
		}
	}
	return nil
}
