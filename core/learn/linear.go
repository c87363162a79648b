package learn

import (
	"encoding/json"
	"fmt"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
	"github.com/sajari/regression"
)

// LinearTrainer fits an ordinary least squares model.
type LinearTrainer struct{}

// LinearModel predicts a continuous rating as an affine function of the features.
type LinearModel struct {
	Offset  float64
	Coeffs  []float64
	R2      float64
	Formula string
}

var _ contract.Model = &LinearModel{}

// Fit solves the least squares problem with sajari/regression.
func (t *LinearTrainer) Fit(x [][]float64, y []float64) (contract.Model, FitInfo, error) {
	_, d, err := checkInput(x, y)
	if err != nil {
		return nil, FitInfo{}, err
	}

	var r regression.Regression
	r.SetObserved("rating")
	for j := range d {
		r.SetVar(j, fmt.Sprintf("x%d", j))
	}
	for i := range x {
		r.Train(regression.DataPoint(y[i], x[i]))
	}
	if err := r.Run(); err != nil {
		return nil, FitInfo{}, fmt.Errorf("least squares: %w", err)
	}

	coeffs := r.GetCoeffs()
	if len(coeffs) != d+1 || !finite(coeffs) {
		return nil, FitInfo{}, fmt.Errorf("%w: singular design matrix", ErrNonFinite)
	}
	model := &LinearModel{
		Offset:  coeffs[0],
		Coeffs:  coeffs[1:],
		R2:      r.R2,
		Formula: r.Formula,
	}
	return model, FitInfo{Classes: len(distinct(y)), Iterations: 1, Converged: true}, nil
}

// Predict evaluates the fitted affine function on each row.
func (m *LinearModel) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, xi := range x {
		if len(xi) != len(m.Coeffs) {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(xi), len(m.Coeffs))
		}
		v := m.Offset
		for j, c := range m.Coeffs {
			v += c * xi[j]
		}
		out[i] = v
	}
	return out, nil
}

// Kind returns schema.LinearModel.
func (m *LinearModel) Kind() schema.ModelKind {
	return schema.LinearModel
}

type linearSnapshot struct {
	Kind    schema.ModelKind `json:"kind"`
	Offset  float64          `json:"offset"`
	Coeffs  []float64        `json:"coeffs"`
	R2      float64          `json:"r2"`
	Formula string           `json:"formula"`
}

// Snapshot encodes the model as JSON.
func (m *LinearModel) Snapshot() ([]byte, error) {
	return json.Marshal(linearSnapshot{
		Kind:    m.Kind(),
		Offset:  m.Offset,
		Coeffs:  m.Coeffs,
		R2:      m.R2,
		Formula: m.Formula,
	})
}

// LoadModel decodes any snapshot written by a ratingfit model.
func LoadModel(data []byte) (contract.Model, error) {
	var head struct {
		Kind schema.ModelKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Kind {
	case schema.LogisticModel:
		return LoadLogisticModel(data)
	case schema.LinearModel:
		var snap linearSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, err
		}
		if len(snap.Coeffs) == 0 {
			return nil, fmt.Errorf("%w: linear snapshot has no coefficients", ErrShape)
		}
		return &LinearModel{Offset: snap.Offset, Coeffs: snap.Coeffs, R2: snap.R2, Formula: snap.Formula}, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", head.Kind)
	}
}
