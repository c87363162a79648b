package learn

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogisticTrainer fits an L2-penalized multinomial logistic regression with SAGA.
type LogisticTrainer struct {
	opts Options
}

// LogisticModel is a fitted multinomial logistic regression.
type LogisticModel struct {
	Classes   []float64
	Weights   *mat.Dense // One row per class
	Intercept []float64
	Scaler    Standardizer
}

var _ contract.Model = &LogisticModel{}

// Fit runs SAGA over standardized features until the relative weight change of an
// epoch drops below the tolerance or the epoch cap is reached.
func (t *LogisticTrainer) Fit(x [][]float64, y []float64) (contract.Model, FitInfo, error) {
	n, d, err := checkInput(x, y)
	if err != nil {
		return nil, FitInfo{}, err
	}

	classes := distinct(y)
	k := len(classes)
	if k < 2 {
		return nil, FitInfo{Classes: k}, fmt.Errorf("%w: only %v", ErrTooFewClasses, classes)
	}
	label := make([]int, n)
	for i, v := range y {
		label[i], _ = slices.BinarySearch(classes, v)
	}

	raw := mat.NewDense(n, d, nil)
	for i, row := range x {
		raw.SetRow(i, row)
	}
	scaler := FitStandardizer(raw)
	xs := scaler.Transform(raw)

	alpha := 1 / (t.opts.C * float64(n))
	step := sagaStepSize(xs, alpha, n)

	w := mat.NewDense(k, d, nil)
	b := make([]float64, k)
	prevW := mat.NewDense(k, d, nil)
	prevB := make([]float64, k)

	memory := mat.NewDense(n, k, nil) // Last residual seen for each sample
	sumGrad := mat.NewDense(k, d, nil)
	sumGradB := make([]float64, k)
	seen := make([]bool, n)
	numSeen := 0

	rng := NewSeededRand(t.opts.Seed)
	z := make([]float64, k)
	residual := make([]float64, k)
	delta := make([]float64, k)

	info := FitInfo{Classes: k}
	for epoch := 1; epoch <= t.opts.MaxIter; epoch++ {
		prevW.Copy(w)
		copy(prevB, b)

		for range n {
			i := rng.IntN(n)
			xi := xs.RawRowView(i)
			if !seen[i] {
				seen[i] = true
				numSeen++
			}

			softmax(w, b, xi, z)
			copy(residual, z)
			residual[label[i]]--

			mem := memory.RawRowView(i)
			floats.SubTo(delta, residual, mem)
			copy(mem, residual)

			inv := 1 / float64(numSeen)
			for c := range k {
				wc := w.RawRowView(c)
				gc := sumGrad.RawRowView(c)
				floats.Scale(1-step*alpha, wc)
				floats.AddScaled(wc, -step*delta[c], xi)
				floats.AddScaled(wc, -step*inv, gc)
				floats.AddScaled(gc, delta[c], xi)

				b[c] -= step * (delta[c] + sumGradB[c]*inv)
				sumGradB[c] += delta[c]
			}
		}

		info.Iterations = epoch
		if relativeChange(w, prevW, b, prevB) <= t.opts.Tolerance {
			info.Converged = true
			break
		}
	}

	model := &LogisticModel{Classes: classes, Weights: w, Intercept: b, Scaler: scaler}
	if !finite(w.RawMatrix().Data) || !finite(b) {
		return nil, info, fmt.Errorf("%w: solver diverged", ErrNonFinite)
	}
	return model, info, nil
}

// sagaStepSize is the automatic SAGA step for a multinomial loss with intercept.
func sagaStepSize(xs *mat.Dense, alpha float64, n int) float64 {
	var maxSq float64
	rows, _ := xs.Dims()
	for i := range rows {
		row := xs.RawRowView(i)
		maxSq = math.Max(maxSq, floats.Dot(row, row))
	}
	lipschitz := 0.5*(maxSq+1) + alpha
	mun := math.Min(2*float64(n)*alpha, lipschitz)
	return 1 / (2*lipschitz + mun)
}

// softmax writes the class probabilities of xi into out.
func softmax(w *mat.Dense, b, xi, out []float64) {
	scores := mat.NewVecDense(len(out), out)
	scores.MulVec(w, mat.NewVecDense(len(xi), xi))
	floats.Add(out, b)
	lse := floats.LogSumExp(out)
	for c := range out {
		out[c] = math.Exp(out[c] - lse)
	}
}

// relativeChange is max|w - prev| over max|w|, intercepts included.
func relativeChange(w, prevW *mat.Dense, b, prevB []float64) float64 {
	var maxChange, maxWeight float64
	wd, pd := w.RawMatrix().Data, prevW.RawMatrix().Data
	for i := range wd {
		maxChange = math.Max(maxChange, math.Abs(wd[i]-pd[i]))
		maxWeight = math.Max(maxWeight, math.Abs(wd[i]))
	}
	for i := range b {
		maxChange = math.Max(maxChange, math.Abs(b[i]-prevB[i]))
		maxWeight = math.Max(maxWeight, math.Abs(b[i]))
	}
	if maxWeight == 0 {
		return 0
	}
	return maxChange / maxWeight
}

// Predict returns the most probable class for each row.
func (m *LogisticModel) Predict(x [][]float64) ([]float64, error) {
	k, d := m.Weights.Dims()
	out := make([]float64, len(x))
	row := make([]float64, d)
	z := make([]float64, k)
	for i, xi := range x {
		if len(xi) != d {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(xi), d)
		}
		copy(row, xi)
		m.Scaler.TransformRow(row)
		softmax(m.Weights, m.Intercept, row, z)
		out[i] = m.Classes[floats.MaxIdx(z)]
	}
	return out, nil
}

// Kind returns schema.LogisticModel.
func (m *LogisticModel) Kind() schema.ModelKind {
	return schema.LogisticModel
}

type logisticSnapshot struct {
	Kind      schema.ModelKind `json:"kind"`
	Classes   []float64        `json:"classes"`
	Weights   [][]float64      `json:"weights"`
	Intercept []float64        `json:"intercept"`
	Scaler    Standardizer     `json:"scaler"`
}

// Snapshot encodes the model as JSON.
func (m *LogisticModel) Snapshot() ([]byte, error) {
	k, _ := m.Weights.Dims()
	weights := make([][]float64, k)
	for c := range k {
		weights[c] = mat.Row(nil, c, m.Weights)
	}
	return json.Marshal(logisticSnapshot{
		Kind:      m.Kind(),
		Classes:   m.Classes,
		Weights:   weights,
		Intercept: m.Intercept,
		Scaler:    m.Scaler,
	})
}

// LoadLogisticModel decodes a snapshot produced by LogisticModel.Snapshot.
func LoadLogisticModel(data []byte) (*LogisticModel, error) {
	var snap logisticSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.Kind != schema.LogisticModel || len(snap.Weights) == 0 || len(snap.Weights) != len(snap.Classes) {
		return nil, fmt.Errorf("%w: not a logistic snapshot", ErrShape)
	}
	d := len(snap.Weights[0])
	w := mat.NewDense(len(snap.Weights), d, nil)
	for c, row := range snap.Weights {
		if len(row) != d {
			return nil, fmt.Errorf("%w: weight row %d", ErrShape, c)
		}
		w.SetRow(c, row)
	}
	if len(snap.Intercept) != len(snap.Classes) {
		return nil, fmt.Errorf("%w: %d intercepts for %d classes", ErrShape, len(snap.Intercept), len(snap.Classes))
	}
	if err := snap.Scaler.check(d); err != nil {
		return nil, err
	}
	return &LogisticModel{Classes: snap.Classes, Weights: w, Intercept: snap.Intercept, Scaler: snap.Scaler}, nil
}

func distinct(y []float64) []float64 {
	out := slices.Clone(y)
	slices.Sort(out)
	return slices.Compact(out)
}

func finite(v []float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
