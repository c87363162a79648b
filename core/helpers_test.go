package core

import (
	"fmt"
	"sync/atomic"

	"github.com/huangsam/ratingfit/core/learn"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
)

// constModel predicts the same value for every row and counts its calls.
type constModel struct {
	value float64
	calls atomic.Int32
}

var _ contract.Model = &constModel{}

func (m *constModel) Predict(x [][]float64) ([]float64, error) {
	m.calls.Add(1)
	out := make([]float64, len(x))
	for i := range out {
		out[i] = m.value
	}
	return out, nil
}

func (m *constModel) Kind() schema.ModelKind { return "const" }

func (m *constModel) Snapshot() ([]byte, error) {
	return fmt.Appendf(nil, `{"kind":"const","value":%g}`, m.value), nil
}

// meanTrainer fits a constModel that predicts the mean training label.
type meanTrainer struct {
	fail error
}

func (t meanTrainer) Fit(_ [][]float64, y []float64) (contract.Model, learn.FitInfo, error) {
	if t.fail != nil {
		return nil, learn.FitInfo{}, t.fail
	}
	var sum float64
	for _, v := range y {
		sum += v
	}
	return &constModel{value: sum / float64(len(y))}, learn.FitInfo{Iterations: 1, Converged: true}, nil
}

// analysisTable builds n rows with ratings 70, 71, ... and two features.
func analysisTable(n int) schema.AnalysisTable {
	table := schema.AnalysisTable{Features: []string{"PTS", "AST"}}
	for i := range n {
		table.Rows = append(table.Rows, schema.AnalysisRow{
			Player:   fmt.Sprintf("Player %02d", i),
			Features: []float64{float64(10 + i), float64(i % 5)},
			Salary:   float64(i) + 0.5,
			Rating:   70 + i,
		})
	}
	return table
}
