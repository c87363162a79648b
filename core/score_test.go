package core

import (
	"testing"

	"github.com/huangsam/ratingfit/core/learn"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{80.5, 81},
		{79.5, 80},
		{80.49, 80},
		{80.0, 80},
		{79.51, 80},
		{-0.5, 0},
		{-1.5, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundHalfUp(tt.in), "RoundHalfUp(%v)", tt.in)
	}
}

func TestScoreGroupAveragesModels(t *testing.T) {
	group := schema.Group{Index: 1, Rows: analysisTable(3).Rows}
	models := []contract.Model{&constModel{value: 80}, &constModel{value: 81}}

	scored, err := ScoreGroup(group, models)
	require.NoError(t, err)
	assert.Equal(t, 1, scored.Index)
	require.Len(t, scored.Rows, 3)
	for i, r := range scored.Rows {
		assert.Equal(t, 81, r.ApproxRating, "mean 80.5 rounds up")
		assert.Equal(t, group.Rows[i].Rating, r.Rating, "true rating is kept")
		assert.Equal(t, group.Rows[i].Player, r.Player)
		assert.Equal(t, 1, r.GroupIndex)
	}
}

func TestScoreGroupNoModels(t *testing.T) {
	_, err := ScoreGroup(schema.Group{Rows: analysisTable(2).Rows}, nil)
	assert.ErrorIs(t, err, schema.ErrInvalidArgument)
}

// brokenModel fails every prediction, or returns too few predictions when short is set.
type brokenModel struct {
	constModel
	short bool
}

func (m *brokenModel) Predict(x [][]float64) ([]float64, error) {
	if m.short {
		return make([]float64, len(x)-1), nil
	}
	return nil, learn.ErrShape
}

func TestScoreGroupModelFailure(t *testing.T) {
	group := schema.Group{Index: 2, Rows: analysisTable(3).Rows}

	_, err := ScoreGroup(group, []contract.Model{&constModel{value: 80}, &brokenModel{}})
	assert.ErrorIs(t, err, schema.ErrTrainingFailure)
	assert.ErrorIs(t, err, learn.ErrShape)
	assert.NotErrorIs(t, err, schema.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "group 2: model 1")

	_, err = ScoreGroup(group, []contract.Model{&brokenModel{short: true}})
	assert.ErrorIs(t, err, schema.ErrTrainingFailure)
}

func TestAggregateOrdersByGroupIndex(t *testing.T) {
	row := func(p string, g int) schema.ScoredRow {
		return schema.ScoredRow{AnalysisRow: schema.AnalysisRow{Player: p}, GroupIndex: g}
	}
	groups := []schema.ScoredGroup{
		{Index: 2, Rows: []schema.ScoredRow{row("e", 2)}},
		{Index: 0, Rows: []schema.ScoredRow{row("a", 0), row("b", 0)}},
		{Index: 1, Rows: []schema.ScoredRow{row("c", 1), row("d", 1)}},
	}

	table := Aggregate(groups)
	players := make([]string, len(table.Rows))
	for i, r := range table.Rows {
		players[i] = r.Player
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, players)
	assert.Equal(t, 2, groups[0].Index, "input order is untouched")
}

func TestOtherModels(t *testing.T) {
	m0, m1, m2, m3 := &constModel{}, &constModel{}, &constModel{}, &constModel{}
	models := []contract.Model{m0, m1, m2, m3}

	assertSameModels(t, []contract.Model{m1, m2, m3}, otherModels(models, 0))
	assertSameModels(t, []contract.Model{m0, m1, m3}, otherModels(models, 2))
}

func assertSameModels(t *testing.T, want, got []contract.Model) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Same(t, want[i], got[i], "model %d", i)
	}
}
