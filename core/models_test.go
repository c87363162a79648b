package core

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/huangsam/ratingfit/core/learn"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/iocache"
	"github.com/huangsam/ratingfit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRunModels(t *testing.T) {
	first, err := (&learn.LinearModel{Offset: 70, Coeffs: []float64{1}}).Snapshot()
	require.NoError(t, err)
	second, err := (&learn.LinearModel{Offset: 80, Coeffs: []float64{2}}).Snapshot()
	require.NoError(t, err)

	store := &iocache.MockModelStore{}
	store.On("Get", contract.ModelKey("run-1", 0)).Return(first, modelSnapshotVersion, int64(1700000000), nil)
	store.On("Get", contract.ModelKey("run-1", 1)).Return(second, modelSnapshotVersion, int64(1700000001), nil)
	store.On("Get", contract.ModelKey("run-1", 2)).Return(nil, 0, int64(0), sql.ErrNoRows)

	models, err := LoadRunModels(store, "run-1")
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, 1, models[1].Group)
	assert.Equal(t, int64(1700000001), models[1].StoredAt.Unix())
	assert.Equal(t, schema.LinearModel, models[0].Model.Kind())

	pred, err := models[1].Model.Predict([][]float64{{3}})
	require.NoError(t, err)
	assert.InDelta(t, 86.0, pred[0], 1e-9)
	store.AssertExpectations(t)
}

func TestLoadRunModelsErrors(t *testing.T) {
	_, err := LoadRunModels(nil, "run-1")
	assert.ErrorIs(t, err, ErrNoModelStore)

	missing := &iocache.MockModelStore{}
	missing.On("Get", contract.ModelKey("run-1", 0)).Return(nil, 0, int64(0), sql.ErrNoRows)
	_, err = LoadRunModels(missing, "run-1")
	assert.ErrorContains(t, err, "no models stored for run run-1")

	stale := &iocache.MockModelStore{}
	stale.On("Get", contract.ModelKey("run-1", 0)).Return([]byte(`{"kind":"linear"}`), 2, int64(0), nil)
	_, err = LoadRunModels(stale, "run-1")
	assert.ErrorContains(t, err, "snapshot version 2")

	broken := &iocache.MockModelStore{}
	broken.On("Get", contract.ModelKey("run-1", 0)).Return(nil, 0, int64(0), errors.New("connection reset"))
	_, err = LoadRunModels(broken, "run-1")
	assert.ErrorContains(t, err, "connection reset")
}
