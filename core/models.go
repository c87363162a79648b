package core

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/ratingfit/core/learn"
	"github.com/huangsam/ratingfit/internal/contract"
)

// ErrNoModelStore is returned when a command needs the model store but none is configured.
var ErrNoModelStore = errors.New("model store is not configured")

// StoredModel is a group model decoded from the model store.
type StoredModel struct {
	Group    int
	Version  int
	StoredAt time.Time
	Model    contract.Model
}

// LoadRunModels reads back the group models of a run in group order.
// Groups are probed from 0 until the first missing key.
func LoadRunModels(store contract.ModelStore, runKey string) ([]StoredModel, error) {
	if store == nil {
		return nil, ErrNoModelStore
	}

	var models []StoredModel
	for i := 0; ; i++ {
		data, version, ts, err := store.Get(contract.ModelKey(runKey, i))
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read model of group %d: %w", i, err)
		}
		if version != modelSnapshotVersion {
			return nil, fmt.Errorf("model of group %d has snapshot version %d, want %d", i, version, modelSnapshotVersion)
		}
		m, err := learn.LoadModel(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode model of group %d: %w", i, err)
		}
		models = append(models, StoredModel{Group: i, Version: version, StoredAt: time.Unix(ts, 0), Model: m})
	}

	if len(models) == 0 {
		return nil, fmt.Errorf("no models stored for run %s", runKey)
	}
	return models, nil
}
