// Package iocache persists ratingfit's sources, fitted models and run history
// in SQLite, MySQL or PostgreSQL.
package iocache

import (
	"sync"

	"github.com/huangsam/ratingfit/internal/contract"
)

// StoreManager manages the source, model and analysis stores of a process.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	source       contract.SourceStore
	model        contract.ModelStore
	analysis     contract.AnalysisStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetSourceStore returns the SourceStore, or nil when runs read CSV files.
func (mgr *StoreManager) GetSourceStore() contract.SourceStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.source
}

// GetModelStore returns the ModelStore.
func (mgr *StoreManager) GetModelStore() contract.ModelStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.model
}

// GetAnalysisStore returns the AnalysisStore.
func (mgr *StoreManager) GetAnalysisStore() contract.AnalysisStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.analysis
}
