package iocache

import (
	"time"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetSourceStore implements the StoreManager interface.
func (m *MockStoreManager) GetSourceStore() contract.SourceStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.SourceStore)
	return store
}

// GetModelStore implements the StoreManager interface.
func (m *MockStoreManager) GetModelStore() contract.ModelStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ModelStore)
	return store
}

// GetAnalysisStore implements the StoreManager interface.
func (m *MockStoreManager) GetAnalysisStore() contract.AnalysisStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.AnalysisStore)
	return store
}

// MockModelStore is a mock implementation of ModelStore for testing.
type MockModelStore struct {
	mock.Mock
}

var _ contract.ModelStore = &MockModelStore{} // Compile-time check

// Get implements the ModelStore interface.
func (m *MockModelStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the ModelStore interface.
func (m *MockModelStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// GetStatus implements the ModelStore interface.
func (m *MockModelStore) GetStatus() (schema.ModelStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.ModelStoreStatus), args.Error(1)
}

// Close implements the ModelStore interface.
func (m *MockModelStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAnalysisStore is a mock implementation of AnalysisStore for testing.
type MockAnalysisStore struct {
	mock.Mock
}

var _ contract.AnalysisStore = &MockAnalysisStore{} // Compile-time check

// BeginAnalysis implements the AnalysisStore interface.
func (m *MockAnalysisStore) BeginAnalysis(runKey string, startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(runKey, startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndAnalysis implements the AnalysisStore interface.
func (m *MockAnalysisStore) EndAnalysis(analysisID int64, endTime time.Time, summary schema.RunSummary) error {
	args := m.Called(analysisID, endTime, summary)
	return args.Error(0)
}

// RecordScoredRows implements the AnalysisStore interface.
func (m *MockAnalysisStore) RecordScoredRows(analysisID int64, rows []schema.ScoredRow) error {
	args := m.Called(analysisID, rows)
	return args.Error(0)
}

// GetStatus implements the AnalysisStore interface.
func (m *MockAnalysisStore) GetStatus() (schema.AnalysisStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.AnalysisStatus), args.Error(1)
}

// GetAllAnalysisRuns implements the AnalysisStore interface.
func (m *MockAnalysisStore) GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.AnalysisRunRecord)
	return records, args.Error(1)
}

// GetAllScoredRows implements the AnalysisStore interface.
func (m *MockAnalysisStore) GetAllScoredRows() ([]schema.ScoredRowRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.ScoredRowRecord)
	return records, args.Error(1)
}

// Close implements the AnalysisStore interface.
func (m *MockAnalysisStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
