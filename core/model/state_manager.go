// Package model provides the estimator interfaces and fitted-state tracking
// shared by churnkit models and transformers.
package model

import (
	"sync"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// StateManager tracks whether a model has been fitted and the data shape it
// saw, guarded by a RWMutex. Models hold it by composition.
type StateManager struct {
	mu        sync.RWMutex
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager creates an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted records a successful fit on nSamples x nFeatures data.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset returns to the unfitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// Dimensions returns the number of features and samples seen during fitting.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError naming modelName and method when
// the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// RequireFeatures checks that X has the feature width seen during fitting.
func (s *StateManager) RequireFeatures(op string, cols int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cols != s.nFeatures {
		return errors.NewDimensionError(op, s.nFeatures, cols, 1)
	}
	return nil
}
