package model

import (
	"testing"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()

	if s.IsFitted() {
		t.Fatal("new StateManager should not be fitted")
	}
	err := s.RequireFitted("LogisticRegression", "Predict")
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}

	s.SetFitted(3, 100)
	if err := s.RequireFitted("LogisticRegression", "Predict"); err != nil {
		t.Errorf("unexpected error after fit: %v", err)
	}
	if f, n := s.Dimensions(); f != 3 || n != 100 {
		t.Errorf("Dimensions() = (%d, %d), want (3, 100)", f, n)
	}

	var dim *errors.DimensionError
	if err := s.RequireFeatures("Predict", 4); !errors.As(err, &dim) {
		t.Errorf("expected DimensionError for wrong width, got %v", err)
	}
	if err := s.RequireFeatures("Predict", 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	s.Reset()
	if s.IsFitted() {
		t.Error("Reset should clear the fitted flag")
	}
}
