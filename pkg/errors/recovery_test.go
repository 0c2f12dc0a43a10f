package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "CountPlot")
		panic("font not found")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "CountPlot" {
		t.Errorf("Expected operation 'CountPlot', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if got := panicErr.Error(); got != "panic in CountPlot: font not found" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "CountPlot")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	original := fmt.Errorf("render failed")
	testFunc := func() (err error) {
		defer Recover(&err, "Save")
		err = original
		panic("boom")
	}

	err := testFunc()
	if !errors.Is(err, original) {
		t.Errorf("expected original error to be wrapped, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected panic value in message, got %v", err)
	}
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name      string
		fn        func() error
		wantErr   bool
		wantPanic bool
	}{
		{"success", func() error { return nil }, false, false},
		{"function error", func() error { return fmt.Errorf("bad") }, true, false},
		{"panic", func() error { panic("index out of range") }, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("op", tt.fn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SafeExecute() error = %v, wantErr %v", err, tt.wantErr)
			}
			var panicErr *PanicError
			if errors.As(err, &panicErr) != tt.wantPanic {
				t.Errorf("PanicError = %v, want %v", panicErr != nil, tt.wantPanic)
			}
		})
	}
}

func TestPanicError_UnwrapAndFormat(t *testing.T) {
	cause := fmt.Errorf("mat: dimension mismatch")
	err := SafeExecute("Mul", func() error { panic(cause) })

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(%v, cause) = false, want true", err)
	}
	if got := fmt.Sprintf("%v", err); got != "panic in Mul: mat: dimension mismatch" {
		t.Errorf("%%v = %q", got)
	}
	if got := fmt.Sprintf("%+v", err); !strings.Contains(got, "goroutine") {
		t.Errorf("%%+v should include the stack trace, got %q", got)
	}

	plain := NewPanicError("op", "text")
	if plain.Unwrap() != nil {
		t.Errorf("Unwrap() of a non-error panic = %v, want nil", plain.Unwrap())
	}
}
