package errors

import (
	"errors"
	"strings"
	"testing"
)

// TestRecover_WithPanic tests the Recover function when a panic occurs
func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()

	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}

	if panicErr.Operation != "TestOperation" {
		t.Errorf("Expected operation 'TestOperation', got '%s'", panicErr.Operation)
	}

	if panicErr.PanicValue != "test panic message" {
		t.Errorf("Expected panic value 'test panic message', got '%v'", panicErr.PanicValue)
	}

	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	expectedMsg := "panic in TestOperation: test panic message"
	if panicErr.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, panicErr.Error())
	}
}

// TestRecover_WithoutPanic tests the Recover function when no panic occurs
func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

// TestRecover_KeepsExistingError checks that a panic after an error was set keeps the cause.
func TestRecover_KeepsExistingError(t *testing.T) {
	sentinel := errors.New("original failure")
	testFunc := func() (err error) {
		defer Recover(&err, "Fit")
		err = sentinel
		panic("index out of range")
	}

	err := testFunc()
	if !Is(err, sentinel) {
		t.Errorf("expected wrapped original error, got %v", err)
	}
	if !strings.Contains(err.Error(), "panic in Fit") {
		t.Errorf("expected panic context in %q", err.Error())
	}
}

func TestSafeExecute(t *testing.T) {
	testCases := []struct {
		name          string
		fn            func() error
		expectedInErr string
	}{
		{
			name:          "index panic",
			fn:            func() error { var s []int; _ = s[3]; return nil },
			expectedInErr: "panic in split",
		},
		{
			name:          "error panic",
			fn:            func() error { panic(errors.New("matrix dimension error")) },
			expectedInErr: "matrix dimension error",
		},
		{
			name:          "plain error passes through",
			fn:            func() error { return ErrEmptyData },
			expectedInErr: "empty data",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := SafeExecute("split", tc.fn)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.expectedInErr) {
				t.Errorf("expected %q in %q", tc.expectedInErr, err.Error())
			}
		})
	}
}
