package apierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", Newf(CodeBadRequest, "bad range %q", "x"), 400},
		{"conflict", ErrConflict, 409},
		{"wrapped 416", fmt.Errorf("stream: %w", NotSatisfiable(10)), 416},
		{"plain", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("copy: %w", Newf(CodeConflict, "%s exists", "/a.txt"))
	if !errors.Is(err, ErrConflict) {
		t.Error("expected errors.Is to match ErrConflict")
	}
	if errors.Is(err, ErrBadRequest) {
		t.Error("conflict should not match bad request")
	}
	if !IsCode(err, CodeConflict) {
		t.Error("IsCode should report conflict")
	}
}

func TestNotSatisfiableCarriesSize(t *testing.T) {
	var e *Error
	if !errors.As(NotSatisfiable(1000), &e) || e.Size != 1000 {
		t.Fatalf("expected size 1000, got %+v", e)
	}
}
