package workflow

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassified(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{Validation("op", "bad"), true},
		{&PriceMissingError{ItemNumbers: []int{1}}, true},
		{fmt.Errorf("store: %w", Wrap(ErrConflict, "op", "", nil)), true},
		{Wrap(ErrAnalysisInFlight, "op", "", nil), true},
		{errors.New("disk I/O error"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := Classified(tt.err); got != tt.want {
			t.Errorf("Classified(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
