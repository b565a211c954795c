package domain

import "testing"

func TestAggregateProgress(t *testing.T) {
	tests := []struct {
		name             string
		total, validated int
		wantProgress     int
		wantStatus       ActionStatus
	}{
		{"no children", 0, 0, 100, StatusValidated},
		{"none validated", 3, 0, 0, StatusInProgress},
		{"two of three", 3, 2, 66, StatusInProgress},
		{"one of three", 3, 1, 33, StatusInProgress},
		{"all validated held at 99", 3, 3, 99, StatusPendingValidation},
		{"single child validated", 1, 1, 99, StatusPendingValidation},
		{"99 of 100", 100, 99, 99, StatusInProgress},
		{"validated overflow clamped", 2, 5, 99, StatusPendingValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress, status := AggregateProgress(tt.total, tt.validated)
			if progress != tt.wantProgress {
				t.Errorf("Expected progress %d, got %d", tt.wantProgress, progress)
			}
			if status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, status)
			}
		})
	}
}

func TestAggregateProgressIsFloor(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for v := 0; v < n; v++ {
			progress, _ := AggregateProgress(n, v)
			if want := (100 * v) / n; progress != want {
				t.Errorf("AggregateProgress(%d, %d) = %d, want %d", n, v, progress, want)
			}
		}
	}
}
