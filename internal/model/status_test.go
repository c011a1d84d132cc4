package model

import "testing"

// TestStatusIsTerminal tests terminal state detection.
func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   bool
	}{
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{Status("unknown"), false},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("Status(%q).IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

// TestStatusIsValid tests validation of status filter values.
func TestStatusIsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   bool
	}{
		{StatusRunning, true},
		{StatusCompleted, true},
		{StatusFailed, true},
		{Status(""), false},
		{Status("done"), false},
	}

	for _, tt := range tests {
		if got := tt.status.IsValid(); got != tt.want {
			t.Errorf("Status(%q).IsValid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

// TestScoresIsNormalized tests the score distribution sum check.
func TestScoresIsNormalized(t *testing.T) {
	t.Parallel()

	t.Run("exact sum", func(t *testing.T) {
		t.Parallel()

		s := Scores{Positive: 0.7, Neutral: 0.2, Negative: 0.1}
		if !s.IsNormalized() {
			t.Error("expected distribution summing to 1 to be normalized")
		}
	})

	t.Run("within tolerance", func(t *testing.T) {
		t.Parallel()

		s := Scores{Positive: 0.1, Neutral: 0.2, Negative: 0.7000000001}
		if !s.IsNormalized() {
			t.Error("expected distribution within tolerance to be normalized")
		}
	})

	t.Run("does not sum to 1", func(t *testing.T) {
		t.Parallel()

		s := Scores{Positive: 0.5, Neutral: 0.5, Negative: 0.5}
		if s.IsNormalized() {
			t.Error("expected distribution summing to 1.5 to fail the check")
		}
	})
}

// TestVerdictFailed tests error verdict detection.
func TestVerdictFailed(t *testing.T) {
	t.Parallel()

	ok := Verdict{Content: "text", Label: LabelPositive, Scores: &Scores{Positive: 1}}
	if ok.Failed() {
		t.Error("verdict with a label should not be failed")
	}

	bad := Verdict{Content: "text", Error: "service unavailable"}
	if !bad.Failed() {
		t.Error("verdict with an error should be failed")
	}
}
