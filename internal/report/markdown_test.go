package report

import (
	"strings"
	"testing"
	"time"

	"github.com/onionwatch/onionwatch/internal/envelope"
	"github.com/onionwatch/onionwatch/internal/model"
)

// testReport builds a report carrying the given verdicts.
func testReport(t *testing.T, verdicts []model.Verdict) *model.Report {
	t.Helper()
	env, err := envelope.EncodeVerdicts(verdicts)
	if err != nil {
		t.Fatalf("EncodeVerdicts() error = %v", err)
	}
	return &model.Report{
		ID:             7,
		ScanID:         3,
		Name:           "market watch",
		CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:         model.StatusCompleted,
		Classification: env,
	}
}

// TestMarkdownExport tests rendering of a completed report.
func TestMarkdownExport(t *testing.T) {
	t.Parallel()

	verdicts := []model.Verdict{
		{
			Content: "Selling access to Acme Corp, RDP with DA",
			Label:   model.LabelPositive,
			Scores:  &model.Scores{Positive: 0.9, Neutral: 0.05, Negative: 0.05},
		},
		{
			Content: "Selling fresh accounts",
			Label:   model.LabelNeutral,
			Scores:  &model.Scores{Neutral: 1.0},
		},
		{
			Content: "Scammer warning",
			Error:   "Failed to classify post: timeout",
		},
	}

	var sb strings.Builder
	if err := NewMarkdownExporter(&sb).Export(testReport(t, verdicts)); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"# Classification Report",
		"market watch",
		"Label Summary",
		"mermaid",
		"Selling access to Acme Corp",
		"0.90 / 0.05 / 0.05",
		"Failed to classify post: timeout",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	// One positive verdict must trigger the caution alert.
	if !strings.Contains(out, "CAUTION") {
		t.Error("expected a caution alert for positive verdicts")
	}
}

// TestMarkdownExportEmpty tests rendering a report with zero verdicts.
func TestMarkdownExportEmpty(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	if err := NewMarkdownExporter(&sb).Export(testReport(t, nil)); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(sb.String(), "no posts to classify") {
		t.Error("expected the empty-scan note")
	}
}

// TestMarkdownExportStates tests the non-success payload states.
func TestMarkdownExportStates(t *testing.T) {
	t.Parallel()

	t.Run("still running", func(t *testing.T) {
		t.Parallel()

		rpt := testReport(t, nil)
		rpt.Status = model.StatusRunning
		rpt.Classification = ""

		var sb strings.Builder
		if err := NewMarkdownExporter(&sb).Export(rpt); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if !strings.Contains(sb.String(), "not completed yet") {
			t.Error("expected the still-running note")
		}
	})

	t.Run("corrupt payload renders a warning", func(t *testing.T) {
		t.Parallel()

		rpt := testReport(t, nil)
		rpt.Classification = "!!garbage!!"

		var sb strings.Builder
		if err := NewMarkdownExporter(&sb).Export(rpt); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if !strings.Contains(sb.String(), "could not be decoded") {
			t.Error("expected the decode warning")
		}
	})

	t.Run("failed job renders its error", func(t *testing.T) {
		t.Parallel()

		rpt := testReport(t, nil)
		rpt.Status = model.StatusFailed
		rpt.Classification = envelope.EncodeJobError("Scan not found")

		var sb strings.Builder
		if err := NewMarkdownExporter(&sb).Export(rpt); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if !strings.Contains(sb.String(), "Scan not found") {
			t.Error("expected the job error in the output")
		}
	})
}

// TestTruncate tests the ellipsis helper.
func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("a very long string indeed", 10); got != "a very ..." {
		t.Errorf("truncate() = %q", got)
	}
}
