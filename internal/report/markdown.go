package report

import (
	"errors"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/onionwatch/onionwatch/internal/envelope"
	"github.com/onionwatch/onionwatch/internal/model"
)

// MarkdownExporter renders a classification job as markdown.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownExporter struct {
	output io.Writer
}

// NewMarkdownExporter creates an exporter that writes to output.
func NewMarkdownExporter(output io.Writer) *MarkdownExporter {
	return &MarkdownExporter{output: output}
}

// labelCounts aggregates verdicts per label for the summary sections.
type labelCounts struct {
	positive int
	neutral  int
	negative int
	failed   int
	other    int
}

// countLabels tallies verdicts by label.
func countLabels(verdicts []model.Verdict) labelCounts {
	var c labelCounts
	for _, v := range verdicts {
		switch {
		case v.Failed():
			c.failed++
		case v.Label == model.LabelPositive:
			c.positive++
		case v.Label == model.LabelNeutral:
			c.neutral++
		case v.Label == model.LabelNegative:
			c.negative++
		default:
			c.other++
		}
	}
	return c
}

// Export renders the report. The classification envelope is decoded here;
// a malformed one produces a warning section in the output rather than an
// export failure.
func (e *MarkdownExporter) Export(rpt *model.Report) error {
	md := markdown.NewMarkdown(e.output)

	e.writeHeader(md, rpt)

	payload, err := envelope.DecodeVerdicts(rpt.Classification)
	switch {
	case errors.Is(err, envelope.ErrNoResult):
		md.Note("The classification has not completed yet. Re-export once the job reaches a terminal status.")
		md.PlainText("")
	case err != nil:
		md.Warningf("The stored classification payload could not be decoded: %v", err)
		md.PlainText("")
	case payload.Error != "":
		md.Cautionf("The classification job failed: %s", payload.Error)
		md.PlainText("")
	default:
		e.writeSummary(md, payload.Posts)
		e.writeVerdicts(md, payload.Posts)
	}

	e.writeFooter(md)
	return md.Build()
}

// writeHeader writes the job metadata table.
func (e *MarkdownExporter) writeHeader(md *markdown.Markdown, rpt *model.Report) {
	md.H1("Classification Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Report", strconv.FormatInt(rpt.ID, 10)},
			{"Scan", strconv.FormatInt(rpt.ScanID, 10)},
			{"Name", rpt.Name},
			{"Created", rpt.CreatedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", string(rpt.Status)},
		},
	})
	md.PlainText("")
}

// writeSummary writes label counts, a distribution chart, and the alert.
func (e *MarkdownExporter) writeSummary(md *markdown.Markdown, verdicts []model.Verdict) {
	md.H2("Label Summary")
	md.PlainText("")

	c := countLabels(verdicts)
	md.Table(markdown.TableSet{
		Header: []string{"Label", "Count"},
		Rows: [][]string{
			{"🔴 Positive (initial access)", strconv.Itoa(c.positive)},
			{"🟡 Neutral (unrelated sales)", strconv.Itoa(c.neutral)},
			{"🔵 Negative (warnings/complaints)", strconv.Itoa(c.negative)},
			{"⚪ Not classified", strconv.Itoa(c.failed + c.other)},
			{"**Total**", "**" + strconv.Itoa(len(verdicts)) + "**"},
		},
	})
	md.PlainText("")

	if len(verdicts) > 0 {
		e.writePieChart(md, c)
	}

	switch {
	case c.positive > 0:
		md.Cautionf("%d post(s) classified as selling initial access.", c.positive)
	case len(verdicts) == 0:
		md.Note("The source scan yielded no posts to classify.")
	default:
		md.Tip("No initial-access listings detected.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the label distribution.
func (e *MarkdownExporter) writePieChart(md *markdown.Markdown, c labelCounts) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Label Distribution"),
		piechart.WithShowData(true),
	)

	if c.positive > 0 {
		chart.LabelAndIntValue("Positive", uint64(c.positive))
	}
	if c.neutral > 0 {
		chart.LabelAndIntValue("Neutral", uint64(c.neutral))
	}
	if c.negative > 0 {
		chart.LabelAndIntValue("Negative", uint64(c.negative))
	}
	if n := c.failed + c.other; n > 0 {
		chart.LabelAndIntValue("Not classified", uint64(n))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeVerdicts writes the per-post verdict table.
func (e *MarkdownExporter) writeVerdicts(md *markdown.Markdown, verdicts []model.Verdict) {
	md.H2("Verdicts")
	md.PlainText("")

	if len(verdicts) == 0 {
		md.PlainText("No posts were classified.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(verdicts))
	for i, v := range verdicts {
		label := v.Label
		if v.Failed() {
			label = "error"
		}
		scores := "-"
		if v.Scores != nil {
			scores = formatScores(*v.Scores)
		}
		note := v.Error
		if note == "" {
			note = "-"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			label,
			scores,
			truncate(v.Content, 80),
			truncate(note, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Label", "Scores (P/N/N)", "Post", "Note"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the document footer.
func (e *MarkdownExporter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by onionwatch*")
}

// formatScores renders a score distribution as "0.90 / 0.05 / 0.05".
func formatScores(s model.Scores) string {
	return strconv.FormatFloat(s.Positive, 'f', 2, 64) + " / " +
		strconv.FormatFloat(s.Neutral, 'f', 2, 64) + " / " +
		strconv.FormatFloat(s.Negative, 'f', 2, 64)
}

// truncate shortens a string to maxLen characters with ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
