package model

import "math"

// Item is one post extracted from a marketplace listing. Items are not
// persisted on their own; a Scan's decoded result is a list of Items.
//
// The JSON tags define the wire shape stored inside the result envelope.
// Content holds the post body base64-encoded, matching the stored form:
// bodies are fetched from untrusted pages and may contain arbitrary text,
// so they travel encoded until a consumer explicitly decodes them.
type Item struct {
	// Title is the post title from the listing table.
	Title string `json:"title"`

	// Category is the normalized category label from the listing table.
	Category string `json:"category"`

	// Date is the raw date string from the listing table. It is kept
	// verbatim because marketplaces use inconsistent date formats.
	Date string `json:"date"`

	// Link is the absolute URL of the post's detail page.
	Link string `json:"link"`

	// Content is the base64-encoded post body, or the encoded placeholder
	// error body when the detail fetch failed.
	Content string `json:"content"`
}

// Classification labels. The classifier is constrained to answer with
// exactly one of these three values.
const (
	// LabelPositive marks posts selling initial access to a company.
	LabelPositive = "Positive"

	// LabelNeutral marks posts selling unrelated items.
	LabelNeutral = "Neutral"

	// LabelNegative marks warnings, complaints, and general posts.
	LabelNegative = "Negative"
)

// scoreTolerance is the allowed floating-point deviation when checking
// that a score distribution sums to 1.
const scoreTolerance = 1e-6

// Scores is the three-way probability distribution returned by the
// classifier. A well-formed distribution sums to 1 within tolerance.
type Scores struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// IsNormalized reports whether the distribution sums to 1 within
// floating-point tolerance.
func (s Scores) IsNormalized() bool {
	return math.Abs(s.Positive+s.Neutral+s.Negative-1) < scoreTolerance
}

// Verdict is one item's classification outcome. Classification failures are
// per-item data, not pipeline faults: a failed service call yields a Verdict
// with an empty Label, nil Scores, and a populated Error.
type Verdict struct {
	// Content is the decoded post body the verdict was produced for,
	// kept for traceability.
	Content string `json:"content"`

	// Label is one of the three classification labels, or empty when
	// classification failed for this item.
	Label string `json:"classification"`

	// Scores is the probability distribution, or nil on failure.
	Scores *Scores `json:"scores"`

	// Error describes the per-item failure, empty on success.
	Error string `json:"error,omitempty"`
}

// Failed reports whether this verdict represents a per-item classification
// failure rather than a real label.
func (v Verdict) Failed() bool {
	return v.Error != ""
}
