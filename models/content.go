package models

// MaxBodyChars is the number of characters of visible page text sent for
// classification.
const MaxBodyChars = 1500

// PageContent is what the extraction routine pulls out of the active tab.
// It doubles as the request body for POST /predict.
type PageContent struct {
	// Header is the document title, or the first <h1> when the title is empty.
	Header string `json:"header"`

	// Body is the first MaxBodyChars characters of the page's visible text.
	Body string `json:"body"`
}

// Text joins header and body the way the verification pipeline reads them.
func (p *PageContent) Text() string {
	return p.Header + "\n" + p.Body
}

// LabelFake is the only label the popup renders in the warning colour.
const LabelFake = "Fake"

// Labels produced by the verification pipeline.
const (
	LabelVerified   = "Verified"
	LabelUnverified = "Unverified"
)

// ClassificationResult is the response body of POST /predict.
type ClassificationResult struct {
	Label       string  `json:"label"`
	Percentage  float64 `json:"percentage"`
	Explanation string  `json:"explanation"`
}

// IsFake reports whether the label should be shown as a warning.
func (r *ClassificationResult) IsFake() bool {
	return r.Label == LabelFake
}

// Claim verdicts returned by the verification LLM.
const (
	VerdictLegit    = "legit"
	VerdictNotLegit = "not legit"
)

// ClaimResult is the outcome of checking one factual claim.
type ClaimResult struct {
	Claim       string `json:"claim"`
	Verdict     string `json:"verdict"`
	Explanation string `json:"explanation"`
}

// Legit reports whether the claim was judged legitimate.
func (c ClaimResult) Legit() bool {
	return c.Verdict == VerdictLegit
}
