// Package verify decides whether an article is trustworthy. It plans which
// factual claims to check, extracts them one by one, checks each against
// web search results with an LLM, and scores the article by the share of
// claims that hold up.
//
// Every LLM or search failure degrades a single step instead of failing the
// run; only context cancellation aborts it.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/use-agent/truthlens/models"
	"github.com/use-agent/truthlens/search"
)

// Chatter is the LLM. *llm.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Options tunes scoring and claim extraction.
type Options struct {
	// PassThreshold is the legitimacy percentage at or above which the
	// article is labelled Verified.
	PassThreshold float64

	// DuplicateDistance, when positive, also treats a claim whose SimHash
	// is within this distance of an earlier one as a repeat. Zero matches
	// only claims with identical words. A repeat ends extraction.
	DuplicateDistance int
}

// Verifier runs the claim pipeline. It holds no per-run state and is safe
// for concurrent use.
type Verifier struct {
	llm      Chatter
	searcher search.Searcher
	opts     Options
}

func New(llm Chatter, searcher search.Searcher, opts Options) *Verifier {
	if opts.PassThreshold <= 0 {
		opts.PassThreshold = 60
	}
	if opts.DuplicateDistance < 0 {
		opts.DuplicateDistance = 0
	}
	return &Verifier{llm: llm, searcher: searcher, opts: opts}
}

// Report is everything one run produced.
type Report struct {
	Plan        []string
	Claims      []string
	Results     []models.ClaimResult
	Percentage  float64
	Label       string
	Explanation string
}

// Classification is the /predict response for this report.
func (r *Report) Classification() *models.ClassificationResult {
	return &models.ClassificationResult{
		Label:       r.Label,
		Percentage:  r.Percentage,
		Explanation: r.Explanation,
	}
}

// Check verifies page content joined as header, newline, body.
func (v *Verifier) Check(ctx context.Context, content *models.PageContent) (*models.ClassificationResult, error) {
	report, err := v.Verify(ctx, content.Text())
	if err != nil {
		return nil, err
	}
	return report.Classification(), nil
}

// Verify runs the whole pipeline over article.
func (v *Verifier) Verify(ctx context.Context, article string) (*Report, error) {
	r := &Report{}

	r.Plan = v.planClaims(ctx, article)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slog.Debug("claims planned", "topics", len(r.Plan))

	r.Claims = v.extractClaims(ctx, article, r.Plan)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slog.Debug("claims extracted", "claims", len(r.Claims))

	for _, claim := range r.Claims {
		r.Results = append(r.Results, v.verifyClaim(ctx, claim))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	r.Percentage, r.Label = computeScore(r.Results, v.opts.PassThreshold)
	r.Explanation = finalExplanation(r.Results)

	slog.Info("article verified",
		"label", r.Label, "percentage", r.Percentage, "claims", len(r.Results))
	return r, nil
}

const (
	planSystem = "You are an expert fact-checker. Identify which factual claims in an article should be verified."
	planPrompt = "Return a JSON list of factual claim topics that need verification.\n\n" +
		"JSON only:\n" +
		`{"plan": ["claim topic 1", "claim topic 2"]}` + "\n\n" +
		"Article:\n%s"

	extractSystem = "Extract one factual claim at a time. Respond with done when no new claim remains."
	extractPrompt = "Planned claim topics:\n%s\n\n" +
		"Already extracted claims:\n%s\n\n" +
		"Extract the NEXT missing factual claim.\n" +
		"Return JSON:\n" +
		`{"claim": "..."} OR {"done": true}` + "\n\n" +
		"Article:\n%s"

	verifySystem = "You are a strict fact-checker. Explain clearly WHY a claim is legit or not legit."
	verifyPrompt = "Verify the following claim:\n%s\n\n" +
		"Evidence from search results:\n%s\n\n" +
		"Return JSON ONLY:\n" +
		`{"verdict": "legit" or "not legit", "explanation": "A clear, factual explanation referencing the evidence."}`

	verificationFailed = "Verification failed."
)

// planClaims asks for the claim topics. Any failure yields an empty plan.
func (v *Verifier) planClaims(ctx context.Context, article string) []string {
	reply, err := v.llm.Chat(ctx, planSystem, fmt.Sprintf(planPrompt, article))
	if err != nil {
		slog.Warn("plan claims failed", "error", err)
		return nil
	}

	var parsed struct {
		Plan []any `json:"plan"`
	}
	if err := extractJSON(reply, &parsed); err != nil {
		slog.Warn("plan claims: unusable reply", "error", err)
		return nil
	}

	plan := make([]string, 0, len(parsed.Plan))
	for _, topic := range parsed.Plan {
		s, ok := topic.(string)
		if !ok {
			b, _ := json.Marshal(topic)
			s = string(b)
		}
		if s = strings.TrimSpace(s); s != "" {
			plan = append(plan, s)
		}
	}
	return plan
}

// extractClaims pulls claims until there are as many as planned topics, the
// model says done, a step fails, or it repeats a claim.
func (v *Verifier) extractClaims(ctx context.Context, article string, plan []string) []string {
	var claims []string
	seen := newClaimSet(v.opts.DuplicateDistance)
	planJSON := toJSON(plan)

	for len(claims) < len(plan) {
		if ctx.Err() != nil {
			return claims
		}
		reply, err := v.llm.Chat(ctx, extractSystem,
			fmt.Sprintf(extractPrompt, planJSON, toJSON(claims), article))
		if err != nil {
			slog.Warn("extract claim failed", "error", err)
			return claims
		}

		var parsed struct {
			Claim string `json:"claim"`
			Done  bool   `json:"done"`
		}
		if err := extractJSON(reply, &parsed); err != nil || parsed.Done {
			return claims
		}
		claim := strings.TrimSpace(parsed.Claim)
		if claim == "" {
			return claims
		}
		if seen.contains(claim) {
			slog.Debug("repeated claim, stopping extraction", "claim", claim)
			return claims
		}

		claims = append(claims, claim)
		seen.add(claim)
	}
	return claims
}

// verifyClaim searches for evidence and asks for a verdict. A failed LLM step
// counts the claim as not legit.
func (v *Verifier) verifyClaim(ctx context.Context, claim string) models.ClaimResult {
	var results []search.Result
	if v.searcher != nil {
		var err error
		results, err = v.searcher.Search(ctx, claim)
		if err != nil {
			slog.Warn("evidence search failed", "claim", claim, "error", err)
			results = nil
		}
	}

	failed := models.ClaimResult{Claim: claim, Verdict: models.VerdictNotLegit, Explanation: verificationFailed}

	reply, err := v.llm.Chat(ctx, verifySystem,
		fmt.Sprintf(verifyPrompt, claim, search.FormatEvidence(results)))
	if err != nil {
		slog.Warn("verify claim failed", "claim", claim, "error", err)
		return failed
	}

	var parsed struct {
		Verdict     *string `json:"verdict"`
		Explanation string  `json:"explanation"`
	}
	if err := extractJSON(reply, &parsed); err != nil {
		slog.Warn("verify claim: unusable reply", "claim", claim, "error", err)
		return failed
	}

	verdict := models.VerdictNotLegit
	if parsed.Verdict != nil && strings.EqualFold(strings.TrimSpace(*parsed.Verdict), models.VerdictLegit) {
		verdict = models.VerdictLegit
	}
	return models.ClaimResult{Claim: claim, Verdict: verdict, Explanation: parsed.Explanation}
}

// computeScore returns the legit share rounded to two decimals and its
// label. No results at all means the article is Fake.
func computeScore(results []models.ClaimResult, threshold float64) (float64, string) {
	if len(results) == 0 {
		return 0, models.LabelFake
	}

	legit := 0
	for _, r := range results {
		if r.Legit() {
			legit++
		}
	}
	pct := float64(legit) / float64(len(results)) * 100

	label := models.LabelUnverified
	if pct >= threshold {
		label = models.LabelVerified
	}
	return math.Round(pct*100) / 100, label
}

// finalExplanation lists every claim with its reasoning.
func finalExplanation(results []models.ClaimResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Legit() {
			parts = append(parts, fmt.Sprintf("✅ Claim: %s\nWhy it is legit:\n%s\n", r.Claim, r.Explanation))
		} else {
			parts = append(parts, fmt.Sprintf("❌ Claim: %s\nWhy it is not legit:\n%s\n", r.Claim, r.Explanation))
		}
	}
	return strings.Join(parts, "\n")
}

// jsonObject matches from the first '{' to the last '}' in a reply, so
// chatter around the object is ignored.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

var errNoJSON = errors.New("no JSON object in reply")

func extractJSON(reply string, v any) error {
	m := jsonObject.FindString(reply)
	if m == "" {
		return errNoJSON
	}
	return json.Unmarshal([]byte(m), v)
}

func toJSON(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}
