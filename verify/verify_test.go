package verify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/use-agent/truthlens/models"
	"github.com/use-agent/truthlens/search"
)

// scriptedLLM answers by prompt kind. Each kind has a queue of replies; an
// empty queue answers with err.
type scriptedLLM struct {
	mu      sync.Mutex
	replies map[string][]string
	err     error
	calls   map[string]int
	prompts []string
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{replies: map[string][]string{}, calls: map[string]int{}}
}

func (s *scriptedLLM) on(system string, replies ...string) *scriptedLLM {
	s.replies[system] = append(s.replies[system], replies...)
	return s
}

func (s *scriptedLLM) Chat(ctx context.Context, system, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[system]++
	s.prompts = append(s.prompts, user)
	q := s.replies[system]
	if len(q) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", errors.New("no scripted reply")
	}
	s.replies[system] = q[1:]
	return q[0], nil
}

type fakeSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func TestVerify_FullPipeline(t *testing.T) {
	llm := newScriptedLLM().
		on(planSystem, "Sure! Here it is:\n```json\n{\"plan\": [\"moon material\", \"landing year\", \"crew\"]}\n```").
		on(extractSystem,
			`{"claim": "The moon is made of cheese"}`,
			`{"claim": "Apollo 11 landed in 1969"}`,
			`{"claim": "Three astronauts flew Apollo 11"}`,
		).
		on(verifySystem,
			`{"verdict": "not legit", "explanation": "Rock samples say otherwise."}`,
			`{"verdict": "legit", "explanation": "NASA records confirm."}`,
			`{"verdict": "Legit", "explanation": "Well documented."}`,
		)
	searcher := &fakeSearcher{results: []search.Result{{Title: "NASA", Content: "evidence text"}}}

	report, err := New(llm, searcher, Options{PassThreshold: 60}).
		Verify(context.Background(), "Moon\nThe moon is cheese.")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if len(report.Plan) != 3 || len(report.Claims) != 3 {
		t.Fatalf("plan = %v, claims = %v", report.Plan, report.Claims)
	}
	if report.Percentage != 66.67 || report.Label != models.LabelVerified {
		t.Errorf("score = %v %s, want 66.67 Verified", report.Percentage, report.Label)
	}
	if len(searcher.queries) != 3 || searcher.queries[1] != "Apollo 11 landed in 1969" {
		t.Errorf("search queries = %v", searcher.queries)
	}

	want := "❌ Claim: The moon is made of cheese\nWhy it is not legit:\nRock samples say otherwise.\n" +
		"\n" +
		"✅ Claim: Apollo 11 landed in 1969\nWhy it is legit:\nNASA records confirm.\n" +
		"\n" +
		"✅ Claim: Three astronauts flew Apollo 11\nWhy it is legit:\nWell documented.\n"
	if report.Explanation != want {
		t.Errorf("explanation =\n%q\nwant\n%q", report.Explanation, want)
	}

	last := llm.prompts[len(llm.prompts)-1]
	if !strings.Contains(last, "evidence text") {
		t.Errorf("verify prompt missing evidence: %q", last)
	}
}

func TestVerify_EmptyPlanIsFake(t *testing.T) {
	llm := newScriptedLLM().on(planSystem, `{"plan": []}`)

	report, err := New(llm, &fakeSearcher{}, Options{}).Verify(context.Background(), "x")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Label != models.LabelFake || report.Percentage != 0 || report.Explanation != "" {
		t.Errorf("report = %+v, want Fake 0 with empty explanation", report)
	}
	if llm.calls[extractSystem] != 0 {
		t.Errorf("extract called %d times with an empty plan", llm.calls[extractSystem])
	}
}

func TestVerify_LLMDownDegradesToFake(t *testing.T) {
	llm := newScriptedLLM()
	llm.err = errors.New("connection refused")

	result, err := New(llm, nil, Options{}).Check(context.Background(), &models.PageContent{Header: "H", Body: "B"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Label != models.LabelFake || result.Percentage != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestVerify_CheckJoinsHeaderAndBody(t *testing.T) {
	llm := newScriptedLLM().on(planSystem, `{"plan": []}`)

	if _, err := New(llm, nil, Options{}).Check(context.Background(), &models.PageContent{Header: "Title", Body: "Body"}); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !strings.HasSuffix(llm.prompts[0], "Article:\nTitle\nBody") {
		t.Errorf("plan prompt = %q", llm.prompts[0])
	}
}

func TestExtractClaims_StopsOnDone(t *testing.T) {
	llm := newScriptedLLM().
		on(planSystem, `{"plan": ["a", "b", "c"]}`).
		on(extractSystem, `{"claim": "first claim here"}`, `{"done": true}`).
		on(verifySystem, `{"verdict": "legit", "explanation": "ok"}`)

	report, err := New(llm, &fakeSearcher{}, Options{}).Verify(context.Background(), "x")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(report.Claims) != 1 || llm.calls[extractSystem] != 2 {
		t.Errorf("claims = %v, extract calls = %d", report.Claims, llm.calls[extractSystem])
	}
	if report.Percentage != 100 || report.Label != models.LabelVerified {
		t.Errorf("score = %v %s", report.Percentage, report.Label)
	}
}

func TestExtractClaims_StopsOnRepeat(t *testing.T) {
	llm := newScriptedLLM().
		on(planSystem, `{"plan": ["a", "b", "c"]}`).
		on(extractSystem,
			`{"claim": "The Earth is flat"}`,
			`{"claim": "the earth is flat."}`,
			`{"claim": "never reached"}`,
		).
		on(verifySystem, `{"verdict": "not legit", "explanation": "no"}`)

	report, err := New(llm, &fakeSearcher{}, Options{}).Verify(context.Background(), "x")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(report.Claims) != 1 {
		t.Errorf("claims = %v, want the repeat to end extraction", report.Claims)
	}
	if report.Label != models.LabelUnverified || report.Percentage != 0 {
		t.Errorf("score = %v %s", report.Percentage, report.Label)
	}
}

func TestExtractClaims_KeepsClaimsDifferingByYear(t *testing.T) {
	llm := newScriptedLLM().
		on(planSystem, `{"plan": ["vote 1990", "vote 1991"]}`).
		on(extractSystem,
			`{"claim": "The senator voted against the infrastructure bill in 1990."}`,
			`{"claim": "The senator voted against the infrastructure bill in 1991."}`,
		).
		on(verifySystem,
			`{"verdict": "legit", "explanation": "recorded"}`,
			`{"verdict": "not legit", "explanation": "no such vote"}`,
		)

	report, err := New(llm, &fakeSearcher{}, Options{}).Verify(context.Background(), "x")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(report.Claims) != 2 {
		t.Fatalf("claims = %v, want both years kept", report.Claims)
	}
	if report.Percentage != 50 || report.Label != models.LabelUnverified {
		t.Errorf("score = %v %s", report.Percentage, report.Label)
	}
}

func TestExtractClaims_BoundedByPlan(t *testing.T) {
	llm := newScriptedLLM().
		on(planSystem, `{"plan": ["only one"]}`).
		on(extractSystem, `{"claim": "claim one"}`, `{"claim": "claim two"}`).
		on(verifySystem, `{"verdict": "legit", "explanation": "ok"}`)

	report, err := New(llm, &fakeSearcher{}, Options{}).Verify(context.Background(), "x")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(report.Claims) != 1 || llm.calls[extractSystem] != 1 {
		t.Errorf("claims = %v, extract calls = %d", report.Claims, llm.calls[extractSystem])
	}
}

func TestVerifyClaim_Failures(t *testing.T) {
	tests := []struct {
		name    string
		reply   []string
		wantExp string
	}{
		{"llm error", nil, verificationFailed},
		{"no json", []string{"I think it is fine"}, verificationFailed},
		{"missing verdict", []string{`{"explanation": "unsure"}`}, "unsure"},
		{"odd verdict", []string{`{"verdict": "partially", "explanation": "mixed"}`}, "mixed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := newScriptedLLM().on(verifySystem, tt.reply...)
			v := New(llm, &fakeSearcher{err: errors.New("search down")}, Options{})

			got := v.verifyClaim(context.Background(), "claim")
			if got.Verdict != models.VerdictNotLegit || got.Explanation != tt.wantExp {
				t.Errorf("result = %+v", got)
			}
		})
	}
}

func TestVerifyClaim_SearchFailureStillAsksLLM(t *testing.T) {
	llm := newScriptedLLM().on(verifySystem, `{"verdict": "legit", "explanation": "common knowledge"}`)
	v := New(llm, &fakeSearcher{err: errors.New("rate limited")}, Options{})

	got := v.verifyClaim(context.Background(), "Water boils at 100C at sea level")
	if !got.Legit() {
		t.Errorf("result = %+v", got)
	}
	if !strings.Contains(llm.prompts[0], "No results found.") {
		t.Errorf("prompt = %q", llm.prompts[0])
	}
}

func TestVerify_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := newScriptedLLM().on(planSystem, `{"plan": ["a"]}`)
	_, err := New(llm, nil, Options{}).Verify(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestComputeScore(t *testing.T) {
	legit := models.ClaimResult{Verdict: models.VerdictLegit}
	fake := models.ClaimResult{Verdict: models.VerdictNotLegit}

	tests := []struct {
		name    string
		results []models.ClaimResult
		pct     float64
		label   string
	}{
		{"none", nil, 0, models.LabelFake},
		{"all legit", []models.ClaimResult{legit, legit}, 100, models.LabelVerified},
		{"at threshold", []models.ClaimResult{legit, legit, legit, fake, fake}, 60, models.LabelVerified},
		{"below threshold", []models.ClaimResult{legit, fake}, 50, models.LabelUnverified},
		{"thirds", []models.ClaimResult{legit, fake, fake}, 33.33, models.LabelUnverified},
		{"all not legit", []models.ClaimResult{fake}, 0, models.LabelUnverified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, label := computeScore(tt.results, 60)
			if pct != tt.pct || label != tt.label {
				t.Errorf("computeScore = %v %s, want %v %s", pct, label, tt.pct, tt.label)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	var v struct {
		Claim string `json:"claim"`
	}
	if err := extractJSON("prefix {\"claim\":\n\"x\"} suffix", &v); err != nil || v.Claim != "x" {
		t.Errorf("extractJSON = %v, claim %q", err, v.Claim)
	}
	if err := extractJSON("no braces here", &v); !errors.Is(err, errNoJSON) {
		t.Errorf("err = %v, want errNoJSON", err)
	}
	if err := extractJSON("{not json}", &v); err == nil {
		t.Error("expected a decode error")
	}
}
