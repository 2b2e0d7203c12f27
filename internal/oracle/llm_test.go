package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/insightmill/panelcraft/internal/survey"
)

type scriptedCaller struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedCaller) GenerateJSON(_ context.Context, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	var reply string
	var err error
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return reply, err
}

func TestFetchPanelSpecFirstAttempt(t *testing.T) {
	caller := &scriptedCaller{replies: []string{`{"q1": {"distribution": {"a": 100}}}`}}
	spec, err := FetchPanelSpec(context.Background(), caller, "Crisps Study", "", nil)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if spec["q1"].Distribution["a"] != 100 {
		t.Fatalf("spec not parsed: %+v", spec)
	}
	if len(caller.prompts) != 1 {
		t.Fatalf("made %d calls, want 1", len(caller.prompts))
	}
}

func TestFetchPanelSpecRetriesParseFailureWithFeedback(t *testing.T) {
	caller := &scriptedCaller{replies: []string{
		"I think the panel would lean towards option A.",
		`{"q1": {}}`,
	}}
	spec, err := FetchPanelSpec(context.Background(), caller, "Crisps Study", "", nil)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if _, ok := spec["q1"]; !ok {
		t.Fatal("second attempt's spec was not used")
	}
	if len(caller.prompts) != 2 {
		t.Fatalf("made %d calls, want 2", len(caller.prompts))
	}
	if !strings.Contains(caller.prompts[1], "not valid JSON") {
		t.Fatal("retry prompt lacks corrective feedback")
	}
}

func TestFetchPanelSpecRetriesEmptyResponse(t *testing.T) {
	caller := &scriptedCaller{replies: []string{"", `{}`}}
	if _, err := FetchPanelSpec(context.Background(), caller, "Crisps Study", "", nil); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !strings.Contains(caller.prompts[1], "was empty") {
		t.Fatal("retry prompt lacks empty-response feedback")
	}
}

func TestFetchPanelSpecDoesNotRetryClientErrors(t *testing.T) {
	caller := &scriptedCaller{errs: []error{errors.New("status code: 400 bad request")}}
	if _, err := FetchPanelSpec(context.Background(), caller, "Crisps Study", "", nil); err == nil {
		t.Fatal("expected transport error")
	}
	if len(caller.prompts) != 1 {
		t.Fatalf("client error retried: %d calls", len(caller.prompts))
	}
}

func TestFetchPanelSpecGivesUpAfterRetries(t *testing.T) {
	caller := &scriptedCaller{replies: []string{"nope", "still nope", "not json"}}
	if _, err := FetchPanelSpec(context.Background(), caller, "Crisps Study", "", nil); err == nil {
		t.Fatal("expected parse error after exhausting retries")
	}
	if len(caller.prompts) != fetchAttempts {
		t.Fatalf("made %d calls, want %d", len(caller.prompts), fetchAttempts)
	}
}

func TestBuildPromptCoversQuestionTypes(t *testing.T) {
	questions := []survey.Question{
		{
			ID:    "q1",
			Type:  survey.TypeSingleChoice,
			Title: "Which flavour?",
			Options: []survey.ChoiceOption{
				{ID: "opt1", Label: "Sea Salt"},
				{ID: "opt2", Label: "Paprika"},
			},
		},
		{
			ID:       "q2",
			Type:     survey.TypeScaledResponse,
			Title:    "How likely to buy?",
			Settings: survey.Settings{ScalePoints: 5},
		},
		{
			ID:       "q3",
			Type:     survey.TypeAnchoredPricing,
			Title:    "At which prices would you buy?",
			Settings: survey.Settings{PricingMethod: survey.MethodGaborGranger, PricePoints: []float64{1.5, 2.0}},
		},
	}

	prompt := BuildPrompt("Crisps Study", "New flavour screening", questions)

	for _, want := range []string{
		"SURVEY: \"Crisps Study\"",
		"Description: New flavour screening",
		"Q1 (ID: q1, Type: single_choice)",
		`opt1="Sea Salt"`,
		"Q2 (ID: q2, Type: scaled_response)",
		"Scale: 1-5",
		"Q3 (ID: q3, Type: anchored_pricing, method: gabor_granger)",
		"buyProbabilities",
		"Return ONLY valid JSON",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptUnknownTypeSkips(t *testing.T) {
	prompt := BuildPrompt("Study", "", []survey.Question{{ID: "qx", Type: "hologram", Title: "?"}})
	if !strings.Contains(prompt, "skip this question type") {
		t.Fatal("unknown type should render a skip block")
	}
}
