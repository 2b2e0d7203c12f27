package report

import (
	"strings"
	"testing"
	"time"

	"github.com/insightmill/panelcraft/internal/survey"
)

func reportAnswer(questionID string, value any) survey.Answer {
	return survey.Answer{
		ID:         "ans",
		ResponseID: "resp",
		QuestionID: questionID,
		Value:      survey.MarshalValue(value),
		AnsweredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildReportStructure(t *testing.T) {
	project := survey.Project{
		ID:          "p1",
		Title:       "Crisps Flavour Screening",
		Description: "New flavour concepts for the UK market",
	}
	questions := []survey.Question{
		{
			ID:    "q1",
			Type:  survey.TypeSingleChoice,
			Title: "Which flavour do you prefer?",
			Options: []survey.ChoiceOption{
				{ID: "a", Label: "Sea Salt"},
				{ID: "b", Label: "Paprika"},
			},
		},
		{
			ID:    "q2",
			Type:  survey.TypeOpenText,
			Title: "Any other comments?",
		},
	}

	var answers []survey.Answer
	for i := 0; i < 6; i++ {
		answers = append(answers, reportAnswer("q1", survey.SingleChoiceValue{Selected: "a"}))
	}
	for i := 0; i < 2; i++ {
		answers = append(answers, reportAnswer("q1", survey.SingleChoiceValue{Selected: "b"}))
	}
	answers = append(answers, reportAnswer("q2", survey.OpenTextValue{Text: "Lovely and crunchy."}))

	generated := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	md := Build(project, questions, answers, 10, 9, generated)

	for _, want := range []string{
		"# Panel Report: Crisps Flavour Screening",
		"New flavour concepts for the UK market",
		"Generated 2 March 2026. 10 respondents, 9 completed.",
		"## Q1. Which flavour do you prefer?",
		"| Option | Count | Share |",
		"| Sea Salt | 6 | 75.0% |",
		"**Sea Salt** is the clear winner.",
		"## Q2. Any other comments?",
		"> Lovely and crunchy.",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q\n---\n%s", want, md)
		}
	}
}

func TestBuildReportCapsVerbatims(t *testing.T) {
	project := survey.Project{ID: "p1", Title: "T"}
	questions := []survey.Question{{ID: "q1", Type: survey.TypeOpenText, Title: "Comments?"}}

	var answers []survey.Answer
	for i := 0; i < 25; i++ {
		answers = append(answers, reportAnswer("q1", survey.OpenTextValue{Text: "same verbatim"}))
	}
	md := Build(project, questions, answers, 25, 25, time.Now())

	if got := strings.Count(md, "> same verbatim"); got != maxVerbatims {
		t.Fatalf("report quotes %d verbatims, want %d", got, maxVerbatims)
	}
}

func TestBuildReportPricingSections(t *testing.T) {
	project := survey.Project{ID: "p1", Title: "Pricing"}
	questions := []survey.Question{
		{
			ID:       "q1",
			Type:     survey.TypeAnchoredPricing,
			Title:    "Would you buy at these prices?",
			Settings: survey.Settings{PricingMethod: survey.MethodGaborGranger},
		},
		{
			ID:       "q2",
			Type:     survey.TypeAnchoredPricing,
			Title:    "What would you pay?",
			Settings: survey.Settings{PricingMethod: survey.MethodVanWestendorp},
		},
	}
	answers := []survey.Answer{
		reportAnswer("q1", survey.GaborGrangerValue{
			Method: survey.MethodGaborGranger,
			Responses: []survey.PriceResponse{
				{Price: 1.50, WouldBuy: true},
				{Price: 2.50, WouldBuy: false},
			},
		}),
		reportAnswer("q2", survey.VanWestendorpValue{
			Method: survey.MethodVanWestendorp, TooCheap: 1, Bargain: 2, Expensive: 3, TooExpensive: 4,
		}),
	}

	md := Build(project, questions, answers, 1, 1, time.Now())
	for _, want := range []string{
		"Gabor-Granger pricing",
		"Revenue-optimal price £1.50",
		"Van Westendorp pricing",
		"- Optimal price point: £",
		"- Acceptable range: £",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q\n---\n%s", want, md)
		}
	}
}

func TestBuildReportEmptyPanel(t *testing.T) {
	project := survey.Project{ID: "p1", Title: "Empty"}
	questions := []survey.Question{
		{ID: "q1", Type: survey.TypeScaledResponse, Title: "Rate it", Settings: survey.Settings{ScalePoints: 5}},
	}
	md := Build(project, questions, nil, 0, 0, time.Now())
	if !strings.Contains(md, "## Q1. Rate it") {
		t.Fatal("empty panel report lacks the question section")
	}
	if !strings.Contains(md, "0 responses") {
		t.Fatal("empty panel report should state zero responses")
	}
}
