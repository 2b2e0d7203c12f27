package synth

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/insightmill/panelcraft/internal/oracle"
	"github.com/insightmill/panelcraft/internal/survey"
)

func panelQuestions() []survey.Question {
	return []survey.Question{
		{
			ID:        "q1",
			ProjectID: "p1",
			Type:      survey.TypeSingleChoice,
			Title:     "Which flavour do you prefer?",
			Options: []survey.ChoiceOption{
				{ID: "opt1", Label: "Sea Salt"},
				{ID: "opt2", Label: "Cheese & Onion"},
			},
			OrderIndex: 0,
		},
		{
			ID:         "q2",
			ProjectID:  "p1",
			Type:       survey.TypeScaledResponse,
			Title:      "How likely are you to buy?",
			OrderIndex: 1,
			Settings:   survey.Settings{ScalePoints: 5},
		},
	}
}

func TestGeneratePanelCountsAndIDs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	panel := GeneratePanel("p1", panelQuestions(), oracle.PanelSpec{}, 100, 42, now)

	if len(panel.Responses) != 100 {
		t.Fatalf("got %d responses, want 100", len(panel.Responses))
	}
	for i, r := range panel.Responses {
		want := fmt.Sprintf("ai-panel-%04d", i)
		if r.RespondentID != want {
			t.Fatalf("respondent %d id %q, want %q", i, r.RespondentID, want)
		}
		if !r.StartedAt.Before(now) {
			t.Fatalf("respondent %d started at %v, after generation time", i, r.StartedAt)
		}
		if r.CompletedAt != nil && !r.CompletedAt.After(r.StartedAt) {
			t.Fatalf("respondent %d completed before starting", i)
		}
	}

	completed := panel.Completed()
	if len(completed) == 0 || len(completed) > 100 {
		t.Fatalf("implausible completion count %d", len(completed))
	}
	if want := len(completed) * 2; len(panel.Answers) != want {
		t.Fatalf("got %d answers, want %d (completed x questions)", len(panel.Answers), want)
	}
}

func TestGeneratePanelDefaultsCount(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	panel := GeneratePanel("p1", panelQuestions(), oracle.PanelSpec{}, 0, 7, now)
	if len(panel.Responses) != DefaultPanelSize {
		t.Fatalf("got %d responses, want default %d", len(panel.Responses), DefaultPanelSize)
	}
}

func TestGeneratePanelSeedDeterminism(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := GeneratePanel("p1", panelQuestions(), oracle.PanelSpec{}, 50, 1234, now)
	b := GeneratePanel("p1", panelQuestions(), oracle.PanelSpec{}, 50, 1234, now)

	if len(a.Answers) != len(b.Answers) {
		t.Fatalf("answer counts differ: %d vs %d", len(a.Answers), len(b.Answers))
	}
	for i := range a.Answers {
		if !bytes.Equal(a.Answers[i].Value, b.Answers[i].Value) {
			t.Fatalf("answer %d values differ for identical seeds: %s vs %s",
				i, a.Answers[i].Value, b.Answers[i].Value)
		}
	}
	for i := range a.Responses {
		if (a.Responses[i].CompletedAt == nil) != (b.Responses[i].CompletedAt == nil) {
			t.Fatalf("completion flags differ at respondent %d for identical seeds", i)
		}
	}
}

func TestGeneratePanelAnswersReferenceCompletedResponses(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	panel := GeneratePanel("p1", panelQuestions(), oracle.PanelSpec{}, 80, 9, now)

	completed := map[string]bool{}
	for _, r := range panel.Completed() {
		completed[r.ID] = true
	}
	for _, a := range panel.Answers {
		if !completed[a.ResponseID] {
			t.Fatalf("answer %s references a non-completed response %s", a.ID, a.ResponseID)
		}
		if a.QuestionID != "q1" && a.QuestionID != "q2" {
			t.Fatalf("answer references unknown question %q", a.QuestionID)
		}
	}
}
