package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/insightmill/panelcraft/internal/survey"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestProjectRoundTrip(t *testing.T) {
	st := newTestStore(t)
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	p := survey.Project{
		ID:          "p1",
		Title:       "Crisps Flavour Screening",
		Description: "New flavour concepts for the UK market",
		Status:      survey.StatusDraft,
		CreatedAt:   created,
	}
	if err := st.CreateProject(p); err != nil {
		t.Fatalf("create project: %v", err)
	}

	got, ok, err := st.GetProject("p1")
	if err != nil || !ok {
		t.Fatalf("get project: ok=%v err=%v", ok, err)
	}
	if got.Title != p.Title || got.Status != survey.StatusDraft {
		t.Fatalf("project round trip mangled: %+v", got)
	}
	if got.PublishedAt != nil {
		t.Fatal("unpublished project should have nil published_at")
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at %v, want %v", got.CreatedAt, created)
	}

	if _, ok, err := st.GetProject("missing"); err != nil || ok {
		t.Fatalf("missing project: ok=%v err=%v", ok, err)
	}
}

func TestUpdateProjectStatus(t *testing.T) {
	st := newTestStore(t)
	if err := st.CreateProject(survey.Project{ID: "p1", Title: "T", Status: survey.StatusDraft, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	published := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	if err := st.UpdateProjectStatus("p1", survey.StatusLive, &published); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _, err := st.GetProject("p1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Status != survey.StatusLive {
		t.Fatalf("status %q, want live", got.Status)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(published) {
		t.Fatalf("published_at %v, want %v", got.PublishedAt, published)
	}
}

func TestQuestionsPreserveOrderAndSettings(t *testing.T) {
	st := newTestStore(t)
	questions := []survey.Question{
		{
			ID: "q2", ProjectID: "p1", Type: survey.TypeScaledResponse, Title: "Likelihood",
			OrderIndex: 1, Settings: survey.Settings{ScalePoints: 5, ScaleLabels: []string{"Not at all", "", "", "", "Definitely"}},
		},
		{
			ID: "q1", ProjectID: "p1", Type: survey.TypeSingleChoice, Title: "Flavour",
			OrderIndex: 0, Options: []survey.ChoiceOption{{ID: "a", Label: "Sea Salt"}},
		},
	}
	if err := st.InsertQuestions(questions); err != nil {
		t.Fatalf("insert questions: %v", err)
	}

	got, err := st.ListQuestions("p1")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2", len(got))
	}
	if got[0].ID != "q1" || got[1].ID != "q2" {
		t.Fatalf("questions out of order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Options[0].Label != "Sea Salt" {
		t.Fatalf("options not round tripped: %+v", got[0].Options)
	}
	if got[1].Settings.ScalePoints != 5 {
		t.Fatalf("settings not round tripped: %+v", got[1].Settings)
	}
}

func TestPanelRoundTripAndCounts(t *testing.T) {
	st := newTestStore(t)
	started := time.Date(2026, 2, 3, 11, 0, 0, 0, time.UTC)

	// 300 responses exercises the insert batching; every third abandons.
	var responses []survey.Response
	var answers []survey.Answer
	for i := 0; i < 300; i++ {
		r := survey.Response{
			ID:           fmt.Sprintf("r%03d", i),
			ProjectID:    "p1",
			RespondentID: fmt.Sprintf("ai-panel-%04d", i),
			StartedAt:    started,
		}
		if i%3 != 0 {
			done := started.Add(3 * time.Minute)
			r.CompletedAt = &done
			answers = append(answers, survey.Answer{
				ID:         fmt.Sprintf("a%03d", i),
				ResponseID: r.ID,
				QuestionID: "q1",
				Value:      json.RawMessage(`{"selected":"a"}`),
				AnsweredAt: done,
			})
		}
		responses = append(responses, r)
	}
	if err := st.InsertResponses(responses); err != nil {
		t.Fatalf("insert responses: %v", err)
	}
	if err := st.InsertAnswers(answers); err != nil {
		t.Fatalf("insert answers: %v", err)
	}

	total, completed, err := st.CountResponses("p1")
	if err != nil {
		t.Fatalf("count responses: %v", err)
	}
	if total != 300 || completed != 200 {
		t.Fatalf("counts %d/%d, want 300/200", total, completed)
	}

	got, err := st.ListAnswers("p1")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(got) != 200 {
		t.Fatalf("got %d answers, want 200", len(got))
	}
	var v survey.SingleChoiceValue
	if !survey.DecodeValue(got[0].Value, &v) || v.Selected != "a" {
		t.Fatalf("answer value not round tripped: %s", got[0].Value)
	}

	byQuestion, err := st.ListAnswersForQuestion("q1")
	if err != nil {
		t.Fatalf("list answers for question: %v", err)
	}
	if len(byQuestion) != 200 {
		t.Fatalf("got %d answers for q1, want 200", len(byQuestion))
	}
}

func TestDeleteResponsesRemovesAnswersToo(t *testing.T) {
	st := newTestStore(t)
	done := time.Now().UTC()
	responses := []survey.Response{{ID: "r1", ProjectID: "p1", RespondentID: "ai-panel-0000", StartedAt: done, CompletedAt: &done}}
	answers := []survey.Answer{{ID: "a1", ResponseID: "r1", QuestionID: "q1", Value: json.RawMessage(`{}`), AnsweredAt: done}}
	if err := st.InsertResponses(responses); err != nil {
		t.Fatalf("insert responses: %v", err)
	}
	if err := st.InsertAnswers(answers); err != nil {
		t.Fatalf("insert answers: %v", err)
	}

	if err := st.DeleteResponses("p1"); err != nil {
		t.Fatalf("delete responses: %v", err)
	}
	total, _, err := st.CountResponses("p1")
	if err != nil {
		t.Fatalf("count responses: %v", err)
	}
	if total != 0 {
		t.Fatalf("responses remain after delete: %d", total)
	}
	remaining, err := st.ListAnswersForQuestion("q1")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("answers remain after delete: %d", len(remaining))
	}
}

func TestLatestAnalysisAndStaleness(t *testing.T) {
	st := newTestStore(t)
	older := survey.Analysis{
		ID: "an1", ProjectID: "p1", QuestionID: "q1",
		AnalysisType:              survey.AnalysisQuestionSummary,
		Content:                   json.RawMessage(`{"summary":"first pass"}`),
		ResponseCountAtGeneration: 100,
		Model:                     "panel-v1",
		CreatedAt:                 time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	newer := older
	newer.ID = "an2"
	newer.Content = json.RawMessage(`{"summary":"second pass"}`)
	newer.ResponseCountAtGeneration = 150
	newer.CreatedAt = time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)

	if err := st.SaveAnalysis(older); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if err := st.SaveAnalysis(newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	got, ok, err := st.LatestAnalysis("p1", "q1", survey.AnalysisQuestionSummary)
	if err != nil || !ok {
		t.Fatalf("latest analysis: ok=%v err=%v", ok, err)
	}
	if got.ID != "an2" {
		t.Fatalf("latest analysis %q, want an2", got.ID)
	}
	if got.StaleCount(180) != 30 {
		t.Fatalf("stale count %d, want 30", got.StaleCount(180))
	}
	if got.StaleCount(100) != 0 {
		t.Fatalf("stale count floors at zero, got %d", got.StaleCount(100))
	}

	if _, ok, err := st.LatestAnalysis("p1", "q1", survey.AnalysisSentiment); err != nil || ok {
		t.Fatalf("missing analysis: ok=%v err=%v", ok, err)
	}
}
