package synth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/insightmill/panelcraft/internal/oracle"
	"github.com/insightmill/panelcraft/internal/sampling"
	"github.com/insightmill/panelcraft/internal/survey"
)

// DefaultPanelSize is the respondent count used when the caller does not
// override it.
const DefaultPanelSize = 500

// completionDropRate is the fraction of respondents who abandon the survey.
const completionDropRate = 0.05

// Panel is one generated sitting of a survey: the respondent roster plus
// every completed respondent's answers.
type Panel struct {
	Responses []survey.Response
	Answers   []survey.Answer
}

// Completed returns the responses that finished the survey.
func (p Panel) Completed() []survey.Response {
	var done []survey.Response
	for _, r := range p.Responses {
		if r.CompletedAt != nil {
			done = append(done, r)
		}
	}
	return done
}

// GeneratePanel synthesizes a full panel for a project: count respondent
// rows with staggered timestamps and a realistic completion rate, then one
// answer per completed respondent per question, drawn under the oracle's
// per-question spec. A question with no spec entry degrades to the
// question-derived defaults rather than being skipped.
func GeneratePanel(projectID string, questions []survey.Question, spec oracle.PanelSpec, count int, seed int64, now time.Time) Panel {
	if count <= 0 {
		count = DefaultPanelSize
	}
	rng := sampling.New(seed)

	responses := make([]survey.Response, count)
	for i := range responses {
		startOffset := time.Duration(i*500+rng.Intn(300)) * time.Millisecond
		startedAt := now.Add(-time.Hour).Add(startOffset)
		completedAt := startedAt.Add(2 * time.Minute).Add(time.Duration(rng.Intn(300000)) * time.Millisecond)
		responses[i] = survey.Response{
			ID:           uuid.NewString(),
			ProjectID:    projectID,
			RespondentID: fmt.Sprintf("ai-panel-%04d", i),
			StartedAt:    startedAt,
		}
		if rng.Next() > completionDropRate {
			responses[i].CompletedAt = &completedAt
		}
	}

	panel := Panel{Responses: responses}
	completed := panel.Completed()
	n := len(completed)

	for _, q := range questions {
		values := generateValues(q, spec[q.ID], n, rng)
		for idx, raw := range values {
			panel.Answers = append(panel.Answers, survey.Answer{
				ID:         uuid.NewString(),
				ResponseID: completed[idx].ID,
				QuestionID: q.ID,
				Value:      raw,
				AnsweredAt: *completed[idx].CompletedAt,
			})
		}
	}
	return panel
}

// generateValues dispatches one question to its type's generator and
// returns exactly count marshaled values.
func generateValues(q survey.Question, qs oracle.QuestionSpec, count int, rng *sampling.Rng) [][]byte {
	out := make([][]byte, 0, count)
	push := func(v any) { out = append(out, survey.MarshalValue(v)) }

	switch q.Type {
	case survey.TypeSingleChoice:
		ids, weights := qs.DistributionFor(q)
		for _, v := range SingleChoice(ids, weights, count, rng) {
			push(v)
		}
	case survey.TypeMultipleChoice:
		ids, rates := qs.SelectionRatesFor(q)
		for _, v := range MultipleChoice(ids, rates, count, rng) {
			push(v)
		}
	case survey.TypeScaledResponse:
		points, weights := qs.ScaleDistributionFor(q.Settings.ScalePointsOrDefault())
		for _, v := range Scaled(points, weights, count, rng) {
			push(v)
		}
	case survey.TypeOpenText:
		for _, v := range OpenText(qs.Responses, count, rng) {
			push(v)
		}
	case survey.TypeMonadicSplit:
		for _, v := range MonadicSplit(qs.Variants, q.VariantIDs(), q.Settings.ResponseFormatOrDefault(), count, rng) {
			push(v)
		}
	case survey.TypeRanking:
		ids, scores := qs.StrengthScoresFor(q)
		if len(ids) == 0 {
			break
		}
		for _, v := range Ranking(ids, scores, count, rng) {
			push(v)
		}
	case survey.TypeMaxDiff:
		ids, utilities := qs.UtilityScoresFor(q)
		if len(ids) == 0 {
			break
		}
		for _, v := range MaxDiff(ids, utilities, q.Settings.ItemsPerSetOrDefault(), count, rng) {
			push(v)
		}
	case survey.TypeAnchoredPricing:
		if q.Settings.PricingMethodOrDefault() == survey.MethodGaborGranger {
			prices, probs := qs.BuyProbabilitiesFor(q)
			for _, v := range GaborGranger(prices, probs, count, rng) {
				push(v)
			}
			break
		}
		for _, v := range VanWestendorp(qs.MediansOrDefault(), qs.StdDevsOrDefault(), count, rng) {
			push(v)
		}
	case survey.TypeImplicitAssociation:
		attrs, data := qs.AttributesFor(q)
		for _, v := range ImplicitAssociation(attrs, data, count, rng) {
			push(v)
		}
	case survey.TypeImageHeatmap:
		for _, v := range ImageHeatmap(qs.HotspotsOrDefault(), q.Settings.MaxClicksOrDefault(), count, rng) {
			push(v)
		}
	}
	return out
}
