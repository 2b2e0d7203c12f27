// Package httpapi exposes the project, publish and results endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/insightmill/panelcraft/internal/aggregate"
	"github.com/insightmill/panelcraft/internal/oracle"
	"github.com/insightmill/panelcraft/internal/store"
	"github.com/insightmill/panelcraft/internal/survey"
	"github.com/insightmill/panelcraft/internal/synth"
)

// oracleTimeout bounds one panel-spec round trip including retries.
const oracleTimeout = 120 * time.Second

type Server struct {
	store     *store.Store
	caller    oracle.LLMCaller
	panelSize int
	tracer    trace.Tracer
}

// NewServer wires the HTTP surface. caller may be nil, in which case
// published panels fall back to question-derived default distributions.
func NewServer(st *store.Store, caller oracle.LLMCaller, panelSize int) http.Handler {
	if panelSize <= 0 {
		panelSize = synth.DefaultPanelSize
	}
	s := &Server{
		store:     st,
		caller:    caller,
		panelSize: panelSize,
		tracer:    otel.Tracer("panelcraft/httpapi"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/projects", s.handleProjects)
	mux.HandleFunc("/v1/projects/", s.handleProjectSubtree)
	mux.HandleFunc("/v1/questions/", s.handleQuestionResults)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// --- projects ---

type createQuestionRequest struct {
	ID          string                `json:"id"`
	Type        survey.QuestionType   `json:"type"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Options     []survey.ChoiceOption `json:"options"`
	MediaURL    string                `json:"media_url"`
	Required    bool                  `json:"required"`
	Settings    survey.Settings       `json:"settings"`
}

type createProjectRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Questions   []createQuestionRequest `json:"questions"`
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		blob, err := readBody(r)
		if err != nil {
			writeError(w, 400, "validation", err.Error())
			return
		}
		var req createProjectRequest
		if err := json.Unmarshal(blob, &req); err != nil {
			writeError(w, 400, "validation", "invalid JSON: "+err.Error())
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeError(w, 400, "validation", "title is required")
			return
		}
		for _, q := range req.Questions {
			if !validQuestionType(q.Type) {
				writeError(w, 400, "validation", "unknown question type: "+string(q.Type))
				return
			}
		}

		project := survey.Project{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Status:      survey.StatusDraft,
			CreatedAt:   time.Now().UTC(),
		}
		questions := make([]survey.Question, len(req.Questions))
		for i, q := range req.Questions {
			id := q.ID
			if id == "" {
				id = uuid.NewString()
			}
			questions[i] = survey.Question{
				ID:          id,
				ProjectID:   project.ID,
				Type:        q.Type,
				Title:       q.Title,
				Description: q.Description,
				Options:     q.Options,
				MediaURL:    q.MediaURL,
				Required:    q.Required,
				OrderIndex:  i,
				Settings:    q.Settings,
			}
		}

		if err := s.store.CreateProject(project); err != nil {
			writeError(w, 500, "internal", err.Error())
			return
		}
		if err := s.store.InsertQuestions(questions); err != nil {
			writeError(w, 500, "internal", err.Error())
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "project": project, "questions": questions})

	case http.MethodGet:
		projects, err := s.store.ListProjects()
		if err != nil {
			writeError(w, 500, "internal", err.Error())
			return
		}
		writeJSON(w, 200, map[string]any{"projects": projects})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func validQuestionType(t survey.QuestionType) bool {
	for _, known := range survey.AllQuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// handleProjectSubtree routes /v1/projects/{id}, /v1/projects/{id}/publish,
// /v1/projects/{id}/results and /v1/projects/{id}/analyses.
func (s *Server) handleProjectSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/projects/")
	projectID, action, _ := strings.Cut(rest, "/")
	if projectID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch action {
	case "":
		s.handleGetProject(w, r, projectID)
	case "publish":
		s.handlePublish(w, r, projectID)
	case "results":
		s.handleProjectResults(w, r, projectID)
	case "analyses":
		s.handleAnalyses(w, r, projectID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request, projectID string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	project, ok, err := s.store.GetProject(projectID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	if !ok {
		writeError(w, 404, "not_found", "project not found")
		return
	}
	questions, err := s.store.ListQuestions(projectID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	total, completed, err := s.store.CountResponses(projectID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{
		"project":             project,
		"questions":           questions,
		"response_count":      total,
		"completed_responses": completed,
	})
}

// --- publish ---

type publishRequest struct {
	Seed      int64 `json:"seed"`
	PanelSize int   `json:"panel_size"`
	Force     bool  `json:"force"`
}

// handlePublish runs the full pipeline: oracle spec, panel synthesis,
// persistence, status flip. Publishing an already-populated project is a
// no-op unless force is set, which regenerates the panel from scratch.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request, projectID string) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeError(w, 400, "validation", err.Error())
		return
	}
	var req publishRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, 400, "validation", "invalid JSON: "+err.Error())
		return
	}

	project, ok, err := s.store.GetProject(projectID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	if !ok {
		writeError(w, 404, "not_found", "project not found")
		return
	}
	questions, err := s.store.ListQuestions(projectID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	if len(questions) == 0 {
		writeError(w, 400, "validation", "project has no questions")
		return
	}

	total, _, err := s.store.CountResponses(projectID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	if total > 0 && !req.Force {
		writeJSON(w, 200, map[string]any{"ok": true, "duplicate": true, "response_count": total})
		return
	}
	if total > 0 {
		if err := s.store.DeleteResponses(projectID); err != nil {
			writeError(w, 500, "internal", err.Error())
			return
		}
	}

	ctx, span := s.tracer.Start(r.Context(), "panel.publish",
		trace.WithAttributes(attribute.String("project.id", projectID)))
	defer span.End()

	spec := s.fetchSpec(ctx, project, questions)

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixMilli()
	}
	size := req.PanelSize
	if size <= 0 {
		size = s.panelSize
	}

	_, genSpan := s.tracer.Start(ctx, "panel.generate",
		trace.WithAttributes(attribute.Int("panel.size", size), attribute.Int64("panel.seed", seed)))
	panel := synth.GeneratePanel(projectID, questions, spec, size, seed, time.Now().UTC())
	genSpan.End()

	if err := s.store.InsertResponses(panel.Responses); err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	if err := s.store.InsertAnswers(panel.Answers); err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	now := time.Now().UTC()
	if err := s.store.UpdateProjectStatus(projectID, survey.StatusLive, &now); err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}

	writeJSON(w, 200, map[string]any{
		"ok":              true,
		"response_count":  len(panel.Responses),
		"completed_count": len(panel.Completed()),
		"answer_count":    len(panel.Answers),
		"seed":            seed,
	})
}

// fetchSpec asks the oracle for the panel spec. Any failure degrades to an
// empty spec so publish still succeeds with default distributions.
func (s *Server) fetchSpec(ctx context.Context, project survey.Project, questions []survey.Question) oracle.PanelSpec {
	if s.caller == nil {
		return oracle.PanelSpec{}
	}
	ctx, cancel := context.WithTimeout(ctx, oracleTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "oracle.fetch_spec")
	defer span.End()

	spec, err := oracle.FetchPanelSpec(ctx, s.caller, project.Title, project.Description, questions)
	if err != nil {
		log.Printf("oracle spec unavailable for project %s, using defaults: %v", project.ID, err)
		return oracle.PanelSpec{}
	}
	return spec
}

// --- results ---

type questionResult struct {
	QuestionID string              `json:"question_id"`
	Type       survey.QuestionType `json:"type"`
	Title      string              `json:"title"`
	Results    any                 `json:"results"`
}

func (s *Server) handleProjectResults(w http.ResponseWriter, r *http.Request, projectID string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	if _, ok, err := s.store.GetProject(projectID); err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	} else if !ok {
		writeError(w, 404, "not_found", "project not found")
		return
	}
	questions, err := s.store.ListQuestions(projectID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	answers, err := s.store.ListAnswers(projectID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}

	_, span := s.tracer.Start(r.Context(), "panel.aggregate",
		trace.WithAttributes(attribute.String("project.id", projectID), attribute.Int("answer.count", len(answers))))
	results := make([]questionResult, 0, len(questions))
	for _, q := range questions {
		res := aggregate.ForQuestion(q, answers)
		if res == nil {
			continue
		}
		results = append(results, questionResult{QuestionID: q.ID, Type: q.Type, Title: q.Title, Results: res})
	}
	span.End()

	total, completed, err := s.store.CountResponses(projectID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{
		"project_id":          projectID,
		"response_count":      total,
		"completed_responses": completed,
		"results":             results,
	})
}

// handleQuestionResults serves /v1/questions/{id}/results for one question.
func (s *Server) handleQuestionResults(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/questions/")
	questionID, action, _ := strings.Cut(rest, "/")
	if questionID == "" || action != "results" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	question, ok, err := s.findQuestion(questionID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	if !ok {
		writeError(w, 404, "not_found", "question not found")
		return
	}
	answers, err := s.store.ListAnswersForQuestion(questionID)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	res := aggregate.ForQuestion(question, answers)
	writeJSON(w, 200, questionResult{QuestionID: question.ID, Type: question.Type, Title: question.Title, Results: res})
}

func (s *Server) findQuestion(questionID string) (survey.Question, bool, error) {
	projects, err := s.store.ListProjects()
	if err != nil {
		return survey.Question{}, false, err
	}
	for _, p := range projects {
		questions, err := s.store.ListQuestions(p.ID)
		if err != nil {
			return survey.Question{}, false, err
		}
		for _, q := range questions {
			if q.ID == questionID {
				return q, true, nil
			}
		}
	}
	return survey.Question{}, false, nil
}

// --- analyses ---

// handleAnalyses reads or writes cached analyses. GET returns the latest
// analysis for the scope plus its staleness against the current response
// count; POST stores a new analysis stamped with that count.
func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		questionID := strings.TrimSpace(r.URL.Query().Get("question_id"))
		analysisType := survey.AnalysisType(strings.TrimSpace(r.URL.Query().Get("type")))
		if analysisType == "" {
			analysisType = survey.AnalysisQuestionSummary
		}
		analysis, ok, err := s.store.LatestAnalysis(projectID, questionID, analysisType)
		if err != nil {
			writeError(w, 500, "internal", err.Error())
			return
		}
		if !ok {
			writeError(w, 404, "not_found", "no analysis generated yet")
			return
		}
		total, _, err := s.store.CountResponses(projectID)
		if err != nil {
			writeError(w, 500, "internal", err.Error())
			return
		}
		writeJSON(w, 200, map[string]any{
			"analysis":    analysis,
			"stale_count": analysis.StaleCount(total),
		})

	case http.MethodPost:
		blob, err := readBody(r)
		if err != nil {
			writeError(w, 400, "validation", err.Error())
			return
		}
		var req struct {
			QuestionID   string              `json:"question_id"`
			AnalysisType survey.AnalysisType `json:"analysis_type"`
			Content      json.RawMessage     `json:"content"`
			Model        string              `json:"model"`
		}
		if err := json.Unmarshal(blob, &req); err != nil {
			writeError(w, 400, "validation", "invalid JSON: "+err.Error())
			return
		}
		if req.AnalysisType == "" {
			writeError(w, 400, "validation", "analysis_type is required")
			return
		}
		total, _, err := s.store.CountResponses(projectID)
		if err != nil {
			writeError(w, 500, "internal", err.Error())
			return
		}
		analysis := survey.Analysis{
			ID:                        uuid.NewString(),
			ProjectID:                 projectID,
			QuestionID:                req.QuestionID,
			AnalysisType:              req.AnalysisType,
			Content:                   req.Content,
			ResponseCountAtGeneration: total,
			Model:                     req.Model,
			CreatedAt:                 time.Now().UTC(),
		}
		if err := s.store.SaveAnalysis(analysis); err != nil {
			writeError(w, 500, "internal", err.Error())
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "analysis": analysis})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "time": strconv.FormatInt(time.Now().Unix(), 10)})
}
