// Package store persists projects, questions, panels and cached analyses in
// SQLite. Structured fields (options, settings, answer values, analysis
// content) are stored as JSON text columns.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/insightmill/panelcraft/internal/survey"
)

// insertBatchSize bounds the number of rows per INSERT statement.
const insertBatchSize = 200

type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'draft',
	published_at TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL,
	type        TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	options     TEXT NOT NULL DEFAULT '[]',
	media_url   TEXT NOT NULL DEFAULT '',
	required    INTEGER NOT NULL DEFAULT 0,
	order_index INTEGER NOT NULL DEFAULT 0,
	settings    TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_questions_project ON questions(project_id, order_index);

CREATE TABLE IF NOT EXISTS responses (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL,
	respondent_id TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	completed_at  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_responses_project ON responses(project_id);

CREATE TABLE IF NOT EXISTS answers (
	id          TEXT PRIMARY KEY,
	response_id TEXT NOT NULL,
	question_id TEXT NOT NULL,
	value       TEXT NOT NULL DEFAULT '{}',
	answered_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);
CREATE INDEX IF NOT EXISTS idx_answers_response ON answers(response_id);

CREATE TABLE IF NOT EXISTS analyses (
	id                           TEXT PRIMARY KEY,
	project_id                   TEXT NOT NULL,
	question_id                  TEXT NOT NULL DEFAULT '',
	analysis_type                TEXT NOT NULL,
	content                      TEXT NOT NULL DEFAULT '{}',
	response_count_at_generation INTEGER NOT NULL DEFAULT 0,
	model                        TEXT NOT NULL DEFAULT '',
	created_at                   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_project ON analyses(project_id, question_id, analysis_type);
`

func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- projects ---

func (s *Store) CreateProject(p survey.Project) error {
	_, err := s.db.Exec(`INSERT INTO projects (id, title, description, status, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, string(p.Status), timePtrToString(p.PublishedAt), timeToString(p.CreatedAt))
	return err
}

func (s *Store) GetProject(id string) (survey.Project, bool, error) {
	rows, err := s.db.Query(`SELECT id, title, description, status, published_at, created_at FROM projects WHERE id = ?`, id)
	if err != nil {
		return survey.Project{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return survey.Project{}, false, rows.Err()
	}
	p, err := scanProject(rows)
	return p, err == nil, err
}

func (s *Store) ListProjects() ([]survey.Project, error) {
	rows, err := s.db.Query(`SELECT id, title, description, status, published_at, created_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []survey.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProjectStatus(id string, status survey.ProjectStatus, publishedAt *time.Time) error {
	_, err := s.db.Exec(`UPDATE projects SET status = ?, published_at = ? WHERE id = ?`,
		string(status), timePtrToString(publishedAt), id)
	return err
}

// --- questions ---

func (s *Store) InsertQuestions(questions []survey.Question) error {
	for _, q := range questions {
		_, err := s.db.Exec(`INSERT OR REPLACE INTO questions (id, project_id, type, title, description, options, media_url, required, order_index, settings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.ProjectID, string(q.Type), q.Title, q.Description,
			marshalJSON(q.Options), q.MediaURL, boolToInt(q.Required), q.OrderIndex, marshalJSON(q.Settings))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListQuestions(projectID string) ([]survey.Question, error) {
	rows, err := s.db.Query(`SELECT id, project_id, type, title, description, options, media_url, required, order_index, settings
		FROM questions WHERE project_id = ? ORDER BY order_index`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []survey.Question
	for rows.Next() {
		var q survey.Question
		var qType, optionsJSON, settingsJSON string
		var required int
		if err := rows.Scan(&q.ID, &q.ProjectID, &qType, &q.Title, &q.Description,
			&optionsJSON, &q.MediaURL, &required, &q.OrderIndex, &settingsJSON); err != nil {
			return nil, err
		}
		q.Type = survey.QuestionType(qType)
		q.Required = required != 0
		_ = json.Unmarshal([]byte(optionsJSON), &q.Options)
		_ = json.Unmarshal([]byte(settingsJSON), &q.Settings)
		out = append(out, q)
	}
	return out, rows.Err()
}

// --- responses and answers ---

func (s *Store) InsertResponses(responses []survey.Response) error {
	for start := 0; start < len(responses); start += insertBatchSize {
		end := min(start+insertBatchSize, len(responses))
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, r := range responses[start:end] {
			if _, err := tx.Exec(`INSERT INTO responses (id, project_id, respondent_id, started_at, completed_at)
				VALUES (?, ?, ?, ?, ?)`,
				r.ID, r.ProjectID, r.RespondentID, timeToString(r.StartedAt), timePtrToString(r.CompletedAt)); err != nil {
				tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertAnswers(answers []survey.Answer) error {
	for start := 0; start < len(answers); start += insertBatchSize {
		end := min(start+insertBatchSize, len(answers))
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, a := range answers[start:end] {
			if _, err := tx.Exec(`INSERT INTO answers (id, response_id, question_id, value, answered_at)
				VALUES (?, ?, ?, ?, ?)`,
				a.ID, a.ResponseID, a.QuestionID, string(a.Value), timeToString(a.AnsweredAt)); err != nil {
				tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// CountResponses reports total and completed respondent counts for a project.
func (s *Store) CountResponses(projectID string) (total, completed int, err error) {
	row := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN completed_at != '' THEN 1 ELSE 0 END), 0)
		FROM responses WHERE project_id = ?`, projectID)
	err = row.Scan(&total, &completed)
	return total, completed, err
}

// DeleteResponses removes a project's responses and their answers. Used when
// a panel is regenerated.
func (s *Store) DeleteResponses(projectID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM answers WHERE response_id IN (SELECT id FROM responses WHERE project_id = ?)`, projectID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM responses WHERE project_id = ?`, projectID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListAnswers returns every answer recorded for a project.
func (s *Store) ListAnswers(projectID string) ([]survey.Answer, error) {
	rows, err := s.db.Query(`SELECT a.id, a.response_id, a.question_id, a.value, a.answered_at
		FROM answers a JOIN responses r ON r.id = a.response_id
		WHERE r.project_id = ?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// ListAnswersForQuestion returns every answer recorded for one question.
func (s *Store) ListAnswersForQuestion(questionID string) ([]survey.Answer, error) {
	rows, err := s.db.Query(`SELECT id, response_id, question_id, value, answered_at
		FROM answers WHERE question_id = ?`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// --- analyses ---

func (s *Store) SaveAnalysis(a survey.Analysis) error {
	_, err := s.db.Exec(`INSERT INTO analyses (id, project_id, question_id, analysis_type, content, response_count_at_generation, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.QuestionID, string(a.AnalysisType), string(a.Content),
		a.ResponseCountAtGeneration, a.Model, timeToString(a.CreatedAt))
	return err
}

// LatestAnalysis returns the most recent cached analysis for the scope, or
// false when none exists.
func (s *Store) LatestAnalysis(projectID, questionID string, analysisType survey.AnalysisType) (survey.Analysis, bool, error) {
	rows, err := s.db.Query(`SELECT id, project_id, question_id, analysis_type, content, response_count_at_generation, model, created_at
		FROM analyses WHERE project_id = ? AND question_id = ? AND analysis_type = ?
		ORDER BY created_at DESC LIMIT 1`, projectID, questionID, string(analysisType))
	if err != nil {
		return survey.Analysis{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return survey.Analysis{}, false, rows.Err()
	}
	var a survey.Analysis
	var aType, content, createdAt string
	if err := rows.Scan(&a.ID, &a.ProjectID, &a.QuestionID, &aType, &content,
		&a.ResponseCountAtGeneration, &a.Model, &createdAt); err != nil {
		return survey.Analysis{}, false, err
	}
	a.AnalysisType = survey.AnalysisType(aType)
	a.Content = json.RawMessage(content)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return a, true, nil
}

// --- scan and persist helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(rows rowScanner) (survey.Project, error) {
	var p survey.Project
	var status, publishedAt, createdAt string
	if err := rows.Scan(&p.ID, &p.Title, &p.Description, &status, &publishedAt, &createdAt); err != nil {
		return survey.Project{}, err
	}
	p.Status = survey.ProjectStatus(status)
	p.PublishedAt = stringToTimePtr(publishedAt)
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return p, nil
}

func scanAnswers(rows *sql.Rows) ([]survey.Answer, error) {
	var out []survey.Answer
	for rows.Next() {
		var a survey.Answer
		var value, answeredAt string
		if err := rows.Scan(&a.ID, &a.ResponseID, &a.QuestionID, &value, &answeredAt); err != nil {
			return nil, err
		}
		a.Value = json.RawMessage(value)
		a.AnsweredAt, _ = time.Parse(time.RFC3339Nano, answeredAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func timePtrToString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timeToString(*t)
}

func stringToTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
