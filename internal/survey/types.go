package survey

import (
	"encoding/json"
	"time"
)

type ProjectStatus string

const (
	StatusDraft  ProjectStatus = "draft"
	StatusLive   ProjectStatus = "live"
	StatusClosed ProjectStatus = "closed"
)

type QuestionType string

const (
	TypeSingleChoice        QuestionType = "single_choice"
	TypeMultipleChoice      QuestionType = "multiple_choice"
	TypeScaledResponse      QuestionType = "scaled_response"
	TypeOpenText            QuestionType = "open_text"
	TypeMonadicSplit        QuestionType = "monadic_split"
	TypeRanking             QuestionType = "ranking"
	TypeMaxDiff             QuestionType = "maxdiff"
	TypeAnchoredPricing     QuestionType = "anchored_pricing"
	TypeImplicitAssociation QuestionType = "implicit_association"
	TypeImageHeatmap        QuestionType = "image_heatmap"
)

// AllQuestionTypes lists the ten supported kinds in authoring order.
var AllQuestionTypes = []QuestionType{
	TypeSingleChoice,
	TypeMultipleChoice,
	TypeScaledResponse,
	TypeOpenText,
	TypeMonadicSplit,
	TypeRanking,
	TypeMaxDiff,
	TypeAnchoredPricing,
	TypeImplicitAssociation,
	TypeImageHeatmap,
}

type PricingMethod string

const (
	MethodGaborGranger  PricingMethod = "gabor_granger"
	MethodVanWestendorp PricingMethod = "van_westendorp"
)

type ResponseFormat string

const (
	FormatBinary    ResponseFormat = "binary"
	FormatFivePoint ResponseFormat = "five_point"
)

type AnalysisType string

const (
	AnalysisQuestionSummary AnalysisType = "question_summary"
	AnalysisProjectSummary  AnalysisType = "project_summary"
	AnalysisSentiment       AnalysisType = "sentiment"
	AnalysisThemes          AnalysisType = "themes"
)

type ChoiceOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ImageURL string `json:"image_url,omitempty"`
}

type ReferenceProduct struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Settings carries the type-specific question configuration. Every accessor
// substitutes the documented default when the field was never authored, so
// downstream code never branches on zero values.
type Settings struct {
	IncludeNone      bool              `json:"include_none,omitempty"`
	ScalePoints      int               `json:"scale_points,omitempty"`
	ScaleLabels      []string          `json:"scale_labels,omitempty"`
	ResponseFormat   ResponseFormat    `json:"response_format,omitempty"`
	VariantCount     int               `json:"variant_count,omitempty"`
	ItemsPerSet      int               `json:"items_per_set,omitempty"`
	PricingMethod    PricingMethod     `json:"pricing_method,omitempty"`
	PricePoints      []float64         `json:"price_points,omitempty"`
	Currency         string            `json:"currency,omitempty"`
	ReferenceProduct *ReferenceProduct `json:"reference_product,omitempty"`
	Attributes       []string          `json:"attributes,omitempty"`
	MaxClicks        int               `json:"max_clicks,omitempty"`
}

const (
	DefaultScalePoints  = 7
	DefaultVariantCount = 2
	DefaultItemsPerSet  = 4
	DefaultMaxClicks    = 3
	DefaultCurrency     = "£"
)

func (s Settings) ScalePointsOrDefault() int {
	if s.ScalePoints <= 0 {
		return DefaultScalePoints
	}
	return s.ScalePoints
}

func (s Settings) ResponseFormatOrDefault() ResponseFormat {
	if s.ResponseFormat == FormatBinary {
		return FormatBinary
	}
	return FormatFivePoint
}

func (s Settings) VariantCountOrDefault() int {
	if s.VariantCount < 2 || s.VariantCount > 3 {
		return DefaultVariantCount
	}
	return s.VariantCount
}

func (s Settings) ItemsPerSetOrDefault() int {
	if s.ItemsPerSet <= 1 {
		return DefaultItemsPerSet
	}
	return s.ItemsPerSet
}

func (s Settings) PricingMethodOrDefault() PricingMethod {
	if s.PricingMethod == MethodVanWestendorp {
		return MethodVanWestendorp
	}
	return MethodGaborGranger
}

func (s Settings) CurrencyOrDefault() string {
	if s.Currency == "" {
		return DefaultCurrency
	}
	return s.Currency
}

func (s Settings) MaxClicksOrDefault() int {
	if s.MaxClicks <= 0 {
		return DefaultMaxClicks
	}
	return s.MaxClicks
}

type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Question is the immutable per-survey configuration. Authored once by the
// external editing layer and read-only everywhere in this service.
type Question struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Type        QuestionType   `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Options     []ChoiceOption `json:"options,omitempty"`
	MediaURL    string         `json:"media_url,omitempty"`
	Required    bool           `json:"required"`
	OrderIndex  int            `json:"order_index"`
	Settings    Settings       `json:"settings"`
}

// OptionIDs returns the declared option ids in authoring order.
func (q Question) OptionIDs() []string {
	ids := make([]string, len(q.Options))
	for i, o := range q.Options {
		ids[i] = o.ID
	}
	return ids
}

// VariantIDs resolves the monadic-split variant keys: the declared options
// when present, otherwise "a","b"(,"c") by variant count.
func (q Question) VariantIDs() []string {
	if len(q.Options) > 0 {
		return q.OptionIDs()
	}
	keys := []string{"a", "b", "c"}
	return keys[:q.Settings.VariantCountOrDefault()]
}

// Response is one respondent's sitting of a survey.
type Response struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	RespondentID string     `json:"respondent_id"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Answer is one respondent's value for one question. Value is the raw JSON
// of a type-specific answer struct; its shape must match the question's
// type, and consumers treat malformed or absent fields as empty.
type Answer struct {
	ID         string          `json:"id"`
	ResponseID string          `json:"response_id"`
	QuestionID string          `json:"question_id"`
	Value      json.RawMessage `json:"value"`
	AnsweredAt time.Time       `json:"answered_at"`
}

// Analysis records a cached downstream interpretation of the answers,
// stamped with the respondent count at generation time so that staleness
// can be computed against the current count.
type Analysis struct {
	ID                        string          `json:"id"`
	ProjectID                 string          `json:"project_id"`
	QuestionID                string          `json:"question_id,omitempty"`
	AnalysisType              AnalysisType    `json:"analysis_type"`
	Content                   json.RawMessage `json:"content"`
	ResponseCountAtGeneration int             `json:"response_count_at_generation"`
	Model                     string          `json:"model"`
	CreatedAt                 time.Time       `json:"created_at"`
}

// StaleCount reports how many responses arrived after the analysis was
// generated, floored at zero.
func (a Analysis) StaleCount(currentResponses int) int {
	n := currentResponses - a.ResponseCountAtGeneration
	if n < 0 {
		return 0
	}
	return n
}
