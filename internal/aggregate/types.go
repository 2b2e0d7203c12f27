// Package aggregate turns raw answers into per-question statistical results.
// Aggregators are total: zero answers, unknown option ids, and malformed
// values all produce a well-formed result rather than an error.
package aggregate

import (
	"time"

	"github.com/insightmill/panelcraft/internal/survey"
)

// OptionCount is one option's tally within a choice aggregation, ordered by
// count descending.
type OptionCount struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type SingleChoiceResult struct {
	Options        []OptionCount `json:"options"`
	TotalResponses int           `json:"total_responses"`
	NoneCount      int           `json:"none_count"`
	NonePercent    float64       `json:"none_percent"`
	ClearWinner    bool          `json:"clear_winner"`
	CloseContest   bool          `json:"close_contest"`
}

// MultipleChoiceResult ranks options by selection count. CutLineIndex marks
// the first position whose gap to the next option exceeds the cut-line
// threshold; nil when the ranking has no such break.
type MultipleChoiceResult struct {
	Options                    []OptionCount `json:"options"`
	TotalResponses             int           `json:"total_responses"`
	AvgSelectionsPerRespondent float64       `json:"avg_selections_per_respondent"`
	CutLineIndex               *int          `json:"cut_line_index"`
}

type ScalePointCount struct {
	Point   int     `json:"point"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type ScaledResult struct {
	Distribution   []ScalePointCount `json:"distribution"`
	Mean           float64           `json:"mean"`
	StdDev         float64           `json:"std_dev"`
	ScaleMax       int               `json:"scale_max"`
	Top2Box        float64           `json:"top2_box"`
	Bottom2Box     float64           `json:"bottom2_box"`
	NetScore       float64           `json:"net_score"`
	TotalResponses int               `json:"total_responses"`
}

type TextResponse struct {
	Text       string    `json:"text"`
	AnsweredAt time.Time `json:"answered_at"`
}

type OpenTextResult struct {
	TotalResponses int            `json:"total_responses"`
	AvgLength      float64        `json:"avg_length"`
	Responses      []TextResponse `json:"responses"`
}

// VariantResult carries one monadic cell. YesPercent is meaningful for the
// binary format, Distribution and Top2Box for five-point.
type VariantResult struct {
	Key          string      `json:"key"`
	Label        string      `json:"label"`
	SampleSize   int         `json:"sample_size"`
	YesPercent   float64     `json:"yes_percent,omitempty"`
	Distribution map[int]int `json:"distribution,omitempty"`
	Top2Box      float64     `json:"top2_box,omitempty"`
}

type MonadicResult struct {
	Variants       []VariantResult       `json:"variants"`
	ResponseFormat survey.ResponseFormat `json:"response_format"`
	TotalResponses int                   `json:"total_responses"`
	WinnerKey      string                `json:"winner_key"`
}

type RankedItem struct {
	ID                string      `json:"id"`
	Label             string      `json:"label"`
	AvgRank           float64     `json:"avg_rank"`
	StdDev            float64     `json:"std_dev"`
	FirstPlacePercent float64     `json:"first_place_percent"`
	RankFrequency     map[int]int `json:"rank_frequency"`
}

type ConsensusLevel string

const (
	ConsensusHigh   ConsensusLevel = "high"
	ConsensusMedium ConsensusLevel = "medium"
	ConsensusLow    ConsensusLevel = "low"
)

type RankingResult struct {
	Items          []RankedItem   `json:"items"`
	TotalResponses int            `json:"total_responses"`
	ConsensusLevel ConsensusLevel `json:"consensus_level"`
}

type MaxDiffItem struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	BestCount       int     `json:"best_count"`
	WorstCount      int     `json:"worst_count"`
	ShownCount      int     `json:"shown_count"`
	Utility         float64 `json:"utility"`
	PreferenceShare float64 `json:"preference_share"`
}

type MaxDiffResult struct {
	Items          []MaxDiffItem `json:"items"`
	TotalSets      int           `json:"total_sets"`
	TotalResponses int           `json:"total_responses"`
}

type PricePoint struct {
	Price           float64 `json:"price"`
	WouldBuyPercent float64 `json:"would_buy_percent"`
	RevenueIndex    float64 `json:"revenue_index"`
}

type GaborGrangerResult struct {
	PricePoints    []PricePoint `json:"price_points"`
	OptimalPrice   float64      `json:"optimal_price"`
	PriceCeiling   float64      `json:"price_ceiling"`
	TotalResponses int          `json:"total_responses"`
	Currency       string       `json:"currency"`
}

type CurvePoint struct {
	Price      float64 `json:"price"`
	CumPercent float64 `json:"cum_percent"`
}

type VanWestendorpCurves struct {
	TooCheap     []CurvePoint `json:"too_cheap"`
	Bargain      []CurvePoint `json:"bargain"`
	Expensive    []CurvePoint `json:"expensive"`
	TooExpensive []CurvePoint `json:"too_expensive"`
}

// VanWestendorpResult reports the four standard crossing points: optimal
// price point, indifference price point, point of marginal cheapness and
// point of marginal expensiveness.
type VanWestendorpResult struct {
	PriceRange     []float64           `json:"price_range"`
	Curves         VanWestendorpCurves `json:"curves"`
	OPP            float64             `json:"opp"`
	IDP            float64             `json:"idp"`
	PMC            float64             `json:"pmc"`
	PME            float64             `json:"pme"`
	TotalResponses int                 `json:"total_responses"`
	Currency       string              `json:"currency"`
}

type AttributeResult struct {
	Attribute         string  `json:"attribute"`
	FitsPercent       float64 `json:"fits_percent"`
	DoesntFitPercent  float64 `json:"doesnt_fit_percent"`
	AvgReactionTimeMs float64 `json:"avg_reaction_time_ms"`
	TotalResponses    int     `json:"total_responses"`
}

type ImplicitAssociationResult struct {
	Attributes        []AttributeResult `json:"attributes"`
	AvgReactionTimeMs float64           `json:"avg_reaction_time_ms"`
	ExcludedTooFast   int               `json:"excluded_too_fast"`
	FlaggedTooSlow    int               `json:"flagged_too_slow"`
	TotalResponses    int               `json:"total_responses"`
}

// ZoneSummary tallies clicks falling inside one named attention zone. Zones
// overlap, so one click can count toward several.
type ZoneSummary struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	ClickCount  int      `json:"click_count"`
	Percent     float64  `json:"percent"`
	TopComments []string `json:"top_comments,omitempty"`
}

type HeatmapResult struct {
	Clicks                 []survey.Click `json:"clicks"`
	Zones                  []ZoneSummary  `json:"zones"`
	TotalClicks            int            `json:"total_clicks"`
	AvgClicksPerRespondent float64        `json:"avg_clicks_per_respondent"`
	TotalResponses         int            `json:"total_responses"`
	ImageURL               string         `json:"image_url,omitempty"`
}
