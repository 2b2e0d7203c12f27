// Package oracle defines the contract with the external language model that
// supplies per-question probability specifications, builds the prompt that
// requests them, and parses the reply defensively. The oracle's output is
// advisory: every accessor substitutes a documented default when a key is
// missing, and nothing in this package ever panics on malformed input.
package oracle

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/insightmill/panelcraft/internal/survey"
)

// VariantSpec describes one monadic-split variant: a yes-probability for
// binary questions or a five-point distribution.
type VariantSpec struct {
	YesPercent   *float64           `json:"yesPercent,omitempty"`
	Distribution map[string]float64 `json:"distribution,omitempty"`
}

// AttributeSpec describes one implicit-association attribute.
type AttributeSpec struct {
	FitsPercent   float64 `json:"fitsPercent"`
	AvgReactionMs float64 `json:"avgReactionMs"`
}

// Hotspot describes one image-heatmap attention region. Coordinates and
// radius are percentages of the image extent.
type Hotspot struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Weight   float64  `json:"weight"`
	Radius   float64  `json:"radius"`
	Comments []string `json:"comments,omitempty"`
}

// MedianSet carries the four Van Westendorp price-perception parameters.
type MedianSet struct {
	TooCheap     float64 `json:"tooCheap"`
	Bargain      float64 `json:"bargain"`
	Expensive    float64 `json:"expensive"`
	TooExpensive float64 `json:"tooExpensive"`
}

// QuestionSpec is the untrusted per-question probability specification.
// Only the fields matching the question's type are meaningful; the rest
// stay zero-valued.
type QuestionSpec struct {
	Distribution     map[string]float64       `json:"distribution,omitempty"`
	SelectionRates   map[string]float64       `json:"selectionRates,omitempty"`
	Responses        []string                 `json:"responses,omitempty"`
	Variants         map[string]VariantSpec   `json:"variants,omitempty"`
	StrengthScores   map[string]float64       `json:"strengthScores,omitempty"`
	UtilityScores    map[string]float64       `json:"utilityScores,omitempty"`
	BuyProbabilities map[string]float64       `json:"buyProbabilities,omitempty"`
	Medians          *MedianSet               `json:"medians,omitempty"`
	StdDevs          *MedianSet               `json:"stdDevs,omitempty"`
	Attributes       map[string]AttributeSpec `json:"attributes,omitempty"`
	Hotspots         []Hotspot                `json:"hotspots,omitempty"`
}

// PanelSpec maps question id to its probability specification.
type PanelSpec map[string]QuestionSpec

// Defaults applied when the oracle omits a key. Values follow the original
// panel-generation contract.
var (
	DefaultMedians = MedianSet{TooCheap: 0.5, Bargain: 1.0, Expensive: 2.0, TooExpensive: 3.0}
	DefaultStdDevs = MedianSet{TooCheap: 0.2, Bargain: 0.3, Expensive: 0.4, TooExpensive: 0.5}
)

const (
	DefaultYesPercent     = 50.0
	DefaultStrengthScore  = 50.0
	DefaultBuyProbability = 50.0
	DefaultFitsPercent    = 50.0
	DefaultReactionMs     = 500.0
	DefaultFlatWeight     = 20.0
)

// MediansOrDefault returns the declared medians, or the documented defaults.
func (s QuestionSpec) MediansOrDefault() MedianSet {
	if s.Medians == nil {
		return DefaultMedians
	}
	return *s.Medians
}

// StdDevsOrDefault returns the declared standard deviations, or defaults.
func (s QuestionSpec) StdDevsOrDefault() MedianSet {
	if s.StdDevs == nil {
		return DefaultStdDevs
	}
	return *s.StdDevs
}

// DistributionFor resolves the weighted-choice distribution for a question:
// the declared percentage map when present, otherwise equal weight across
// the question's declared options.
func (s QuestionSpec) DistributionFor(q survey.Question) ([]string, []float64) {
	if len(s.Distribution) > 0 {
		return splitMap(s.Distribution)
	}
	ids := q.OptionIDs()
	weights := make([]float64, len(ids))
	for i := range weights {
		weights[i] = 1
	}
	return ids, weights
}

// SelectionRatesFor resolves per-option Bernoulli rates, defaulting to an
// even 50% for every declared option.
func (s QuestionSpec) SelectionRatesFor(q survey.Question) ([]string, []float64) {
	if len(s.SelectionRates) > 0 {
		return splitMap(s.SelectionRates)
	}
	ids := q.OptionIDs()
	rates := make([]float64, len(ids))
	for i := range rates {
		rates[i] = 50
	}
	return ids, rates
}

// ScaleDistributionFor resolves per-point weights for a discrete scale.
// Points absent from the declared distribution get zero weight; a wholly
// absent distribution degrades to flat weights.
func (s QuestionSpec) ScaleDistributionFor(scaleMax int) ([]int, []float64) {
	points := make([]int, scaleMax)
	weights := make([]float64, scaleMax)
	for i := 0; i < scaleMax; i++ {
		points[i] = i + 1
		if len(s.Distribution) == 0 {
			weights[i] = 1
			continue
		}
		weights[i] = s.Distribution[strconv.Itoa(i+1)]
	}
	return points, weights
}

// StrengthScoresFor resolves ranking strength scores over the question's
// items, defaulting any missing item to DefaultStrengthScore so that every
// declared item appears in every generated ranking.
func (s QuestionSpec) StrengthScoresFor(q survey.Question) ([]string, []float64) {
	ids := q.OptionIDs()
	if len(ids) == 0 {
		ids, _ = splitMap(s.StrengthScores)
	}
	scores := make([]float64, len(ids))
	for i, id := range ids {
		if v, ok := s.StrengthScores[id]; ok {
			scores[i] = v
		} else {
			scores[i] = DefaultStrengthScore
		}
	}
	return ids, scores
}

// UtilityScoresFor resolves MaxDiff utilities over the question's items,
// defaulting missing items to zero utility.
func (s QuestionSpec) UtilityScoresFor(q survey.Question) ([]string, []float64) {
	ids := q.OptionIDs()
	if len(ids) == 0 {
		ids, _ = splitMap(s.UtilityScores)
	}
	scores := make([]float64, len(ids))
	for i, id := range ids {
		scores[i] = s.UtilityScores[id]
	}
	return ids, scores
}

// BuyProbabilitiesFor resolves the price ladder and per-price buy
// probabilities: declared spec keys when present, otherwise the question's
// authored price points at the default probability.
func (s QuestionSpec) BuyProbabilitiesFor(q survey.Question) ([]float64, map[float64]float64) {
	probs := map[float64]float64{}
	var prices []float64
	for k, v := range s.BuyProbabilities {
		p, err := strconv.ParseFloat(strings.TrimSpace(k), 64)
		if err != nil {
			continue
		}
		prices = append(prices, p)
		probs[p] = v
	}
	if len(prices) == 0 {
		for _, p := range q.Settings.PricePoints {
			prices = append(prices, p)
			probs[p] = DefaultBuyProbability
		}
	}
	sort.Float64s(prices)
	return prices, probs
}

// AttributesFor resolves implicit-association attributes: the declared spec
// map when present, otherwise the question's authored attribute list at
// default fit and reaction parameters.
func (s QuestionSpec) AttributesFor(q survey.Question) ([]string, map[string]AttributeSpec) {
	if len(s.Attributes) > 0 {
		names := make([]string, 0, len(s.Attributes))
		for name := range s.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, s.Attributes
	}
	attrs := map[string]AttributeSpec{}
	for _, name := range q.Settings.Attributes {
		attrs[name] = AttributeSpec{FitsPercent: DefaultFitsPercent, AvgReactionMs: DefaultReactionMs}
	}
	return q.Settings.Attributes, attrs
}

// HotspotsOrDefault returns the declared hotspots, or a single centered
// region so that click generation stays total.
func (s QuestionSpec) HotspotsOrDefault() []Hotspot {
	if len(s.Hotspots) > 0 {
		return s.Hotspots
	}
	return []Hotspot{{X: 50, Y: 50, Weight: 100, Radius: 15}}
}

// VariantFor returns the declared spec for a variant and whether it exists.
func (s QuestionSpec) VariantFor(id string) (VariantSpec, bool) {
	v, ok := s.Variants[id]
	return v, ok
}

// ParsePanelSpec decodes the oracle's reply into a PanelSpec. Markdown code
// fences are stripped first. A reply that fails to decode yields an empty
// spec and the error for logging; callers proceed with defaults.
func ParsePanelSpec(raw string) (PanelSpec, error) {
	clean := stripCodeFences(raw)
	var spec PanelSpec
	if err := json.Unmarshal([]byte(clean), &spec); err != nil {
		return PanelSpec{}, err
	}
	if spec == nil {
		spec = PanelSpec{}
	}
	return spec, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// splitMap returns a map's keys sorted for deterministic iteration, with
// values aligned by index.
func splitMap(m map[string]float64) ([]string, []float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]float64, len(keys))
	for i, k := range keys {
		vals[i] = m[k]
	}
	return keys, vals
}
