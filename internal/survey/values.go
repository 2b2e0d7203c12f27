package survey

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Answer value structs, one per question type. These are the shared wire
// schema between the synthesizer and the aggregation engine, so the JSON
// keys are fixed camelCase regardless of the service's own conventions.

type SingleChoiceValue struct {
	Selected string `json:"selected"`
}

type MultipleChoiceValue struct {
	Selected []string `json:"selected"`
}

type ScaledValue struct {
	Rating int `json:"rating"`
}

type OpenTextValue struct {
	Text string `json:"text"`
}

// MonadicValue keeps the response field raw because its shape depends on
// the question's response format: "yes"/"no" for binary, 1-5 for five-point.
type MonadicValue struct {
	Variant  string          `json:"variant"`
	Response json.RawMessage `json:"response"`
}

// BinaryResponse reads the response as a yes/no string.
func (v MonadicValue) BinaryResponse() (string, bool) {
	var s string
	if err := json.Unmarshal(v.Response, &s); err != nil {
		return "", false
	}
	return s, s == "yes" || s == "no"
}

// RatingResponse reads the response as a 1-5 rating.
func (v MonadicValue) RatingResponse() (int, bool) {
	var n int
	if err := json.Unmarshal(v.Response, &n); err != nil {
		return 0, false
	}
	return n, n >= 1 && n <= 5
}

func MonadicBinary(variant, yesNo string) MonadicValue {
	return MonadicValue{Variant: variant, Response: json.RawMessage(strconv.Quote(yesNo))}
}

func MonadicRating(variant string, rating int) MonadicValue {
	return MonadicValue{Variant: variant, Response: json.RawMessage(strconv.Itoa(rating))}
}

type RankingValue struct {
	Ranked []string `json:"ranked"`
}

type MaxDiffSet struct {
	Items []string `json:"items"`
	Best  string   `json:"best"`
	Worst string   `json:"worst"`
}

type MaxDiffValue struct {
	Sets []MaxDiffSet `json:"sets"`
}

type PriceResponse struct {
	Price    float64 `json:"price"`
	WouldBuy bool    `json:"wouldBuy"`
}

type GaborGrangerValue struct {
	Method    PricingMethod   `json:"method"`
	Responses []PriceResponse `json:"responses"`
}

type VanWestendorpValue struct {
	Method       PricingMethod `json:"method"`
	TooCheap     float64       `json:"tooCheap"`
	Bargain      float64       `json:"bargain"`
	Expensive    float64       `json:"expensive"`
	TooExpensive float64       `json:"tooExpensive"`
}

type Association struct {
	Attribute      string `json:"attribute"`
	Response       string `json:"response"` // "fits" or "doesnt_fit"
	ReactionTimeMs int    `json:"reactionTimeMs"`
}

type ImplicitAssociationValue struct {
	Associations []Association `json:"associations"`
}

type Click struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Comment string `json:"comment,omitempty"`
}

type HeatmapValue struct {
	Clicks []Click `json:"clicks"`
}

// MarshalValue encodes an answer value for storage. It never fails for the
// value types above; a marshal error yields an empty JSON object so one bad
// value cannot poison a batch.
func MarshalValue(v any) json.RawMessage {
	blob, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return blob
}

// DecodeValue fills dst from a raw answer value. Malformed or empty input
// leaves dst at its zero value and reports false; aggregators treat that as
// an empty answer rather than an error.
func DecodeValue(raw json.RawMessage, dst any) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || strings.TrimSpace(string(trimmed)) == "null" {
		return false
	}
	return json.Unmarshal(trimmed, dst) == nil
}
