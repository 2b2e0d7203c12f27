// Package synth generates synthetic panel responses from oracle-supplied
// probability specifications. Every generator is a pure function of its
// inputs and the random stream, so a panel is reproducible from its seed.
package synth

import (
	"math"
	"strconv"

	"github.com/insightmill/panelcraft/internal/oracle"
	"github.com/insightmill/panelcraft/internal/sampling"
	"github.com/insightmill/panelcraft/internal/survey"
)

// perRespondentSensitivityRange spreads each respondent's price sensitivity
// offset uniformly over [-10, +10] percentage points.
const perRespondentSensitivityRange = 20.0

// maxDiffNoiseRange jitters item utilities within a set by [-0.75, +0.75].
const maxDiffNoiseRange = 1.5

// minReactionMs floors implicit-association reaction times.
const minReactionMs = 200

// SingleChoice draws count selections from a weighted option distribution.
func SingleChoice(ids []string, weights []float64, count int, rng *sampling.Rng) []survey.SingleChoiceValue {
	out := make([]survey.SingleChoiceValue, count)
	for i := range out {
		if idx := sampling.WeightedChoice(weights, rng); idx >= 0 {
			out[i].Selected = ids[idx]
		}
	}
	return out
}

// MultipleChoice draws count selection sets. Each option is an independent
// Bernoulli trial against its selection rate; an empty draw is forced to
// include the first option so no respondent submits a blank answer.
func MultipleChoice(ids []string, rates []float64, count int, rng *sampling.Rng) []survey.MultipleChoiceValue {
	out := make([]survey.MultipleChoiceValue, count)
	for i := range out {
		var selected []string
		for j, id := range ids {
			if rng.Next()*100 < rates[j] {
				selected = append(selected, id)
			}
		}
		if len(selected) == 0 && len(ids) > 0 {
			selected = append(selected, ids[0])
		}
		out[i].Selected = selected
	}
	return out
}

// Scaled draws count ratings from a weighted distribution over scale points.
func Scaled(points []int, weights []float64, count int, rng *sampling.Rng) []survey.ScaledValue {
	out := make([]survey.ScaledValue, count)
	for i := range out {
		if idx := sampling.WeightedChoice(weights, rng); idx >= 0 {
			out[i].Rating = points[idx]
		}
	}
	return out
}

// OpenText samples count texts uniformly from the response pool. An empty
// pool yields the placeholder text for every respondent.
func OpenText(pool []string, count int, rng *sampling.Rng) []survey.OpenTextValue {
	out := make([]survey.OpenTextValue, count)
	for i := range out {
		if len(pool) == 0 {
			out[i].Text = "No response"
			continue
		}
		out[i].Text = pool[rng.Intn(len(pool))]
	}
	return out
}

// MonadicSplit assigns each respondent one variant uniformly and draws the
// response under that variant's spec. A variant with no spec gets the
// neutral answer for the format.
func MonadicSplit(spec map[string]oracle.VariantSpec, variantIDs []string, format survey.ResponseFormat, count int, rng *sampling.Rng) []survey.MonadicValue {
	fivePoints := []int{1, 2, 3, 4, 5}
	out := make([]survey.MonadicValue, count)
	for i := range out {
		variant := variantIDs[rng.Intn(len(variantIDs))]
		v, ok := spec[variant]
		if !ok {
			if format == survey.FormatBinary {
				out[i] = survey.MonadicBinary(variant, "yes")
			} else {
				out[i] = survey.MonadicRating(variant, 3)
			}
			continue
		}
		if format == survey.FormatBinary {
			yp := 50.0
			if v.YesPercent != nil {
				yp = *v.YesPercent
			}
			answer := "no"
			if rng.Next()*100 < yp {
				answer = "yes"
			}
			out[i] = survey.MonadicBinary(variant, answer)
			continue
		}
		weights := make([]float64, len(fivePoints))
		for j, p := range fivePoints {
			weights[j] = scaleWeight(v.Distribution, p)
		}
		idx := sampling.WeightedChoice(weights, rng)
		out[i] = survey.MonadicRating(variant, fivePoints[idx])
	}
	return out
}

// Ranking produces count full orderings by sampling without replacement:
// each position is a weighted draw over the remaining items, with per-draw
// noise so strong items usually but not always rank first.
func Ranking(ids []string, scores []float64, count int, rng *sampling.Rng) []survey.RankingValue {
	scoreByID := make(map[string]float64, len(ids))
	for i, id := range ids {
		scoreByID[id] = scores[i]
	}
	out := make([]survey.RankingValue, count)
	for i := range out {
		remaining := make([]string, len(ids))
		copy(remaining, ids)
		ranked := make([]string, 0, len(ids))
		for len(remaining) > 0 {
			weights := make([]float64, len(remaining))
			for j, id := range remaining {
				s := scoreByID[id]
				if s == 0 {
					s = 50
				}
				weights[j] = math.Max(1, s) + rng.Next()*10
			}
			idx := sampling.WeightedChoice(weights, rng)
			ranked = append(ranked, remaining[idx])
			remaining = append(remaining[:idx], remaining[idx+1:]...)
		}
		out[i].Ranked = ranked
	}
	return out
}

// MaxDiff builds ceil(3n/itemsPerSet) choice sets per respondent from a
// fresh shuffle, wrapping around the item list so every item is shown about
// three times, then picks best and worst by jittered utility.
func MaxDiff(ids []string, utilities []float64, itemsPerSet, count int, rng *sampling.Rng) []survey.MaxDiffValue {
	utilByID := make(map[string]float64, len(ids))
	for i, id := range ids {
		utilByID[id] = utilities[i]
	}
	numSets := (3*len(ids) + itemsPerSet - 1) / itemsPerSet
	out := make([]survey.MaxDiffValue, count)
	for i := range out {
		shuffled := sampling.Shuffle(ids, rng)
		sets := make([]survey.MaxDiffSet, 0, numSets)
		for s := 0; s < numSets; s++ {
			items := make([]string, itemsPerSet)
			for k := 0; k < itemsPerSet; k++ {
				items[k] = shuffled[(s*itemsPerSet+k)%len(ids)]
			}
			best, worst := items[0], items[0]
			bestScore := math.Inf(-1)
			worstScore := math.Inf(1)
			for _, id := range items {
				score := utilByID[id] + (rng.Next()-0.5)*maxDiffNoiseRange
				if score > bestScore {
					bestScore, best = score, id
				}
				if score < worstScore {
					worstScore, worst = score, id
				}
			}
			sets = append(sets, survey.MaxDiffSet{Items: items, Best: best, Worst: worst})
		}
		out[i].Sets = sets
	}
	return out
}

// GaborGranger walks each respondent down the price ladder. A persistent
// per-respondent sensitivity offset shifts every buy probability, so one
// respondent's answers are internally consistent across prices.
func GaborGranger(prices []float64, probs map[float64]float64, count int, rng *sampling.Rng) []survey.GaborGrangerValue {
	out := make([]survey.GaborGrangerValue, count)
	for i := range out {
		sensitivity := (rng.Next() - 0.5) * perRespondentSensitivityRange
		responses := make([]survey.PriceResponse, len(prices))
		for j, price := range prices {
			p := probs[price]
			if p == 0 {
				p = 50
			}
			responses[j] = survey.PriceResponse{
				Price:    price,
				WouldBuy: rng.Next()*100 < p+sensitivity,
			}
		}
		out[i] = survey.GaborGrangerValue{Method: survey.MethodGaborGranger, Responses: responses}
	}
	return out
}

// VanWestendorp draws the four price perceptions from independent gaussians
// and then repairs ordering so tooCheap < bargain < expensive < tooExpensive
// holds strictly for every respondent. Prices are rounded to pennies.
func VanWestendorp(medians, stdDevs oracle.MedianSet, count int, rng *sampling.Rng) []survey.VanWestendorpValue {
	out := make([]survey.VanWestendorpValue, count)
	for i := range out {
		tc := sampling.Gaussian(medians.TooCheap, stdDevs.TooCheap, rng)
		bg := sampling.Gaussian(medians.Bargain, stdDevs.Bargain, rng)
		ex := sampling.Gaussian(medians.Expensive, stdDevs.Expensive, rng)
		te := sampling.Gaussian(medians.TooExpensive, stdDevs.TooExpensive, rng)
		tc = math.Max(0.01, tc)
		bg = math.Max(tc+0.01, bg)
		ex = math.Max(bg+0.01, ex)
		te = math.Max(ex+0.01, te)
		out[i] = survey.VanWestendorpValue{
			Method:       survey.MethodVanWestendorp,
			TooCheap:     round2(tc),
			Bargain:      round2(bg),
			Expensive:    round2(ex),
			TooExpensive: round2(te),
		}
	}
	return out
}

// ImplicitAssociation draws a fits/doesnt_fit verdict per attribute with a
// reaction time sampled around the attribute's mean at 25% relative spread,
// floored at the physiological minimum.
func ImplicitAssociation(attrs []string, data map[string]oracle.AttributeSpec, count int, rng *sampling.Rng) []survey.ImplicitAssociationValue {
	out := make([]survey.ImplicitAssociationValue, count)
	for i := range out {
		assocs := make([]survey.Association, len(attrs))
		for j, attr := range attrs {
			d := data[attr]
			fits := rng.Next()*100 < d.FitsPercent
			rt := sampling.Gaussian(d.AvgReactionMs, d.AvgReactionMs*0.25, rng)
			rt = math.Max(minReactionMs, rt)
			response := "doesnt_fit"
			if fits {
				response = "fits"
			}
			assocs[j] = survey.Association{
				Attribute:      attr,
				Response:       response,
				ReactionTimeMs: int(math.Round(rt)),
			}
		}
		out[i].Associations = assocs
	}
	return out
}

// ImageHeatmap scatters 1..maxClicks clicks per respondent around weighted
// hotspots, with gaussian spread equal to the hotspot radius and coordinates
// clamped to the image extent.
func ImageHeatmap(spots []oracle.Hotspot, maxClicks, count int, rng *sampling.Rng) []survey.HeatmapValue {
	weights := make([]float64, len(spots))
	for i, s := range spots {
		weights[i] = s.Weight
	}
	out := make([]survey.HeatmapValue, count)
	for i := range out {
		numClicks := rng.Intn(maxClicks) + 1
		clicks := make([]survey.Click, numClicks)
		for c := 0; c < numClicks; c++ {
			spot := spots[sampling.WeightedChoice(weights, rng)]
			x := clampRound(sampling.Gaussian(spot.X, spot.Radius, rng))
			y := clampRound(sampling.Gaussian(spot.Y, spot.Radius, rng))
			click := survey.Click{X: x, Y: y}
			if len(spot.Comments) > 0 {
				click.Comment = spot.Comments[rng.Intn(len(spot.Comments))]
			}
			clicks[c] = click
		}
		out[i].Clicks = clicks
	}
	return out
}

func scaleWeight(dist map[string]float64, point int) float64 {
	if w, ok := dist[strconv.Itoa(point)]; ok && w != 0 {
		return w
	}
	return 20
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampRound(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}
