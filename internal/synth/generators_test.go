package synth

import (
	"testing"

	"github.com/insightmill/panelcraft/internal/oracle"
	"github.com/insightmill/panelcraft/internal/sampling"
	"github.com/insightmill/panelcraft/internal/survey"
)

func TestMultipleChoiceNeverEmpty(t *testing.T) {
	rng := sampling.New(5)
	ids := []string{"a", "b", "c"}
	rates := []float64{1, 1, 1} // almost every draw misses and must be forced
	for _, v := range MultipleChoice(ids, rates, 200, rng) {
		if len(v.Selected) == 0 {
			t.Fatal("respondent with no selections")
		}
	}
}

func TestRankingIsAlwaysFullPermutation(t *testing.T) {
	rng := sampling.New(17)
	ids := []string{"w", "x", "y", "z"}
	scores := []float64{90, 50, 30, 10}
	for _, v := range Ranking(ids, scores, 100, rng) {
		if len(v.Ranked) != len(ids) {
			t.Fatalf("ranking has %d items, want %d", len(v.Ranked), len(ids))
		}
		seen := map[string]bool{}
		for _, id := range v.Ranked {
			if seen[id] {
				t.Fatalf("item %q ranked twice", id)
			}
			seen[id] = true
		}
	}
}

func TestRankingStrongItemUsuallyFirst(t *testing.T) {
	rng := sampling.New(23)
	ids := []string{"strong", "weak"}
	scores := []float64{95, 5}
	firsts := 0
	for _, v := range Ranking(ids, scores, 500, rng) {
		if v.Ranked[0] == "strong" {
			firsts++
		}
	}
	if firsts < 350 {
		t.Fatalf("strong item first only %d/500 times", firsts)
	}
}

func TestMaxDiffSetInvariants(t *testing.T) {
	rng := sampling.New(31)
	ids := []string{"a", "b", "c", "d", "e", "f"}
	utilities := []float64{2, 1, 0.5, 0, -1, -2}
	itemsPerSet := 4
	wantSets := (3*len(ids) + itemsPerSet - 1) / itemsPerSet

	for _, v := range MaxDiff(ids, utilities, itemsPerSet, 50, rng) {
		if len(v.Sets) != wantSets {
			t.Fatalf("respondent has %d sets, want %d", len(v.Sets), wantSets)
		}
		for _, set := range v.Sets {
			if len(set.Items) != itemsPerSet {
				t.Fatalf("set has %d items, want %d", len(set.Items), itemsPerSet)
			}
			if set.Best == set.Worst {
				t.Fatalf("best and worst are both %q", set.Best)
			}
			if !contains(set.Items, set.Best) || !contains(set.Items, set.Worst) {
				t.Fatal("best/worst not drawn from the set items")
			}
		}
	}
}

func TestVanWestendorpOrderingHolds(t *testing.T) {
	rng := sampling.New(41)
	medians := oracle.MedianSet{TooCheap: 2, Bargain: 1, Expensive: 0.5, TooExpensive: 0.2} // deliberately inverted
	stdDevs := oracle.MedianSet{TooCheap: 1, Bargain: 1, Expensive: 1, TooExpensive: 1}
	for _, v := range VanWestendorp(medians, stdDevs, 300, rng) {
		if v.TooCheap <= 0 {
			t.Fatalf("tooCheap not positive: %f", v.TooCheap)
		}
		if !(v.TooCheap < v.Bargain && v.Bargain < v.Expensive && v.Expensive < v.TooExpensive) {
			t.Fatalf("ordering violated: %f %f %f %f", v.TooCheap, v.Bargain, v.Expensive, v.TooExpensive)
		}
	}
}

func TestGaborGrangerCoversEveryPrice(t *testing.T) {
	rng := sampling.New(53)
	prices := []float64{0.99, 1.29, 1.59}
	probs := map[float64]float64{0.99: 90, 1.29: 60, 1.59: 20}
	for _, v := range GaborGranger(prices, probs, 50, rng) {
		if v.Method != survey.MethodGaborGranger {
			t.Fatalf("unexpected method %q", v.Method)
		}
		if len(v.Responses) != len(prices) {
			t.Fatalf("respondent answered %d prices, want %d", len(v.Responses), len(prices))
		}
		for i, r := range v.Responses {
			if r.Price != prices[i] {
				t.Fatalf("price %d is %f, want %f", i, r.Price, prices[i])
			}
		}
	}
}

func TestImplicitAssociationReactionFloor(t *testing.T) {
	rng := sampling.New(61)
	attrs := []string{"premium", "fun"}
	data := map[string]oracle.AttributeSpec{
		"premium": {FitsPercent: 70, AvgReactionMs: 210},
		"fun":     {FitsPercent: 30, AvgReactionMs: 500},
	}
	for _, v := range ImplicitAssociation(attrs, data, 100, rng) {
		if len(v.Associations) != 2 {
			t.Fatalf("expected 2 associations, got %d", len(v.Associations))
		}
		for _, a := range v.Associations {
			if a.ReactionTimeMs < 200 {
				t.Fatalf("reaction time below floor: %d", a.ReactionTimeMs)
			}
			if a.Response != "fits" && a.Response != "doesnt_fit" {
				t.Fatalf("unexpected response %q", a.Response)
			}
		}
	}
}

func TestImageHeatmapClicksInBounds(t *testing.T) {
	rng := sampling.New(71)
	spots := []oracle.Hotspot{
		{X: 10, Y: 10, Weight: 60, Radius: 15, Comments: []string{"nice"}},
		{X: 90, Y: 90, Weight: 40, Radius: 15},
	}
	maxClicks := 3
	for _, v := range ImageHeatmap(spots, maxClicks, 200, rng) {
		if len(v.Clicks) < 1 || len(v.Clicks) > maxClicks {
			t.Fatalf("click count out of range: %d", len(v.Clicks))
		}
		for _, c := range v.Clicks {
			if c.X < 0 || c.X > 100 || c.Y < 0 || c.Y > 100 {
				t.Fatalf("click out of bounds: (%d,%d)", c.X, c.Y)
			}
		}
	}
}

func TestMonadicSplitAssignsKnownVariants(t *testing.T) {
	rng := sampling.New(83)
	yes := 100.0
	spec := map[string]oracle.VariantSpec{"a": {YesPercent: &yes}}
	variantIDs := []string{"a", "b"}
	sawB := false
	for _, v := range MonadicSplit(spec, variantIDs, survey.FormatBinary, 200, rng) {
		if v.Variant != "a" && v.Variant != "b" {
			t.Fatalf("unknown variant %q", v.Variant)
		}
		s, ok := v.BinaryResponse()
		if !ok {
			t.Fatalf("non-binary response %s", v.Response)
		}
		if v.Variant == "a" && s != "yes" {
			t.Fatal("variant a has 100% yes spec but answered no")
		}
		if v.Variant == "b" {
			sawB = true
			if s != "yes" {
				t.Fatal("variant without spec should default to yes")
			}
		}
	}
	if !sawB {
		t.Fatal("uniform assignment never picked variant b in 200 draws")
	}
}

func contains(items []string, want string) bool {
	for _, v := range items {
		if v == want {
			return true
		}
	}
	return false
}
