package aggregate

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/insightmill/panelcraft/internal/survey"
)

// Heuristic thresholds surfaced alongside the numbers so the presentation
// layer can annotate results without re-deriving them.
const (
	clearWinnerPercent = 40.0
	closeContestMargin = 5.0
	cutLineGapPercent  = 15.0

	consensusHighStdDev   = 1.0
	consensusMediumStdDev = 2.0

	minValidReactionMs = 200
	slowReactionMs     = 800

	ceilingBuyPercent = 50.0

	vanWestendorpSteps = 50

	maxZoneComments = 3
)

// ForQuestion dispatches a question's answers to the aggregator for its
// type. The answers slice may span the whole project; each aggregator
// filters to its own question. An unknown question type yields nil.
func ForQuestion(q survey.Question, answers []survey.Answer) any {
	switch q.Type {
	case survey.TypeSingleChoice:
		return SingleChoice(q, answers)
	case survey.TypeMultipleChoice:
		return MultipleChoice(q, answers)
	case survey.TypeScaledResponse:
		return Scaled(q, answers)
	case survey.TypeOpenText:
		return OpenText(q, answers)
	case survey.TypeMonadicSplit:
		return Monadic(q, answers)
	case survey.TypeRanking:
		return Ranking(q, answers)
	case survey.TypeMaxDiff:
		return MaxDiff(q, answers)
	case survey.TypeAnchoredPricing:
		if q.Settings.PricingMethodOrDefault() == survey.MethodGaborGranger {
			return GaborGranger(q, answers)
		}
		return VanWestendorp(q, answers)
	case survey.TypeImplicitAssociation:
		return ImplicitAssociation(q, answers)
	case survey.TypeImageHeatmap:
		return Heatmap(q, answers)
	}
	return nil
}

// SingleChoice tallies selections per option, ranks options by count and
// annotates the race: a clear winner above the threshold, or a contest too
// close to call.
func SingleChoice(q survey.Question, answers []survey.Answer) SingleChoiceResult {
	qAnswers := answersFor(answers, q.ID)
	total := len(qAnswers)

	counts := map[string]int{"none": 0}
	for _, o := range q.Options {
		counts[o.ID] = 0
	}
	for _, a := range qAnswers {
		var v survey.SingleChoiceValue
		if survey.DecodeValue(a.Value, &v) {
			counts[v.Selected]++
		}
	}

	options := make([]OptionCount, len(q.Options))
	for i, o := range q.Options {
		options[i] = OptionCount{
			ID:      o.ID,
			Label:   o.Label,
			Count:   counts[o.ID],
			Percent: percent(counts[o.ID], total),
		}
	}
	sort.SliceStable(options, func(i, j int) bool { return options[i].Count > options[j].Count })

	var topPercent, secondPercent float64
	if len(options) > 0 {
		topPercent = options[0].Percent
	}
	if len(options) > 1 {
		secondPercent = options[1].Percent
	}

	return SingleChoiceResult{
		Options:        options,
		TotalResponses: total,
		NoneCount:      counts["none"],
		NonePercent:    percent(counts["none"], total),
		ClearWinner:    topPercent > clearWinnerPercent,
		CloseContest:   math.Abs(topPercent-secondPercent) <= closeContestMargin,
	}
}

// MultipleChoice tallies per-option selection against the respondent count
// and finds the natural cut line, the first gap between consecutive ranked
// options wider than the threshold.
func MultipleChoice(q survey.Question, answers []survey.Answer) MultipleChoiceResult {
	qAnswers := answersFor(answers, q.ID)
	total := len(qAnswers)

	counts := make(map[string]int, len(q.Options))
	totalSelections := 0
	for _, a := range qAnswers {
		var v survey.MultipleChoiceValue
		if !survey.DecodeValue(a.Value, &v) {
			continue
		}
		totalSelections += len(v.Selected)
		for _, id := range v.Selected {
			counts[id]++
		}
	}

	options := make([]OptionCount, len(q.Options))
	for i, o := range q.Options {
		options[i] = OptionCount{
			ID:      o.ID,
			Label:   o.Label,
			Count:   counts[o.ID],
			Percent: percent(counts[o.ID], total),
		}
	}
	sort.SliceStable(options, func(i, j int) bool { return options[i].Count > options[j].Count })

	var cutLine *int
	for i := 0; i < len(options)-1; i++ {
		if options[i].Percent-options[i+1].Percent > cutLineGapPercent {
			idx := i
			cutLine = &idx
			break
		}
	}

	avg := 0.0
	if total > 0 {
		avg = float64(totalSelections) / float64(total)
	}
	return MultipleChoiceResult{
		Options:                    options,
		TotalResponses:             total,
		AvgSelectionsPerRespondent: avg,
		CutLineIndex:               cutLine,
	}
}

// Scaled computes the full distribution over scale points plus mean,
// standard deviation, top-two and bottom-two box percentages and the net
// score between them.
func Scaled(q survey.Question, answers []survey.Answer) ScaledResult {
	qAnswers := answersFor(answers, q.ID)
	scaleMax := q.Settings.ScalePointsOrDefault()
	labels := q.Settings.ScaleLabels

	var ratings []float64
	for _, a := range qAnswers {
		var v survey.ScaledValue
		if survey.DecodeValue(a.Value, &v) {
			ratings = append(ratings, float64(v.Rating))
		}
	}
	n := len(ratings)

	dist := make([]ScalePointCount, scaleMax)
	top2, bottom2 := 0, 0
	for i := 1; i <= scaleMax; i++ {
		count := 0
		for _, r := range ratings {
			if int(r) == i {
				count++
			}
		}
		label := strconv.Itoa(i)
		if i-1 < len(labels) && labels[i-1] != "" {
			label = labels[i-1]
		}
		dist[i-1] = ScalePointCount{Point: i, Label: label, Count: count, Percent: percent(count, n)}
	}
	for _, r := range ratings {
		if int(r) >= scaleMax-1 {
			top2++
		}
		if int(r) <= 2 {
			bottom2++
		}
	}

	return ScaledResult{
		Distribution:   dist,
		Mean:           mean(ratings),
		StdDev:         stdDev(ratings),
		ScaleMax:       scaleMax,
		Top2Box:        percent(top2, n),
		Bottom2Box:     percent(bottom2, n),
		NetScore:       percent(top2-bottom2, n),
		TotalResponses: n,
	}
}

// OpenText collects the verbatims with their timestamps and the average
// response length.
func OpenText(q survey.Question, answers []survey.Answer) OpenTextResult {
	qAnswers := answersFor(answers, q.ID)

	responses := make([]TextResponse, 0, len(qAnswers))
	totalLength := 0
	for _, a := range qAnswers {
		var v survey.OpenTextValue
		if !survey.DecodeValue(a.Value, &v) {
			continue
		}
		responses = append(responses, TextResponse{Text: v.Text, AnsweredAt: a.AnsweredAt})
		totalLength += len(v.Text)
	}

	avg := 0.0
	if len(responses) > 0 {
		avg = float64(totalLength) / float64(len(responses))
	}
	return OpenTextResult{
		TotalResponses: len(responses),
		AvgLength:      avg,
		Responses:      responses,
	}
}

// Monadic splits answers by variant cell and scores each cell: yes-percent
// for binary questions, top-two box over the five-point distribution
// otherwise. The winner is the cell with the highest score.
func Monadic(q survey.Question, answers []survey.Answer) MonadicResult {
	qAnswers := answersFor(answers, q.ID)
	format := q.Settings.ResponseFormatOrDefault()

	byVariant := map[string][]survey.MonadicValue{}
	decoded := 0
	for _, a := range qAnswers {
		var v survey.MonadicValue
		if !survey.DecodeValue(a.Value, &v) {
			continue
		}
		decoded++
		byVariant[v.Variant] = append(byVariant[v.Variant], v)
	}

	labelByID := map[string]string{}
	for _, o := range q.Options {
		labelByID[o.ID] = o.Label
	}

	variantIDs := q.VariantIDs()
	variants := make([]VariantResult, len(variantIDs))
	for i, key := range variantIDs {
		cell := byVariant[key]
		vr := VariantResult{Key: key, SampleSize: len(cell)}
		if label, ok := labelByID[key]; ok {
			vr.Label = label
		} else {
			vr.Label = "Variant " + strings.ToUpper(key)
		}

		if format == survey.FormatBinary {
			yes := 0
			for _, v := range cell {
				if s, ok := v.BinaryResponse(); ok && s == "yes" {
					yes++
				}
			}
			vr.YesPercent = percent(yes, len(cell))
		} else {
			dist := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
			for _, v := range cell {
				if r, ok := v.RatingResponse(); ok {
					dist[r]++
				}
			}
			vr.Distribution = dist
			vr.Top2Box = percent(dist[4]+dist[5], len(cell))
		}
		variants[i] = vr
	}

	winner := ""
	if len(variants) > 0 {
		best := variants[0]
		for _, v := range variants[1:] {
			if format == survey.FormatBinary {
				if v.YesPercent > best.YesPercent {
					best = v
				}
			} else if v.Top2Box > best.Top2Box {
				best = v
			}
		}
		winner = best.Key
	}

	return MonadicResult{
		Variants:       variants,
		ResponseFormat: format,
		TotalResponses: len(qAnswers),
		WinnerKey:      winner,
	}
}

// Ranking computes per-item average rank, rank spread, first-place share
// and the full rank frequency table, then grades panel consensus by the
// mean rank spread.
func Ranking(q survey.Question, answers []survey.Answer) RankingResult {
	qAnswers := answersFor(answers, q.ID)
	total := len(qAnswers)

	itemRanks := map[string][]float64{}
	for _, o := range q.Options {
		itemRanks[o.ID] = nil
	}
	for _, a := range qAnswers {
		var v survey.RankingValue
		if !survey.DecodeValue(a.Value, &v) {
			continue
		}
		for idx, itemID := range v.Ranked {
			itemRanks[itemID] = append(itemRanks[itemID], float64(idx+1))
		}
	}

	items := make([]RankedItem, len(q.Options))
	for i, o := range q.Options {
		ranks := itemRanks[o.ID]
		freq := make(map[int]int, len(q.Options))
		for r := 1; r <= len(q.Options); r++ {
			freq[r] = 0
		}
		for _, r := range ranks {
			freq[int(r)]++
		}
		items[i] = RankedItem{
			ID:                o.ID,
			Label:             o.Label,
			AvgRank:           mean(ranks),
			StdDev:            stdDev(ranks),
			FirstPlacePercent: percent(freq[1], total),
			RankFrequency:     freq,
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].AvgRank < items[j].AvgRank })

	spreads := make([]float64, len(items))
	for i, it := range items {
		spreads[i] = it.StdDev
	}
	avgSpread := mean(spreads)
	level := ConsensusLow
	switch {
	case avgSpread < consensusHighStdDev:
		level = ConsensusHigh
	case avgSpread < consensusMediumStdDev:
		level = ConsensusMedium
	}

	return RankingResult{Items: items, TotalResponses: total, ConsensusLevel: level}
}

// MaxDiff scores each item by (best - worst) / shown and rescales shifted
// utilities into preference shares summing to 100.
func MaxDiff(q survey.Question, answers []survey.Answer) MaxDiffResult {
	qAnswers := answersFor(answers, q.ID)

	type stats struct{ best, worst, shown int }
	itemStats := map[string]*stats{}
	for _, o := range q.Options {
		itemStats[o.ID] = &stats{}
	}

	totalSets := 0
	for _, a := range qAnswers {
		var v survey.MaxDiffValue
		if !survey.DecodeValue(a.Value, &v) {
			continue
		}
		totalSets += len(v.Sets)
		for _, set := range v.Sets {
			for _, itemID := range set.Items {
				if s, ok := itemStats[itemID]; ok {
					s.shown++
				}
			}
			if s, ok := itemStats[set.Best]; ok {
				s.best++
			}
			if s, ok := itemStats[set.Worst]; ok {
				s.worst++
			}
		}
	}

	items := make([]MaxDiffItem, len(q.Options))
	for i, o := range q.Options {
		s := itemStats[o.ID]
		utility := 0.0
		if s.shown > 0 {
			utility = float64(s.best-s.worst) / float64(s.shown)
		}
		items[i] = MaxDiffItem{
			ID:         o.ID,
			Label:      o.Label,
			BestCount:  s.best,
			WorstCount: s.worst,
			ShownCount: s.shown,
			Utility:    utility,
		}
	}

	if len(items) > 0 {
		minUtil := items[0].Utility
		for _, it := range items[1:] {
			minUtil = math.Min(minUtil, it.Utility)
		}
		total := 0.0
		for _, it := range items {
			total += it.Utility - minUtil + 0.01
		}
		for i := range items {
			items[i].PreferenceShare = (items[i].Utility - minUtil + 0.01) / total * 100
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Utility > items[j].Utility })

	return MaxDiffResult{Items: items, TotalSets: totalSets, TotalResponses: len(qAnswers)}
}

// GaborGranger computes demand per observed price point, a revenue index
// normalized to the best revenue price, the revenue-optimal price and the
// price ceiling, the highest price still clearing the ceiling threshold.
func GaborGranger(q survey.Question, answers []survey.Answer) GaborGrangerResult {
	qAnswers := answersFor(answers, q.ID)

	type tally struct{ yes, total int }
	byPrice := map[float64]*tally{}
	for _, a := range qAnswers {
		var v survey.GaborGrangerValue
		if !survey.DecodeValue(a.Value, &v) {
			continue
		}
		for _, r := range v.Responses {
			t, ok := byPrice[r.Price]
			if !ok {
				t = &tally{}
				byPrice[r.Price] = t
			}
			t.total++
			if r.WouldBuy {
				t.yes++
			}
		}
	}

	prices := make([]float64, 0, len(byPrice))
	for p := range byPrice {
		prices = append(prices, p)
	}
	sort.Float64s(prices)

	points := make([]PricePoint, len(prices))
	for i, p := range prices {
		t := byPrice[p]
		points[i] = PricePoint{Price: p, WouldBuyPercent: percent(t.yes, t.total)}
	}

	maxRevenue := 1.0
	for _, p := range points {
		maxRevenue = math.Max(maxRevenue, p.Price*p.WouldBuyPercent/100)
	}
	for i := range points {
		points[i].RevenueIndex = points[i].Price * points[i].WouldBuyPercent / 100 / maxRevenue * 100
	}

	optimal := 0.0
	if len(points) > 0 {
		best := points[0]
		for _, p := range points[1:] {
			if p.Price*p.WouldBuyPercent > best.Price*best.WouldBuyPercent {
				best = p
			}
		}
		optimal = best.Price
	}

	ceiling := 0.0
	if len(points) > 0 {
		ceiling = points[0].Price
		for i := len(points) - 1; i >= 0; i-- {
			if points[i].WouldBuyPercent >= ceilingBuyPercent {
				ceiling = points[i].Price
				break
			}
		}
	}

	return GaborGrangerResult{
		PricePoints:    points,
		OptimalPrice:   optimal,
		PriceCeiling:   ceiling,
		TotalResponses: len(qAnswers),
		Currency:       q.Settings.CurrencyOrDefault(),
	}
}

// VanWestendorp builds the four cumulative price-perception curves over a
// fixed-step grid and locates their crossings by linear interpolation
// within the bracketing step.
func VanWestendorp(q survey.Question, answers []survey.Answer) VanWestendorpResult {
	qAnswers := answersFor(answers, q.ID)

	var tooCheap, bargain, expensive, tooExpensive []float64
	for _, a := range qAnswers {
		var v survey.VanWestendorpValue
		if !survey.DecodeValue(a.Value, &v) {
			continue
		}
		tooCheap = append(tooCheap, v.TooCheap)
		bargain = append(bargain, v.Bargain)
		expensive = append(expensive, v.Expensive)
		tooExpensive = append(tooExpensive, v.TooExpensive)
	}

	minPrice, maxPrice := 0.0, 10.0
	if len(tooCheap) > 0 {
		minPrice, maxPrice = tooCheap[0], tooCheap[0]
		for _, vals := range [][]float64{tooCheap, bargain, expensive, tooExpensive} {
			for _, v := range vals {
				minPrice = math.Min(minPrice, v)
				maxPrice = math.Max(maxPrice, v)
			}
		}
	}

	stepSize := (maxPrice - minPrice) / vanWestendorpSteps
	grid := make([]float64, vanWestendorpSteps+1)
	for i := range grid {
		grid[i] = math.Round((minPrice+float64(i)*stepSize)*100) / 100
	}

	curves := VanWestendorpCurves{
		TooCheap:     cumulativeCurve(tooCheap, grid, false),
		Bargain:      cumulativeCurve(bargain, grid, false),
		Expensive:    cumulativeCurve(expensive, grid, true),
		TooExpensive: cumulativeCurve(tooExpensive, grid, true),
	}

	fallback := (minPrice + maxPrice) / 2
	return VanWestendorpResult{
		PriceRange:     grid,
		Curves:         curves,
		OPP:            intersection(curves.TooCheap, curves.TooExpensive, fallback),
		IDP:            intersection(curves.Bargain, curves.Expensive, fallback),
		PMC:            intersection(curves.TooCheap, curves.Expensive, fallback),
		PME:            intersection(curves.Bargain, curves.TooExpensive, fallback),
		TotalResponses: len(qAnswers),
		Currency:       q.Settings.CurrencyOrDefault(),
	}
}

// ImplicitAssociation scores attribute fit with reaction-time hygiene:
// implausibly fast reactions are excluded from every statistic, slow ones
// are counted but flagged. Attributes sort by net fit descending.
func ImplicitAssociation(q survey.Question, answers []survey.Answer) ImplicitAssociationResult {
	qAnswers := answersFor(answers, q.ID)

	type stats struct {
		fits, doesntFit int
		reactionTimes   []float64
	}
	attrStats := map[string]*stats{}
	order := make([]string, 0, len(q.Settings.Attributes))
	for _, attr := range q.Settings.Attributes {
		attrStats[attr] = &stats{}
		order = append(order, attr)
	}

	excludedTooFast, flaggedTooSlow := 0, 0
	for _, a := range qAnswers {
		var v survey.ImplicitAssociationValue
		if !survey.DecodeValue(a.Value, &v) {
			continue
		}
		for _, assoc := range v.Associations {
			if assoc.ReactionTimeMs < minValidReactionMs {
				excludedTooFast++
				continue
			}
			if assoc.ReactionTimeMs > slowReactionMs {
				flaggedTooSlow++
			}
			s, ok := attrStats[assoc.Attribute]
			if !ok {
				s = &stats{}
				attrStats[assoc.Attribute] = s
				order = append(order, assoc.Attribute)
			}
			if assoc.Response == "fits" {
				s.fits++
			} else {
				s.doesntFit++
			}
			s.reactionTimes = append(s.reactionTimes, float64(assoc.ReactionTimeMs))
		}
	}

	attributes := make([]AttributeResult, len(order))
	var allReactionTimes []float64
	for i, attr := range order {
		s := attrStats[attr]
		total := s.fits + s.doesntFit
		attributes[i] = AttributeResult{
			Attribute:         attr,
			FitsPercent:       percent(s.fits, total),
			DoesntFitPercent:  percent(s.doesntFit, total),
			AvgReactionTimeMs: mean(s.reactionTimes),
			TotalResponses:    total,
		}
		allReactionTimes = append(allReactionTimes, s.reactionTimes...)
	}
	sort.SliceStable(attributes, func(i, j int) bool {
		return attributes[i].FitsPercent-attributes[i].DoesntFitPercent >
			attributes[j].FitsPercent-attributes[j].DoesntFitPercent
	})

	return ImplicitAssociationResult{
		Attributes:        attributes,
		AvgReactionTimeMs: mean(allReactionTimes),
		ExcludedTooFast:   excludedTooFast,
		FlaggedTooSlow:    flaggedTooSlow,
		TotalResponses:    len(qAnswers),
	}
}

// attentionZone is a fixed region of the image used to group clicks.
// Regions overlap deliberately so a click near a boundary contributes to
// both neighbors.
type attentionZone struct {
	key, label             string
	minX, maxX, minY, maxY int
}

var attentionZones = []attentionZone{
	{key: "top_left", label: "Top left", minX: 0, maxX: 45, minY: 0, maxY: 40},
	{key: "center", label: "Center", minX: 25, maxX: 75, minY: 25, maxY: 75},
	{key: "right", label: "Right side", minX: 50, maxX: 100, minY: 0, maxY: 50},
}

// Heatmap flattens every click, computes per-respondent click volume and
// groups clicks into the fixed attention zones.
func Heatmap(q survey.Question, answers []survey.Answer) HeatmapResult {
	qAnswers := answersFor(answers, q.ID)

	var clicks []survey.Click
	for _, a := range qAnswers {
		var v survey.HeatmapValue
		if !survey.DecodeValue(a.Value, &v) {
			continue
		}
		clicks = append(clicks, v.Clicks...)
	}

	zones := make([]ZoneSummary, len(attentionZones))
	for i, z := range attentionZones {
		count := 0
		commentFreq := map[string]int{}
		for _, c := range clicks {
			if c.X >= z.minX && c.X <= z.maxX && c.Y >= z.minY && c.Y <= z.maxY {
				count++
				if c.Comment != "" {
					commentFreq[c.Comment]++
				}
			}
		}
		zones[i] = ZoneSummary{
			Key:         z.key,
			Label:       z.label,
			ClickCount:  count,
			Percent:     percent(count, len(clicks)),
			TopComments: topComments(commentFreq, maxZoneComments),
		}
	}
	sort.SliceStable(zones, func(i, j int) bool { return zones[i].ClickCount > zones[j].ClickCount })

	avg := 0.0
	if len(qAnswers) > 0 {
		avg = float64(len(clicks)) / float64(len(qAnswers))
	}
	return HeatmapResult{
		Clicks:                 clicks,
		Zones:                  zones,
		TotalClicks:            len(clicks),
		AvgClicksPerRespondent: avg,
		TotalResponses:         len(qAnswers),
		ImageURL:               q.MediaURL,
	}
}

// topComments returns the most frequent comments, ties broken alphabetically.
func topComments(freq map[string]int, limit int) []string {
	if len(freq) == 0 {
		return nil
	}
	comments := make([]string, 0, len(freq))
	for c := range freq {
		comments = append(comments, c)
	}
	sort.Slice(comments, func(i, j int) bool {
		if freq[comments[i]] != freq[comments[j]] {
			return freq[comments[i]] > freq[comments[j]]
		}
		return comments[i] < comments[j]
	})
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return comments
}

func answersFor(answers []survey.Answer, questionID string) []survey.Answer {
	var out []survey.Answer
	for _, a := range answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	return out
}

func cumulativeCurve(values, grid []float64, ascending bool) []CurvePoint {
	curve := make([]CurvePoint, len(grid))
	for i, price := range grid {
		count := 0
		for _, v := range values {
			if (ascending && v <= price) || (!ascending && v >= price) {
				count++
			}
		}
		curve[i] = CurvePoint{Price: price, CumPercent: percent(count, len(values))}
	}
	return curve
}

// intersection finds where two curves cross by scanning for a sign change
// in their difference and interpolating linearly within the bracketing
// step. Curves that never cross yield the fallback price.
func intersection(c1, c2 []CurvePoint, fallback float64) float64 {
	for i := 0; i < len(c1)-1; i++ {
		d1 := c1[i].CumPercent - c2[i].CumPercent
		d2 := c1[i+1].CumPercent - c2[i+1].CumPercent
		if d1*d2 > 0 {
			continue
		}
		if d1 == d2 {
			return (c1[i].Price + c1[i+1].Price) / 2
		}
		t := d1 / (d1 - d2)
		return c1[i].Price + t*(c1[i+1].Price-c1[i].Price)
	}
	return fallback
}

func percent(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func mean(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range nums {
		sum += v
	}
	return sum / float64(len(nums))
}

// stdDev is the population standard deviation; below two samples it is
// defined as zero.
func stdDev(nums []float64) float64 {
	if len(nums) < 2 {
		return 0
	}
	m := mean(nums)
	variance := 0.0
	for _, v := range nums {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(nums)))
}
