// Package report renders a project's aggregated results as a markdown
// document and optionally as a PDF.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/insightmill/panelcraft/internal/aggregate"
	"github.com/insightmill/panelcraft/internal/survey"
)

// maxVerbatims caps the open-text quotes included per question.
const maxVerbatims = 10

// Build renders the full markdown report for a project from its raw
// answers. Aggregation runs here so the report always reflects the data it
// was handed, not a cached result.
func Build(project survey.Project, questions []survey.Question, answers []survey.Answer, totalResponses, completedResponses int, generatedAt time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Panel Report: %s\n\n", project.Title)
	if project.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", project.Description)
	}
	fmt.Fprintf(&sb, "Generated %s. %d respondents, %d completed.\n\n",
		generatedAt.Format("2 January 2006"), totalResponses, completedResponses)

	for i, q := range questions {
		fmt.Fprintf(&sb, "## Q%d. %s\n\n", i+1, q.Title)
		writeQuestionSection(&sb, q, answers)
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeQuestionSection(sb *strings.Builder, q survey.Question, answers []survey.Answer) {
	switch q.Type {
	case survey.TypeSingleChoice:
		writeSingleChoice(sb, aggregate.SingleChoice(q, answers))
	case survey.TypeMultipleChoice:
		writeMultipleChoice(sb, aggregate.MultipleChoice(q, answers))
	case survey.TypeScaledResponse:
		writeScaled(sb, aggregate.Scaled(q, answers))
	case survey.TypeOpenText:
		writeOpenText(sb, aggregate.OpenText(q, answers))
	case survey.TypeMonadicSplit:
		writeMonadic(sb, aggregate.Monadic(q, answers))
	case survey.TypeRanking:
		writeRanking(sb, aggregate.Ranking(q, answers))
	case survey.TypeMaxDiff:
		writeMaxDiff(sb, aggregate.MaxDiff(q, answers))
	case survey.TypeAnchoredPricing:
		if q.Settings.PricingMethodOrDefault() == survey.MethodGaborGranger {
			writeGaborGranger(sb, aggregate.GaborGranger(q, answers))
		} else {
			writeVanWestendorp(sb, aggregate.VanWestendorp(q, answers))
		}
	case survey.TypeImplicitAssociation:
		writeImplicitAssociation(sb, aggregate.ImplicitAssociation(q, answers))
	case survey.TypeImageHeatmap:
		writeHeatmap(sb, aggregate.Heatmap(q, answers))
	}
}

func writeSingleChoice(sb *strings.Builder, res aggregate.SingleChoiceResult) {
	fmt.Fprintf(sb, "Single choice, %d responses.\n\n", res.TotalResponses)
	sb.WriteString("| Option | Count | Share |\n|---|---|---|\n")
	for _, o := range res.Options {
		fmt.Fprintf(sb, "| %s | %d | %.1f%% |\n", o.Label, o.Count, o.Percent)
	}
	if res.NoneCount > 0 {
		fmt.Fprintf(sb, "| None of these | %d | %.1f%% |\n", res.NoneCount, res.NonePercent)
	}
	sb.WriteString("\n")
	switch {
	case res.ClearWinner:
		fmt.Fprintf(sb, "**%s** is the clear winner.\n", leaderLabel(res.Options))
	case res.CloseContest:
		sb.WriteString("The top options are too close to call.\n")
	}
}

func writeMultipleChoice(sb *strings.Builder, res aggregate.MultipleChoiceResult) {
	fmt.Fprintf(sb, "Multiple choice, %d responses, %.1f selections per respondent.\n\n",
		res.TotalResponses, res.AvgSelectionsPerRespondent)
	sb.WriteString("| Option | Count | Selected by |\n|---|---|---|\n")
	for i, o := range res.Options {
		fmt.Fprintf(sb, "| %s | %d | %.1f%% |\n", o.Label, o.Count, o.Percent)
		if res.CutLineIndex != nil && i == *res.CutLineIndex {
			sb.WriteString("| --- | --- | --- |\n")
		}
	}
	sb.WriteString("\n")
	if res.CutLineIndex != nil {
		fmt.Fprintf(sb, "A natural cut line separates the top %d option(s) from the rest.\n", *res.CutLineIndex+1)
	}
}

func writeScaled(sb *strings.Builder, res aggregate.ScaledResult) {
	fmt.Fprintf(sb, "Scaled response (1-%d), %d responses. Mean %.2f (sd %.2f). Top-2 box %.1f%%, bottom-2 box %.1f%%, net score %.1f.\n\n",
		res.ScaleMax, res.TotalResponses, res.Mean, res.StdDev, res.Top2Box, res.Bottom2Box, res.NetScore)
	sb.WriteString("| Point | Count | Share |\n|---|---|---|\n")
	for _, p := range res.Distribution {
		fmt.Fprintf(sb, "| %s | %d | %.1f%% |\n", p.Label, p.Count, p.Percent)
	}
}

func writeOpenText(sb *strings.Builder, res aggregate.OpenTextResult) {
	fmt.Fprintf(sb, "Open text, %d responses, average length %.0f characters.\n\n", res.TotalResponses, res.AvgLength)
	limit := min(maxVerbatims, len(res.Responses))
	for _, r := range res.Responses[:limit] {
		fmt.Fprintf(sb, "> %s\n\n", r.Text)
	}
}

func writeMonadic(sb *strings.Builder, res aggregate.MonadicResult) {
	fmt.Fprintf(sb, "Monadic split (%s), %d responses.\n\n", res.ResponseFormat, res.TotalResponses)
	if res.ResponseFormat == survey.FormatBinary {
		sb.WriteString("| Variant | Sample | Yes |\n|---|---|---|\n")
		for _, v := range res.Variants {
			fmt.Fprintf(sb, "| %s | %d | %.1f%% |\n", v.Label, v.SampleSize, v.YesPercent)
		}
	} else {
		sb.WriteString("| Variant | Sample | Top-2 box |\n|---|---|---|\n")
		for _, v := range res.Variants {
			fmt.Fprintf(sb, "| %s | %d | %.1f%% |\n", v.Label, v.SampleSize, v.Top2Box)
		}
	}
	fmt.Fprintf(sb, "\nWinning variant: **%s**.\n", res.WinnerKey)
}

func writeRanking(sb *strings.Builder, res aggregate.RankingResult) {
	fmt.Fprintf(sb, "Ranking, %d responses, %s consensus.\n\n", res.TotalResponses, res.ConsensusLevel)
	sb.WriteString("| Item | Avg rank | Spread | Ranked #1 |\n|---|---|---|---|\n")
	for _, it := range res.Items {
		fmt.Fprintf(sb, "| %s | %.2f | %.2f | %.1f%% |\n", it.Label, it.AvgRank, it.StdDev, it.FirstPlacePercent)
	}
}

func writeMaxDiff(sb *strings.Builder, res aggregate.MaxDiffResult) {
	fmt.Fprintf(sb, "MaxDiff, %d responses, %d choice sets.\n\n", res.TotalResponses, res.TotalSets)
	sb.WriteString("| Item | Best | Worst | Utility | Preference share |\n|---|---|---|---|---|\n")
	for _, it := range res.Items {
		fmt.Fprintf(sb, "| %s | %d | %d | %.3f | %.1f%% |\n", it.Label, it.BestCount, it.WorstCount, it.Utility, it.PreferenceShare)
	}
}

func writeGaborGranger(sb *strings.Builder, res aggregate.GaborGrangerResult) {
	fmt.Fprintf(sb, "Gabor-Granger pricing, %d responses. Revenue-optimal price %s%.2f, price ceiling %s%.2f.\n\n",
		res.TotalResponses, res.Currency, res.OptimalPrice, res.Currency, res.PriceCeiling)
	sb.WriteString("| Price | Would buy | Revenue index |\n|---|---|---|\n")
	for _, p := range res.PricePoints {
		fmt.Fprintf(sb, "| %s%.2f | %.1f%% | %.0f |\n", res.Currency, p.Price, p.WouldBuyPercent, p.RevenueIndex)
	}
}

func writeVanWestendorp(sb *strings.Builder, res aggregate.VanWestendorpResult) {
	fmt.Fprintf(sb, "Van Westendorp pricing, %d responses.\n\n", res.TotalResponses)
	fmt.Fprintf(sb, "- Optimal price point: %s%.2f\n", res.Currency, res.OPP)
	fmt.Fprintf(sb, "- Indifference price point: %s%.2f\n", res.Currency, res.IDP)
	fmt.Fprintf(sb, "- Acceptable range: %s%.2f to %s%.2f\n", res.Currency, res.PMC, res.Currency, res.PME)
}

func writeImplicitAssociation(sb *strings.Builder, res aggregate.ImplicitAssociationResult) {
	fmt.Fprintf(sb, "Implicit association, %d responses, average reaction %.0fms. %d reactions excluded as too fast, %d flagged as deliberate.\n\n",
		res.TotalResponses, res.AvgReactionTimeMs, res.ExcludedTooFast, res.FlaggedTooSlow)
	sb.WriteString("| Attribute | Fits | Doesn't fit | Avg reaction |\n|---|---|---|---|\n")
	for _, a := range res.Attributes {
		fmt.Fprintf(sb, "| %s | %.1f%% | %.1f%% | %.0fms |\n", a.Attribute, a.FitsPercent, a.DoesntFitPercent, a.AvgReactionTimeMs)
	}
}

func writeHeatmap(sb *strings.Builder, res aggregate.HeatmapResult) {
	fmt.Fprintf(sb, "Image heatmap, %d responses, %d clicks (%.1f per respondent).\n\n",
		res.TotalResponses, res.TotalClicks, res.AvgClicksPerRespondent)
	sb.WriteString("| Zone | Clicks | Share |\n|---|---|---|\n")
	for _, z := range res.Zones {
		fmt.Fprintf(sb, "| %s | %d | %.1f%% |\n", z.Label, z.ClickCount, z.Percent)
	}
}

func leaderLabel(options []aggregate.OptionCount) string {
	if len(options) == 0 {
		return ""
	}
	return options[0].Label
}
