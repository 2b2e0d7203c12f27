package oracle

import (
	"fmt"
	"strings"

	"github.com/insightmill/panelcraft/internal/survey"
)

const promptFraming = `You are simulating a nationally representative survey panel of 500 UK adults responding to a consumer research survey. Consider:
- UK demographics: ages 18-75+, balanced gender, regions across England, Scotland, Wales, Northern Ireland
- Socioeconomic diversity: ABC1 C2 DE social grades
- Typical UK consumer attitudes, preferences, and purchasing behaviors
- Natural survey response patterns: central tendency bias on scales, acquiescence bias, position effects

Provide REALISTIC response distributions. These should reflect genuine UK consumer opinion, not uniform or random noise.`

// BuildPrompt renders the specification request sent to the oracle: one
// fixed framing paragraph plus one structured block per question declaring
// the exact JSON shape the oracle must return for it.
func BuildPrompt(projectTitle, projectDescription string, questions []survey.Question) string {
	blocks := make([]string, 0, len(questions))
	for i, q := range questions {
		blocks = append(blocks, questionBlock(i+1, q))
	}

	var sb strings.Builder
	sb.WriteString(promptFraming)
	sb.WriteString("\n\nSURVEY: \"")
	sb.WriteString(projectTitle)
	sb.WriteString("\"\n")
	if projectDescription != "" {
		fmt.Fprintf(&sb, "Description: %s\n", projectDescription)
	}
	sb.WriteString("\nQUESTIONS:\n\n")
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteString(`

Return ONLY valid JSON (no markdown, no code blocks, no explanation) with this exact structure:
{
  "<question_id>": { /* type-specific data as specified above */ },
  ...
}`)
	return sb.String()
}

func questionBlock(num int, q survey.Question) string {
	switch q.Type {
	case survey.TypeSingleChoice:
		none := ""
		if q.Settings.IncludeNone {
			none = `, none="None of these"`
		}
		return fmt.Sprintf("Q%d (ID: %s, Type: single_choice): %q\nOptions: %s%s\n→ Return: {\"distribution\": {\"<option_id>\": <percentage>, ...}} percentages must sum to 100",
			num, q.ID, q.Title, optionList(q.Options), none)

	case survey.TypeMultipleChoice:
		return fmt.Sprintf("Q%d (ID: %s, Type: multiple_choice): %q\nOptions: %s\n→ Return: {\"selectionRates\": {\"<option_id>\": <percentage_who_select_this>, ...}} each 0-100",
			num, q.ID, q.Title, optionList(q.Options))

	case survey.TypeScaledResponse:
		scaleMax := q.Settings.ScalePointsOrDefault()
		labels := ""
		if n := len(q.Settings.ScaleLabels); n > 0 {
			labels = fmt.Sprintf(" (1=%q, %d=%q)", q.Settings.ScaleLabels[0], scaleMax, q.Settings.ScaleLabels[n-1])
		}
		return fmt.Sprintf("Q%d (ID: %s, Type: scaled_response): %q\nScale: 1-%d%s\n→ Return: {\"distribution\": {\"1\": <pct>, \"2\": <pct>, ... \"%d\": <pct>}} must sum to 100",
			num, q.ID, q.Title, scaleMax, labels, scaleMax)

	case survey.TypeOpenText:
		return fmt.Sprintf("Q%d (ID: %s, Type: open_text): %q\n%s→ Return: {\"responses\": [\"<response1>\", \"<response2>\", ...]} provide exactly 50 unique, diverse responses from realistic UK consumers. Vary length (20-200 chars), tone, and sentiment. Include positive, negative, and neutral viewpoints.",
			num, q.ID, q.Title, descriptionLine(q))

	case survey.TypeMonadicSplit:
		first := "a"
		if len(q.Options) > 0 {
			first = q.Options[0].ID
		}
		if q.Settings.ResponseFormatOrDefault() == survey.FormatBinary {
			return fmt.Sprintf("Q%d (ID: %s, Type: monadic_split, format: binary): %q\nVariants: %s\n→ Return: {\"variants\": {%q: {\"yesPercent\": <pct>}, ...}} for each variant",
				num, q.ID, q.Title, optionList(q.Options), first)
		}
		return fmt.Sprintf("Q%d (ID: %s, Type: monadic_split, format: five_point): %q\nVariants: %s\n→ Return: {\"variants\": {%q: {\"distribution\": {\"1\": <pct>, \"2\": <pct>, \"3\": <pct>, \"4\": <pct>, \"5\": <pct>}}, ...}} distributions must sum to 100 each",
			num, q.ID, q.Title, optionList(q.Options), first)

	case survey.TypeRanking:
		return fmt.Sprintf("Q%d (ID: %s, Type: ranking): %q\nItems: %s\n→ Return: {\"strengthScores\": {\"<item_id>\": <score>, ...}} higher score (1-100) = more likely to be ranked #1",
			num, q.ID, q.Title, optionList(q.Options))

	case survey.TypeMaxDiff:
		return fmt.Sprintf("Q%d (ID: %s, Type: maxdiff): %q\nItems: %s\n→ Return: {\"utilityScores\": {\"<item_id>\": <score>, ...}} higher positive = more preferred, negative = less preferred. Range roughly -3 to +3",
			num, q.ID, q.Title, optionList(q.Options))

	case survey.TypeAnchoredPricing:
		currency := q.Settings.CurrencyOrDefault()
		if q.Settings.PricingMethodOrDefault() == survey.MethodGaborGranger {
			prices := make([]string, len(q.Settings.PricePoints))
			for i, p := range q.Settings.PricePoints {
				prices[i] = fmt.Sprintf("%s%v", currency, p)
			}
			ref := ""
			if rp := q.Settings.ReferenceProduct; rp != nil {
				ref = fmt.Sprintf("Reference: %s at %s%v\n", rp.Name, currency, rp.Price)
			}
			firstPrice := ""
			if len(q.Settings.PricePoints) > 0 {
				firstPrice = fmt.Sprintf("%v", q.Settings.PricePoints[0])
			}
			return fmt.Sprintf("Q%d (ID: %s, Type: anchored_pricing, method: gabor_granger): %q\nPrice points: %s\n%s→ Return: {\"buyProbabilities\": {%q: <pct>, ...}} percentage who would buy at each price. Should decrease as price increases.",
				num, q.ID, q.Title, strings.Join(prices, ", "), ref, firstPrice)
		}
		return fmt.Sprintf("Q%d (ID: %s, Type: anchored_pricing, method: van_westendorp): %q\nCurrency: %s\n→ Return: {\"medians\": {\"tooCheap\": <price>, \"bargain\": <price>, \"expensive\": <price>, \"tooExpensive\": <price>}, \"stdDevs\": {\"tooCheap\": <val>, \"bargain\": <val>, \"expensive\": <val>, \"tooExpensive\": <val>}}",
			num, q.ID, q.Title, currency)

	case survey.TypeImplicitAssociation:
		return fmt.Sprintf("Q%d (ID: %s, Type: implicit_association): %q\nAttributes: %s\n→ Return: {\"attributes\": {\"<attribute>\": {\"fitsPercent\": <pct>, \"avgReactionMs\": <ms>}, ...}} avgReactionMs should be 350-700ms. Higher fitsPercent with lower RT = stronger genuine association.",
			num, q.ID, q.Title, strings.Join(q.Settings.Attributes, ", "))

	case survey.TypeImageHeatmap:
		return fmt.Sprintf("Q%d (ID: %s, Type: image_heatmap): %q\n%sMax clicks: %d\n→ Return: {\"hotspots\": [{\"x\": <0-100>, \"y\": <0-100>, \"weight\": <0-100>, \"radius\": <5-20>, \"comments\": [\"comment1\", \"comment2\", ...]}]} provide 3-5 hotspots with 5 sample comments each. Coordinates are percentages (0-100). Weights must sum to 100.",
			num, q.ID, q.Title, descriptionLine(q), q.Settings.MaxClicksOrDefault())

	default:
		return fmt.Sprintf("Q%d (ID: %s, Type: %s): %q\n→ Return: {} (skip this question type)", num, q.ID, q.Type, q.Title)
	}
}

func optionList(options []survey.ChoiceOption) string {
	parts := make([]string, len(options))
	for i, o := range options {
		parts[i] = fmt.Sprintf("%s=%q", o.ID, o.Label)
	}
	return strings.Join(parts, ", ")
}

func descriptionLine(q survey.Question) string {
	if q.Description == "" {
		return ""
	}
	return fmt.Sprintf("Description: %s\n", q.Description)
}
