package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/avelinov/trendwatch/internal/domain/analysis"
)

// Builder produces the prompt for each pipeline stage. The wording here is
// deployment configuration: the pipeline only depends on the response shape
// each prompt demands (free text for theme/analysis/synthesis, a strict JSON
// list for the filter).
type Builder struct{}

func NewBuilder() Builder { return Builder{} }

// Theme asks for the short retrieval phrase. The response is embedded and
// used for similarity search only.
func (Builder) Theme(req domain.Request) string {
	return fmt.Sprintf(`You analyze information for a category manager of digital goods in the %s space.
Based on the user's request, extract the most specific topic, game, product, event or key phrase to use for retrieving relevant materials.

Request: %s

Return only that topic/phrase, with no extra words or explanations.`, req.Category, req.Query)
}

// FilterChunk asks the model to keep only the on-topic documents. The
// response must be a JSON list of {"text","url"} objects; an empty list
// means nothing in the chunk is relevant.
func (Builder) FilterChunk(req domain.Request, theme string, docs []domain.Document, part, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You work for a category manager of digital goods in the %s space. Below are materials (part %d/%d) on the topic "%s".

User request: %s

Review the list and keep only the materials (text and url) that are highly relevant to the request and topic (a specific game, event, release, patch, metrics and so on). Discard generic information.
Return STRICTLY a JSON list of objects: [{"text": "...", "url": "..."}]
If nothing is relevant, return an empty list: []

Materials:
`, req.Category, part, total, theme, req.Query)
	for i, d := range docs {
		pair, _ := json.Marshal(domain.FilteredDocument{Text: d.Text, URL: d.URL})
		fmt.Fprintf(&sb, "%d. %s\n", i+1, pair)
	}
	return sb.String()
}

// AnalyzeChunk produces an intermediate analysis over the filtered subset
// only; the unfiltered chunk never reaches this prompt.
func (Builder) AnalyzeChunk(req domain.Request, theme string, kept []domain.FilteredDocument, part, total int) string {
	materials, _ := json.MarshalIndent(kept, "", "  ")
	return fmt.Sprintf(`You are a digital goods market analyst working for a category manager. Based on the filtered relevant materials (part %d/%d) on the topic "%s" in the %s space:

Filtered materials:
%s

Produce an intermediate analysis for the category manager. Focus on metrics (GMV, ADV, ETR, AOV, Orders, CR, ADV/GM), causes of demand/supply shifts, and potential recommendations grounded in this part of the materials.

Structure of the intermediate analysis (to be merged later):
Trends and Events (what happened):
- Briefly what happened (date, essence)
- Source link when present in the materials

Impact and Metrics:
- How the event affected sales, player/user activity, prices, metrics. Cite concrete numbers when present.
- Public reaction (forums, social media, streamers) when mentioned.

Potential Recommendations:
- What to do and what to watch, based on this part.

Be as informative as possible. If this part contains nothing relevant to a section, say so explicitly.`, part, total, theme, req.Category, materials)
}

// Synthesize merges several intermediate analyses into the final report
func (Builder) Synthesize(req domain.Request, theme, joined string) string {
	return fmt.Sprintf(`You are the lead analyst for a category manager of digital goods in the %s space. Merge the following intermediate analyses on the topic "%s" into one coherent, detailed report. Ground everything in the original user request: %s

Intermediate analyses to merge:
%s

Produce the final structured report for the category manager. Include every key data point from the intermediate analyses, remove duplication, and synthesize the conclusions and recommendations.

Structure of the final report:
Overview and Key Trends:
- Short summary of the main events and trends.

Detailed Impact Analysis and Metrics:
- Synthesized impact on sales, activity, prices and metrics (GMV, ADV, CR, ...) with concrete figures from the materials when possible.
- Overall picture of the public reaction.

Competitive and Market Situation:
- Conclusions about competitors and the market based on the materials.

Recommendations for the Category Manager:
- A clear list of final, actionable recommendations (launches, pricing, marketing, assortment changes).

Make the report as decision-ready as possible.`, req.Category, theme, req.Query, joined)
}
