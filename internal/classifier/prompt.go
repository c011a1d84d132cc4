package classifier

import "strings"

// promptTemplate is the fixed instruction template sent to the service.
// {{POST}} is replaced with the post text. The template constrains the
// answer to one of three labels plus a score distribution, wrapped in a
// ```json fence so extraction stays deterministic.
const promptTemplate = `Does this post discuss selling initial access to a company (e.g., RDP, VPN, admin access), selling unrelated items (e.g., accounts, tools), or warnings/complaints? Classify it as:
- Positive: Selling initial access.
- Neutral: Selling unrelated items.
- Negative: Warnings, general posts or complaints.

The content must be specifically about selling access to a company or business whose name is mentioned in the post.

Return **only** a JSON object with:
- ` + "`classification`" + `: "Positive", "Neutral", or "Negative".
- ` + "`scores`" + `: Probabilities for ` + "`positive`, `neutral`, `negative`" + ` (summing to 1).

Wrap the JSON in ` + "```json" + `
{
  ...
}
` + "```" + ` to ensure proper formatting. Do not include any reasoning or extra text.

Post:
` + "```markdown" + `
{{POST}}
` + "```" + `

Do not include any other text or explanations.
Make sure to return the JSON object in the specified format.`

// buildPrompt embeds the post text into the instruction template.
func buildPrompt(post string) string {
	return strings.ReplaceAll(promptTemplate, "{{POST}}", post)
}
