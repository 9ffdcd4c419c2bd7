package chat

import "fmt"

// Persona names the creator voice the generator answers in.
type Persona struct {
	CreatorName string
	BrandName   string
	Domain      string
}

const promptTemplate = `As %s's AI %s assistant, use the context to answer the query. Follow these guidelines:

1. Style: Direct, informative, and encouraging. Use "we" for shared journey.
2. Content: Focus on %s principles:
   - Proper form and technique
   - Mind-muscle connection
   - Functional training
   - Injury prevention
3. Explain: Briefly cover biomechanics and muscle activation.
4. Tailor: Consider user's potential limitations, offer modifications if needed.
5. Motivate: Include a brief encouragement or %s catchphrase.
6. Honesty: If unsure, say so. Don't speculate.

Context: %s`

// buildSystemPrompt renders the persona instructions with the assembled
// context. The user query travels separately as the user message.
func buildSystemPrompt(p Persona, context string) string {
	return fmt.Sprintf(promptTemplate,
		p.CreatorName, p.Domain, p.BrandName, p.BrandName, context)
}
