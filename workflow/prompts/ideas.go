package prompts

import "fmt"

// Perspective is one angle from which an idea is expanded.
type Perspective struct {
	Name  string
	Role  string
	Angle string
	Focus string
	Aim   string
}

// Perspectives are the three idea expansions, in response order.
var Perspectives = []Perspective{
	{
		Name:  "technical",
		Role:  "a technical expert",
		Angle: `"technical implementation" or "tooling"`,
		Focus: "architecture, development tools and technology stack choices",
		Aim:   "Give a concrete, actionable technical plan",
	},
	{
		Name:  "scenario",
		Role:  "a product manager",
		Angle: `"application scenario" or "usage context"`,
		Focus: "real application scenarios, target users and usage flow",
		Aim:   "Describe the concrete usage context and its value",
	},
	{
		Name:  "innovation",
		Role:  "an innovation consultant",
		Angle: `"innovative breakthrough" or "process improvement"`,
		Focus: "points of innovation, optimisation directions and differentiation",
		Aim:   "Offer an inventive improvement",
	},
}

// IdeaPrompt expands idea from one perspective.
func IdeaPrompt(p Perspective, idea, language string) string {
	return fmt.Sprintf(`You are %s. From the %s angle, propose one concrete extension of the idea below.

Original idea: %s

Requirements:
1. Focus on %s
2. %s
3. Output exactly one idea, without numbering
4. Start describing directly, with no "Here is..." preamble
5. Write in %s
6. **At most 300 words**`, p.Role, p.Angle, idea, p.Focus, p.Aim, language)
}

// FallbackIdeas are returned when every expansion fails.
func FallbackIdeas(idea string) []string {
	return []string{
		fmt.Sprintf("Technical angle: build %q on a modular architecture with containerised deployment so it can scale.", idea),
		fmt.Sprintf("Application angle: apply %q to a real business scenario with a complete user journey and feedback loop.", idea),
		fmt.Sprintf("Innovation angle: rethink %q from first principles and add AI automation or data-driven decisions.", idea),
	}
}

// FillerIdea pads the idea list when only some expansions succeed.
// n is the 1-based position being filled.
func FillerIdea(idea string, n int) string {
	return fmt.Sprintf("Further idea %d: explore %q in more depth...", n, idea)
}
