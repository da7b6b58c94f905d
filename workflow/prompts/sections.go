package prompts

import "fmt"

// Section headers of the one-shot specification reply.
const (
	SectionBackground = "Background"
	SectionGoals      = "Goals"
	SectionDataModel  = "Data Model"
	SectionFeatures   = "Features"
	SectionFlowchart  = "Flowchart"
	SectionAPI        = "API"

	// Shown on the page but never requested from the model.
	SectionTests    = "Tests"
	SectionGlossary = "Glossary"
)

// SectionOrder lists the sections in the order the model must emit them.
var SectionOrder = []string{
	SectionBackground,
	SectionGoals,
	SectionDataModel,
	SectionFeatures,
	SectionFlowchart,
	SectionAPI,
}

// DisplayOrder lists every section shown on the generator page.
var DisplayOrder = append(append([]string(nil), SectionOrder...), SectionTests, SectionGlossary)

// Generated reports whether the model is asked to write the named section.
func Generated(name string) bool {
	for _, s := range SectionOrder {
		if s == name {
			return true
		}
	}
	return false
}

// SpecBrief is the form input of the one-shot generator.
type SpecBrief struct {
	ProjectGoal          string `json:"project_goal"`
	CoreFeatures         string `json:"core_features"`
	TechnicalConstraints string `json:"technical_constraints"`
	TargetAudience       string `json:"target_audience"`
}

// Complete reports whether every field is filled in.
func (b SpecBrief) Complete() bool {
	return b.ProjectGoal != "" && b.CoreFeatures != "" &&
		b.TechnicalConstraints != "" && b.TargetAudience != ""
}

// SectionedSystemPrompt asks for a complete specification split into
// "==== Name ====" sections.
func SectionedSystemPrompt(language string) string {
	return fmt.Sprintf(`You are a software specification assistant. Produce a complete software specification from the information the user provides, written in %s.

**Rules:**
1. Follow the output format exactly; add no notes, remarks or greetings
2. Start every section with a "==== Section Name ====" line using the names below verbatim
3. Output content directly; no bracketed explanations or "Here is..." openers
4. Wrap the Mermaid flowchart in a complete `+"```mermaid"+` block
5. Do not use emoji
6. Separate items and blocks in the data model, features and API sections with a blank line

**Output format:**

==== Background ====
[background paragraphs, separated by blank lines]

==== Goals ====
[numbered goals "1. " "2. ", one per line]

==== Data Model ====
[DBML inside a `+"```dbml"+` block, blank line between tables]

Example:
`+"```dbml"+`
Table users {
  id integer [primary key]
  username varchar
  email varchar
}

Table posts {
  id integer [primary key]
  user_id integer [ref: > users.id]
  content text
}
`+"```"+`

==== Features ====
[Gherkin features, blank line between features and between scenarios]

Example:
`+"```gherkin"+`
Feature: Sign in

Scenario: Successful sign in
  Given the user is on the sign-in page
  When they enter a correct username and password
  Then they are taken to the home page

Scenario: Wrong password
  Given the user is on the sign-in page
  When they enter a wrong password
  Then an error message is shown
`+"```"+`

==== Flowchart ====
`+"```mermaid"+`
graph TD
    [Mermaid flowchart code]
`+"```"+`

==== API ====
[endpoints and their contracts, blank line between endpoints]

Example:
POST /api/login
- Request: {"username": "string", "password": "string"}
- Response: {"token": "string", "user": {...}}
`, language)
}

// SectionedUserInput renders the brief as the user message.
func SectionedUserInput(b SpecBrief) string {
	return fmt.Sprintf(`
Project goal: %s
Core features: %s
Technical constraints: %s
Target audience: %s
`, b.ProjectGoal, b.CoreFeatures, b.TechnicalConstraints, b.TargetAudience)
}

// Placeholders returns the section texts shown before generation or when a
// section is missing from the reply.
func Placeholders(b SpecBrief) map[string]string {
	return map[string]string{
		SectionBackground: "Background: this project aims to " + b.ProjectGoal,
		SectionGoals:      "Goals: " + b.ProjectGoal,
		SectionDataModel:  "Data model: not generated yet",
		SectionFeatures:   "Features: " + b.CoreFeatures,
		SectionFlowchart:  "Flowchart: not generated yet",
		SectionAPI:        "API: technical constraints " + b.TechnicalConstraints,
		SectionTests:      "Test cases: not generated yet",
		SectionGlossary:   "Glossary: not compiled yet",
	}
}
