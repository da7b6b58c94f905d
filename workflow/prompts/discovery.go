package prompts

import "fmt"

// DiscoveryChecklist lists the checks the discovery prompt runs.
var DiscoveryChecklist = []string{
	"A1 entity completeness",
	"A2 attribute definitions",
	"A3 attribute value boundaries",
	"A4 cross-attribute invariants",
	"A5 relationships and uniqueness",
	"A6 lifecycle and state",
	"B1 feature identification",
	"B2 rule completeness",
	"B3 example coverage",
	"B4 boundary coverage",
	"B5 error and exception handling",
}

// DiscoveryPrompt asks the model to review a formulated specification and
// return clarification items as a JSON array.
func DiscoveryPrompt(dbml, gherkin, language string) string {
	return fmt.Sprintf(`You are a specification quality reviewer. Scan the specification with the checklist below and identify the items that need clarification.

## Checklist

### A. Data model (DBML)

A1. Entity completeness
- Is every core business concept modelled as an entity?
- Are entity names clear and unambiguous?

A2. Attribute definitions
- Does every attribute have an explicit type?
- Does every attribute have an adequate description?

A3. Attribute value boundaries
- Are numeric ranges explicit (>=, <=)?
- Is handling of special values defined (null, zero, negative)?

A4. Cross-attribute invariants
- Are computed relationships between attributes explicit?

A5. Relationships and uniqueness
- Are the relationships between entities complete?
- Are primary keys and uniqueness rules explicit?

A6. Lifecycle and state
- Do stateful entities define every possible state?
- Are the state transition rules complete?

### B. Functional model (Gherkin)

B1. Feature identification
- Is every user interaction identified as a feature?
- Are feature names clear?

B2. Rule completeness
- Does every feature have at least one rule?
- Are rules atomic?
- Are preconditions and postconditions complete?

B3. Example coverage
- Does every rule have at least one Example?
- Are rules without examples marked #TODO?

B4. Boundary coverage
- Are threshold cases covered (exactly at, just below, above)?
- Does every class of input value have an Example?

B5. Error and exception handling
- Is the behaviour on precondition failure explicit?
- Does every exceptional case have a rule and an Example?

## Current specification

### DBML data model
`+"```dbml\n%s\n```"+`

### Gherkin functional model
`+"```gherkin\n%s\n```"+`

## Output requirements

Output the clarification items as JSON. Each item has:
- id: number
- priority: High, Medium or Low
- location: where it applies (ERM: Entity.attribute, or Feature: name -> Rule: rule)
- question: the clarification question, written in %s
- options: array of choices, each with key (A/B/C/Short) and text

**Important**:
- Output only the JSON array, with no explanation
- Do not wrap the output in a markdown code block
- Start directly with [
- Return [] when nothing needs clarification
- Report High priority issues first (those affecting core features or the data model)

Example:
[
  {
    "id": 1,
    "priority": "High",
    "location": "ERM: User -> email",
    "question": "Must email be unique?",
    "options": [
      {"key": "A", "text": "Yes, email must be unique"},
      {"key": "B", "text": "No, duplicates are allowed"}
    ]
  }
]
`, dbml, gherkin, language)
}
