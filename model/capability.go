// Package model provides capability-based model selection for the spec pipeline.
// Pipeline stages ask for a capability (spec, analysis, ideation) and the
// registry resolves it to configured endpoints with a fallback chain.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilitySpec is for writing specification artefacts: DBML, Gherkin, flowcharts.
	CapabilitySpec Capability = "spec"

	// CapabilityAnalysis is for reviewing artefacts and producing structured findings.
	CapabilityAnalysis Capability = "analysis"

	// CapabilityIdeation is for short creative expansions of a project idea.
	CapabilityIdeation Capability = "ideation"

	// CapabilityGeneral is for free-form prompts and connection checks.
	CapabilityGeneral Capability = "general"
)

// AllCapabilities lists every known capability in display order.
var AllCapabilities = []Capability{
	CapabilitySpec,
	CapabilityAnalysis,
	CapabilityIdeation,
	CapabilityGeneral,
}

// StageCapabilities maps pipeline stages to their default capability.
var StageCapabilities = map[string]Capability{
	"formulation": CapabilitySpec,
	"complete":    CapabilitySpec,
	"sections":    CapabilitySpec,
	"discovery":   CapabilityAnalysis,
	"ideas":       CapabilityIdeation,
	"field":       CapabilityIdeation,
	"prompt":      CapabilityGeneral,
}

// CapabilityForStage returns the default capability for a pipeline stage.
// Returns CapabilityGeneral for unknown stages.
func CapabilityForStage(stage string) Capability {
	if c, ok := StageCapabilities[stage]; ok {
		return c
	}
	return CapabilityGeneral
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilitySpec, CapabilityAnalysis, CapabilityIdeation, CapabilityGeneral:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
