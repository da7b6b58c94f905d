package entity

import (
	"math"
	"time"
)

// DefaultScore is the initial weight of each ticket dimension.
const DefaultScore = 0.25

// WeightConfiguration weighs the four ticket dimensions.
type WeightConfiguration struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ScoreA    float64   `json:"score_a"`
	ScoreB    float64   `json:"score_b"`
	ScoreC    float64   `json:"score_c"`
	ScoreD    float64   `json:"score_d"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWeightConfiguration returns a configuration with equal weights.
func NewWeightConfiguration(name string) *WeightConfiguration {
	return &WeightConfiguration{
		Name:   name,
		ScoreA: DefaultScore,
		ScoreB: DefaultScore,
		ScoreC: DefaultScore,
		ScoreD: DefaultScore,
	}
}

// Validate checks that every score is in [0,1] and that they sum to 1.
func (w *WeightConfiguration) Validate() error {
	if err := maxLen("name", w.Name, 50); err != nil {
		return err
	}
	for _, s := range []float64{w.ScoreA, w.ScoreB, w.ScoreC, w.ScoreD} {
		if s < 0 || s > 1 || math.IsNaN(s) {
			return invalid("score", "all scores must be between 0 and 1")
		}
	}
	if math.Abs(w.ScoreA+w.ScoreB+w.ScoreC+w.ScoreD-1.0) > 1e-6 {
		return invalid("score", "scores must sum to 1.0")
	}
	return nil
}

// Ticket is a work item scored against a weight configuration.
type Ticket struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Desc           string    `json:"desc"`
	ValueA         float64   `json:"value_a"`
	ValueB         float64   `json:"value_b"`
	ValueC         float64   `json:"value_c"`
	ValueD         float64   `json:"value_d"`
	Score          float64   `json:"score"`
	WeightConfigID *int64    `json:"weight_config_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks the title.
func (t *Ticket) Validate() error {
	return firstErr(
		required("title", t.Title),
		maxLen("title", t.Title, 100),
	)
}

// ApplyWeights sets Score to the weighted sum of the ticket values.
// A nil configuration leaves Score unchanged.
func (t *Ticket) ApplyWeights(w *WeightConfiguration) {
	if w == nil {
		return
	}
	t.Score = t.ValueA*w.ScoreA + t.ValueB*w.ScoreB + t.ValueC*w.ScoreC + t.ValueD*w.ScoreD
}

// FieldPriorityConfiguration orders the fields shown by the management UI.
type FieldPriorityConfiguration struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FieldOrder []string  `json:"field_order"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate checks the name length. A nil field order is normalised to empty.
func (f *FieldPriorityConfiguration) Validate() error {
	if f.FieldOrder == nil {
		f.FieldOrder = []string{}
	}
	return maxLen("name", f.Name, 100)
}
