package types

// Breakdown explains how a final score was assembled
type Breakdown struct {
	Base         float64
	MatchQuality float64
	MatchBonus   float64
	UsageBonus   float64
	CustomBonus  float64
}

// Total returns the final score
func (b Breakdown) Total() float64 {
	return b.Base*b.MatchQuality + b.MatchBonus + b.UsageBonus + b.CustomBonus
}

// RankedResult is a scored record ready for rendering
type RankedResult struct {
	Record     *Record
	Score      float64
	Breakdown  Breakdown
	Fields     []Field
	Highlights map[Field]string // Fuzzy strategy only, matched spans wrapped in <mark>
}

// Validate checks if the ranked result is valid
func (r *RankedResult) Validate() error {
	if r.Record == nil {
		return ErrMissingRecord
	}
	if r.Breakdown.MatchQuality < 0 || r.Breakdown.MatchQuality > 1 {
		return ErrInvalidMatchQuality
	}
	return nil
}
