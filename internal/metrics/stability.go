package metrics

import "github.com/san-kum/heatloop/internal/sim"

// DefaultSafetyLimit is the plant temperature in °C above which a sample
// counts as a violation.
const DefaultSafetyLimit = 105.0

// Stability is the fraction of samples that kept the plant at or below
// the safety limit. A run that never overheats scores 1.
type Stability struct {
	name       string
	limit      float64
	violations int
	samples    int
}

func NewStability(limit float64) *Stability {
	return &Stability{
		name:  "stability",
		limit: limit,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x sim.Sample) {
	s.samples++
	if x.Temperature > s.limit {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
