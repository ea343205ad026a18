package metrics

import "github.com/san-kum/heatloop/internal/sim"

// Saturation is the fraction of samples whose output sat on a limit.
type Saturation struct {
	name      string
	min, max  int32
	saturated int
	samples   int
}

func NewSaturation(min, max int32) *Saturation {
	return &Saturation{
		name: "saturation",
		min:  min,
		max:  max,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(x sim.Sample) {
	s.samples++
	if x.Output <= s.min || x.Output >= s.max {
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
