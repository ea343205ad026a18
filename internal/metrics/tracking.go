package metrics

import (
	"math"

	"github.com/san-kum/heatloop/internal/sim"
)

// IAE is the mean absolute tracking error in controller units.
type IAE struct {
	name    string
	sum     float64
	samples int
}

func NewIAE() *IAE {
	return &IAE{name: "iae"}
}

func (e *IAE) Name() string { return e.name }

func (e *IAE) Observe(s sim.Sample) {
	e.sum += math.Abs(float64(s.Target) - float64(s.Measurement))
	e.samples++
}

func (e *IAE) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *IAE) Reset() {
	e.sum = 0
	e.samples = 0
}

// Overshoot is the largest excursion past the target, in controller units,
// in the direction the measurement had to travel when the target was set.
type Overshoot struct {
	name      string
	target    int32
	direction float64
	started   bool
	max       float64
}

func NewOvershoot() *Overshoot {
	return &Overshoot{name: "overshoot"}
}

func (o *Overshoot) Name() string { return o.name }

func (o *Overshoot) Observe(s sim.Sample) {
	if !o.started || s.Target != o.target {
		o.started = true
		o.target = s.Target
		o.direction = 1
		if s.Measurement > s.Target {
			o.direction = -1
		}
	}
	past := o.direction * (float64(s.Measurement) - float64(s.Target))
	o.max = math.Max(o.max, past)
}

func (o *Overshoot) Value() float64 { return o.max }

func (o *Overshoot) Reset() {
	o.started = false
	o.target = 0
	o.direction = 0
	o.max = 0
}
