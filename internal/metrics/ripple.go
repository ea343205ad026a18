package metrics

import (
	"github.com/san-kum/heatloop/internal/sim"
	"gonum.org/v1/gonum/stat"
)

const DefaultRippleWindow = 500

// Ripple is the standard deviation of the measurement over the last
// window samples of the current segment, in controller units. The window
// restarts when the target changes so a setpoint step is not counted.
type Ripple struct {
	name    string
	win     []float64
	n, i, l int
	target  int32
	started bool
}

func NewRipple(window int) *Ripple {
	if window < 2 {
		window = 2
	}
	return &Ripple{name: "ripple", n: window, win: make([]float64, window)}
}

func (r *Ripple) Name() string { return r.name }

func (r *Ripple) Observe(s sim.Sample) {
	if !r.started || s.Target != r.target {
		r.started = true
		r.target = s.Target
		r.i, r.l = 0, 0
	}
	r.win[r.i] = float64(s.Measurement)
	r.i = (r.i + 1) % r.n
	if r.l != r.n {
		r.l++
	}
}

func (r *Ripple) Value() float64 {
	if r.l < 2 {
		return 0
	}
	_, sd := stat.PopMeanStdDev(r.win[:r.l], nil)
	return sd
}

func (r *Ripple) Reset() {
	r.i, r.l = 0, 0
	r.target = 0
	r.started = false
}
