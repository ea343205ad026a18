package control

import (
	"fmt"
	"math"
)

// DerivativeMode selects what the derivative term differentiates.
type DerivativeMode int

const (
	// OnMeasurement differentiates the negated measurement. A setpoint
	// change does not move the measurement, so it causes no derivative kick.
	OnMeasurement DerivativeMode = iota
	// OnError differentiates the error (textbook PID).
	OnError
)

func (m DerivativeMode) String() string {
	switch m {
	case OnMeasurement:
		return "measurement"
	case OnError:
		return "error"
	default:
		return fmt.Sprintf("DerivativeMode(%d)", int(m))
	}
}

// ParseDerivativeMode accepts the names printed by String.
func ParseDerivativeMode(s string) (DerivativeMode, error) {
	switch s {
	case "", "measurement", "on_measurement":
		return OnMeasurement, nil
	case "error", "on_error":
		return OnError, nil
	}
	return 0, fmt.Errorf("control: unknown derivative mode %q", s)
}

// Limits is an inclusive [Min, Max] range.
type Limits struct {
	Min int32
	Max int32
}

// DefaultLimits spans the whole int32 range.
func DefaultLimits() Limits {
	return Limits{Min: math.MinInt32, Max: math.MaxInt32}
}

func (l Limits) validate() error {
	if l.Min > l.Max {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidLimits, l.Min, l.Max)
	}
	return nil
}

// Terms holds the contributions of the last update before output clamping.
type Terms struct {
	P, I, D int64
}

// sample is the previous measurement and error. They are only ever set
// together.
type sample struct {
	value int32
	err   int32
}

// PID is an integer PID controller.
//
// Gains and Mode may be changed at any time. The integral is stored already
// multiplied by Ki and clamped to the integral limits, so changing Ki does
// not make the output jump.
type PID struct {
	Kp   int32
	Ki   int32
	Kd   int32
	Mode DerivativeMode

	target   int32
	integral Limits
	output   Limits

	// state
	errSum  int32
	prev    sample
	hasPrev bool
	terms   Terms
}

// NewPID returns a PID with unbounded limits, target 0 and derivative on
// measurement.
func NewPID(kp, ki, kd int32) *PID {
	return &PID{
		Kp:       kp,
		Ki:       ki,
		Kd:       kd,
		Mode:     OnMeasurement,
		integral: DefaultLimits(),
		output:   DefaultLimits(),
	}
}

// SetLimits sets the integral and output limits to the same range.
func (p *PID) SetLimits(min, max int32) error {
	l := Limits{Min: min, Max: max}
	if err := l.validate(); err != nil {
		return err
	}
	p.integral = l
	p.output = l
	return nil
}

// SetIntegralLimits bounds the stored integral.
func (p *PID) SetIntegralLimits(min, max int32) error {
	l := Limits{Min: min, Max: max}
	if err := l.validate(); err != nil {
		return err
	}
	p.integral = l
	return nil
}

// SetOutputLimits bounds the value returned by Update.
func (p *PID) SetOutputLimits(min, max int32) error {
	l := Limits{Min: min, Max: max}
	if err := l.validate(); err != nil {
		return err
	}
	p.output = l
	return nil
}

func (p *PID) IntegralLimits() Limits { return p.integral }
func (p *PID) OutputLimits() Limits   { return p.output }

func (p *PID) SetTarget(target int32) { p.target = target }
func (p *PID) Target() int32          { return p.target }

// Integral returns the stored, already scaled integral term.
func (p *PID) Integral() int32 { return p.errSum }

// Warm reports whether a previous sample is available for the derivative.
func (p *PID) Warm() bool { return p.hasPrev }

// Terms returns the P, I and D contributions of the last update.
func (p *PID) Terms() Terms { return p.terms }

// Update advances the controller by one sample.
//
// A dt <= 0 adds nothing to the integral and skips the derivative, as on
// the first sample; the measurement is still remembered.
func (p *PID) Update(value, dt int32) int32 {
	e := int64(p.target) - int64(value)
	err32 := saturate32(e)

	pTerm := mulSat(int64(p.Kp), e)

	if dt > 0 {
		step := mulSat(mulSat(int64(p.Ki), e), int64(dt))
		sum := addSat(int64(p.errSum), step)
		p.errSum = int32(Clamp(int64(p.integral.Min), int64(p.integral.Max), sum))
	} else {
		p.errSum = Clamp(p.integral.Min, p.integral.Max, p.errSum)
	}
	iTerm := int64(p.errSum)

	var dTerm int64
	if p.hasPrev && dt > 0 {
		switch p.Mode {
		case OnError:
			dTerm = mulSat(int64(p.Kd), int64(err32)-int64(p.prev.err)) / int64(dt)
		default:
			dTerm = mulSat(int64(p.Kd), int64(p.prev.value)-int64(value)) / int64(dt)
		}
	}

	p.prev = sample{value: value, err: err32}
	p.hasPrev = true
	p.terms = Terms{P: pTerm, I: iTerm, D: dTerm}

	out := addSat(addSat(pTerm, iTerm), dTerm)
	return int32(Clamp(int64(p.output.Min), int64(p.output.Max), out))
}

// Reset clears the integral and the previous sample.
func (p *PID) Reset() {
	p.errSum = 0
	p.prev = sample{}
	p.hasPrev = false
	p.terms = Terms{}
}

// Params returns tunable parameters for live adjustment.
func (p *PID) Params() map[string]int32 {
	return map[string]int32{
		"kp":     p.Kp,
		"ki":     p.Ki,
		"kd":     p.Kd,
		"target": p.target,
		"mode":   int32(p.Mode),
	}
}

// SetParam adjusts a PID parameter.
func (p *PID) SetParam(name string, value int32) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "target":
		p.target = value
	case "mode":
		if value != int32(OnMeasurement) && value != int32(OnError) {
			return fmt.Errorf("control: mode %d out of range", value)
		}
		p.Mode = DerivativeMode(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}
