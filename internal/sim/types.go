package sim

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every configuration error returned by Run.
var ErrInvalidConfig = errors.New("sim: invalid config")

// Plant is the process under control. Power is the controller output.
type Plant interface {
	Step(power float64)
	Temperature() float64
	Reset()
}

// Sample is one tick of a closed-loop run.
type Sample struct {
	Step        int     `json:"step"`
	Time        int64   `json:"time"`
	Target      int32   `json:"target"`
	Output      int32   `json:"output"`
	Measurement int32   `json:"measurement"`
	Temperature float64 `json:"temperature"`
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnSample(s Sample) error
}

// Segment holds Target for Steps samples.
type Segment struct {
	Target int32 `yaml:"target" json:"target"`
	Steps  int   `yaml:"steps" json:"steps"`
}

type Schedule []Segment

// Len is the total number of samples in the schedule.
func (s Schedule) Len() int {
	n := 0
	for _, seg := range s {
		n += seg.Steps
	}
	return n
}

type Config struct {
	// Dt is passed to the controller on every sample.
	Dt int32 `yaml:"dt"`
	// Scale converts °C to controller units.
	Scale    float64  `yaml:"scale"`
	Schedule Schedule `yaml:"schedule"`
}

// DefaultConfig heats to 70 °C, then 100 °C, then cools to 60 °C.
func DefaultConfig() Config {
	return Config{
		Dt:    1,
		Scale: 100,
		Schedule: Schedule{
			{Target: 7000, Steps: 1000},
			{Target: 10000, Steps: 1000},
			{Target: 6000, Steps: 10000},
		},
	}
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int
}

// Outputs and Temperatures return the columns used for plotting.
func (r *Result) Outputs() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = float64(s.Output)
	}
	return out
}

func (r *Result) Temperatures() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Temperature
	}
	return out
}

type SimError struct {
	Step    int
	Message string
	Wrapped error
}

func (e *SimError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("step %d: %s: %v", e.Step, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("step %d: %s", e.Step, e.Message)
}

func (e *SimError) Unwrap() error { return e.Wrapped }

// ToUnits converts a temperature to controller units, truncating and
// saturating at the int32 range.
func ToUnits(temp, scale float64) int32 {
	v := temp * scale
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
