package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/heatloop/internal/control"
)

// Simulator closes the loop between a controller and a plant.
type Simulator struct {
	controller control.Controller
	plant      Plant
	metrics    []Metric
	observers  []Observer
}

func New(controller control.Controller, plant Plant) *Simulator {
	return &Simulator{
		controller: controller,
		plant:      plant,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Controller() control.Controller { return s.controller }
func (s *Simulator) Plant() Plant                   { return s.plant }

// Run drives the loop through cfg.Schedule. The controller and plant keep
// their state from previous runs; call Reset for a fresh start.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	steps := cfg.Schedule.Len()
	result := &Result{
		Samples: make([]Sample, 0, steps),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	i := 0
	for _, seg := range cfg.Schedule {
		s.controller.SetTarget(seg.Target)

		for n := 0; n < seg.Steps; n++ {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}

			sample := s.Tick(i, cfg)
			result.Samples = append(result.Samples, sample)
			result.StepsTaken++

			for _, m := range s.metrics {
				m.Observe(sample)
			}
			for _, obs := range s.observers {
				if err := obs.OnSample(sample); err != nil {
					return result, &SimError{Step: i, Message: "observer failed", Wrapped: err}
				}
			}
			i++
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// Tick performs a single sample: measure, update the controller, drive
// the plant.
func (s *Simulator) Tick(step int, cfg Config) Sample {
	temp := s.plant.Temperature()
	meas := ToUnits(temp, cfg.Scale)
	out := s.controller.Update(meas, cfg.Dt)
	s.plant.Step(float64(out))

	return Sample{
		Step:        step,
		Time:        int64(step) * int64(cfg.Dt),
		Target:      s.controller.Target(),
		Output:      out,
		Measurement: meas,
		Temperature: s.plant.Temperature(),
	}
}

// Reset clears controller history and returns the plant to its initial
// state.
func (s *Simulator) Reset() {
	s.controller.Reset()
	s.plant.Reset()
}

// Validate reports the first problem with cfg, wrapping ErrInvalidConfig.
func (cfg Config) Validate() error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %d", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive, got %f", ErrInvalidConfig, cfg.Scale)
	}
	if len(cfg.Schedule) == 0 {
		return fmt.Errorf("%w: empty schedule", ErrInvalidConfig)
	}
	for i, seg := range cfg.Schedule {
		if seg.Steps <= 0 {
			return fmt.Errorf("%w: segment %d has %d steps", ErrInvalidConfig, i, seg.Steps)
		}
	}
	return nil
}
