package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/heatloop/internal/control"
)

// StepConfig describes an open-loop step response: full power until the
// temperature passes Threshold, then no power for twice as long.
type StepConfig struct {
	Power     int32   `yaml:"power"`
	Threshold float64 `yaml:"threshold"`
	// MaxSteps bounds the heating phase for plants that never reach
	// Threshold.
	MaxSteps int     `yaml:"max_steps"`
	Scale    float64 `yaml:"scale"`
}

func DefaultStepConfig() StepConfig {
	return StepConfig{
		Power:     255,
		Threshold: 100,
		MaxSteps:  100000,
		Scale:     100,
	}
}

// StepResponse records the plant's response to a power step. The heating
// phase length is reported in Metrics["rise_steps"].
func StepResponse(ctx context.Context, plant Plant, cfg StepConfig, observers ...Observer) (*Result, error) {
	if cfg.MaxSteps <= 0 {
		return nil, fmt.Errorf("%w: max steps must be positive, got %d", ErrInvalidConfig, cfg.MaxSteps)
	}
	if cfg.Scale <= 0 {
		return nil, fmt.Errorf("%w: scale must be positive, got %f", ErrInvalidConfig, cfg.Scale)
	}

	manual := control.NewManual(cfg.Power)
	s := New(manual, plant)
	for _, o := range observers {
		s.AddObserver(o)
	}
	tickCfg := Config{Dt: 1, Scale: cfg.Scale}

	result := &Result{Metrics: make(map[string]float64)}
	i := 0
	tick := func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		sample := s.Tick(i, tickCfg)
		result.Samples = append(result.Samples, sample)
		result.StepsTaken++
		for _, obs := range s.observers {
			if err := obs.OnSample(sample); err != nil {
				return &SimError{Step: i, Message: "observer failed", Wrapped: err}
			}
		}
		i++
		return nil
	}

	for {
		if err := tick(); err != nil {
			return result, err
		}
		if plant.Temperature() > cfg.Threshold {
			break
		}
		if i >= cfg.MaxSteps {
			return result, &SimError{Step: i, Message: fmt.Sprintf("threshold %.2f not reached", cfg.Threshold)}
		}
	}
	rise := i

	manual.Output = 0
	for n := 0; n < 2*rise; n++ {
		if err := tick(); err != nil {
			return result, err
		}
	}

	result.Metrics["rise_steps"] = float64(rise)
	result.Metrics["peak_temp"] = peak(result.Samples)
	return result, nil
}

func peak(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	p := samples[0].Temperature
	for _, s := range samples[1:] {
		if s.Temperature > p {
			p = s.Temperature
		}
	}
	return p
}
