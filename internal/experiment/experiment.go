package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/heatloop/internal/config"
	"github.com/san-kum/heatloop/internal/sim"
	"github.com/san-kum/heatloop/internal/thermal"
)

type Experiment struct {
	cfg       *config.Config
	simulator *sim.Simulator
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup builds the controller, plant and metrics described by the config.
func (e *Experiment) Setup(r *Registry) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	s, err := Build(r, e.cfg)
	if err != nil {
		return err
	}
	e.simulator = s
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.cfg.Sim)
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// Build assembles a simulator over a fresh thermal plant.
func Build(r *Registry, cfg *config.Config) (*sim.Simulator, error) {
	ctrl, err := r.GetController(cfg.Controller)
	if err != nil {
		return nil, err
	}
	plant, err := thermal.New(cfg.Plant)
	if err != nil {
		return nil, err
	}
	s := sim.New(ctrl, plant)
	for _, m := range r.DefaultMetrics(cfg.Controller) {
		s.AddMetric(m)
	}
	return s, nil
}
