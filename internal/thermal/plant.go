// Package thermal simulates a heated vessel for exercising controllers offline.
//
// The model is deliberately crude: heater power reaches the liquid through a
// fixed transport delay and heat is lost linearly to the surroundings.
package thermal

import "fmt"

const (
	DefaultAmbient    = 20.0
	DefaultHeatCoeff  = 0.08269
	DefaultLossCoeff  = -0.008124
	DefaultLossScale  = 80.0
	DefaultDelay      = 45
	DefaultPowerMax   = 255.0
	DefaultPowerScale = 255.0
)

// Config holds the plant coefficients. Temperatures are in °C, one Step is
// one sample period.
type Config struct {
	Ambient    float64 `yaml:"ambient"`
	Initial    float64 `yaml:"initial"`
	HeatCoeff  float64 `yaml:"heat_coeff"`
	LossCoeff  float64 `yaml:"loss_coeff"`
	LossScale  float64 `yaml:"loss_scale"`
	Delay      int     `yaml:"delay"`
	PowerMin   float64 `yaml:"power_min"`
	PowerMax   float64 `yaml:"power_max"`
	PowerScale float64 `yaml:"power_scale"`
}

func DefaultConfig() Config {
	return Config{
		Ambient:    DefaultAmbient,
		Initial:    DefaultAmbient,
		HeatCoeff:  DefaultHeatCoeff,
		LossCoeff:  DefaultLossCoeff,
		LossScale:  DefaultLossScale,
		Delay:      DefaultDelay,
		PowerMin:   0,
		PowerMax:   DefaultPowerMax,
		PowerScale: DefaultPowerScale,
	}
}

func (c Config) Validate() error {
	if c.Delay <= 0 {
		return fmt.Errorf("thermal: delay must be positive, got %d", c.Delay)
	}
	if c.LossScale == 0 {
		return fmt.Errorf("thermal: loss scale must be non-zero")
	}
	if c.PowerScale <= 0 {
		return fmt.Errorf("thermal: power scale must be positive, got %f", c.PowerScale)
	}
	if c.PowerMin > c.PowerMax {
		return fmt.Errorf("thermal: power min %f above max %f", c.PowerMin, c.PowerMax)
	}
	return nil
}

// Plant is a heater feeding a delay line into a lossy thermal mass.
type Plant struct {
	cfg   Config
	line  []float64
	head  int
	temp  float64
	steps int
}

func New(cfg Config) (*Plant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Plant{cfg: cfg, line: make([]float64, cfg.Delay)}
	p.Reset()
	return p, nil
}

func (p *Plant) Config() Config { return p.cfg }

// Step applies heater power p for one sample. Power is clamped to
// [PowerMin, PowerMax] and takes effect from the following sample.
func (p *Plant) Step(power float64) {
	power = min(p.cfg.PowerMax, max(p.cfg.PowerMin, power))
	heat := p.cfg.HeatCoeff * power / p.cfg.PowerScale

	weight := 1.0 / float64(len(p.line))
	added := 0.0
	for _, h := range p.line {
		added += weight * h
	}

	// head is the newest slot; overwrite the oldest one.
	p.head = (p.head + len(p.line) - 1) % len(p.line)
	p.line[p.head] = heat

	loss := (p.temp - p.cfg.Ambient) / p.cfg.LossScale * p.cfg.LossCoeff
	p.temp += added + loss
	p.steps++
}

func (p *Plant) Temperature() float64 { return p.temp }

// Steps returns the number of samples since the last reset.
func (p *Plant) Steps() int { return p.steps }

// Reset empties the delay line and returns to the initial temperature.
func (p *Plant) Reset() {
	for i := range p.line {
		p.line[i] = 0
	}
	p.head = 0
	p.temp = p.cfg.Initial
	p.steps = 0
}
