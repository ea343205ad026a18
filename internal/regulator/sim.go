package regulator

import (
	"github.com/san-kum/heatloop/internal/sim"
	"github.com/san-kum/heatloop/internal/thermal"
)

// SimSensor reads a thermal plant in controller units.
type SimSensor struct {
	Plant *thermal.Plant
	Scale float64
}

func (s *SimSensor) Read() (int32, error) {
	return sim.ToUnits(s.Plant.Temperature(), s.Scale), nil
}

// SimActuator maps duty onto the plant's power range and advances the
// plant by one step per write.
type SimActuator struct {
	Plant *thermal.Plant
	Max   int32
}

func (a *SimActuator) SetDuty(duty int32) error {
	var power float64
	if a.Max > 0 {
		power = float64(duty) / float64(a.Max) * a.Plant.Config().PowerMax
	}
	a.Plant.Step(power)
	return nil
}

func (a *SimActuator) MaxDuty() int32 { return a.Max }
