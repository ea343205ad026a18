package control

import "fmt"

// Manual returns a fixed output whatever the measurement. It drives the
// plant open-loop, e.g. for recording a step response.
type Manual struct {
	Output int32
	target int32
}

func NewManual(output int32) *Manual {
	return &Manual{Output: output}
}

func (m *Manual) Update(measurement, dt int32) int32 { return m.Output }
func (m *Manual) SetTarget(target int32)             { m.target = target }
func (m *Manual) Target() int32                      { return m.target }
func (m *Manual) Reset()                             {}

func (m *Manual) Params() map[string]int32 {
	return map[string]int32{"output": m.Output, "target": m.target}
}

func (m *Manual) SetParam(name string, value int32) error {
	switch name {
	case "output":
		m.Output = value
	case "target":
		m.target = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}
