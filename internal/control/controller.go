package control

import "errors"

var (
	// ErrInvalidLimits indicates a lower bound above its upper bound.
	ErrInvalidLimits = errors.New("control: invalid limits (min > max)")

	// ErrUnknownParam indicates a tuning parameter the controller does not have.
	ErrUnknownParam = errors.New("control: unknown parameter")
)

// Controller is a feedback controller fed with measurements from the plant.
type Controller interface {
	// Update records a measurement and returns the new output. dt is the
	// time since the previous update, in the unit the gains are scaled for.
	Update(measurement, dt int32) int32

	// SetTarget replaces the setpoint. It takes effect on the next Update.
	SetTarget(target int32)

	// Target returns the current setpoint.
	Target() int32

	// Reset clears accumulated history. Configuration and target are kept.
	Reset()
}

// Configurable is implemented by controllers that support live tuning.
type Configurable interface {
	Params() map[string]int32
	SetParam(name string, value int32) error
}
