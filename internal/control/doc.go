// Package control provides integer feedback controllers for a heater loop.
//
// Controllers implement the [Controller] interface. A caller owns one
// instance, feeds it a measurement and the elapsed time on every sample and
// applies the returned value to its actuator:
//
//   - [PID]: Proportional-Integral-Derivative controller with anti-windup
//   - [OnOff]: hysteresis on/off controller
//   - [Manual]: fixed output, used for open-loop step responses
//
// # Usage
//
//	pid := control.NewPID(50, 1, -40) // Kp, Ki, Kd
//	_ = pid.SetLimits(0, 1024)
//	pid.SetTarget(7000)
//	duty := pid.Update(measurement, 1)
//
// # Arithmetic
//
// Every intermediate is computed in int64 and saturates at the bounds of
// its type instead of wrapping. Update never panics, including for a zero
// or negative dt, which contributes neither integral nor derivative.
//
// # Thread Safety
//
// Controllers are NOT safe for concurrent use. Callers sharing one across
// goroutines must serialize access themselves.
//
// Controllers implementing [Configurable] support live tuning.
package control
