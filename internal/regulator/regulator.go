package regulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/san-kum/heatloop/internal/control"
	"github.com/san-kum/heatloop/internal/logs"
	"github.com/san-kum/heatloop/internal/shell"
)

var ErrNotConfigurable = errors.New("regulator: controller does not support SET")

type Sensor interface {
	Read() (int32, error)
}

type Actuator interface {
	SetDuty(duty int32) error
	MaxDuty() int32
}

type Status struct {
	Running bool  `json:"running"`
	Last    int32 `json:"last"`
	Target  int32 `json:"target"`
	Duty    int32 `json:"duty"`
}

func (s Status) String() string {
	return fmt.Sprintf("Status R=%t L=%d T=%d D=%d", s.Running, s.Last, s.Target, s.Duty)
}

type StatusSink interface {
	Publish(s Status) error
}

// LineSink writes one status line per tick.
type LineSink struct {
	W io.Writer
}

func (l LineSink) Publish(s Status) error {
	_, err := fmt.Fprintln(l.W, s)
	return err
}

type Options struct {
	Tick   time.Duration
	Dt     int32
	Target int32
	Log    *logs.Loggers
	Sinks  []StatusSink
}

// Regulator drives an actuator from a sensor through a controller. All
// state is owned by the goroutine calling Run, or by the caller of
// Step and Apply when Run is not used.
type Regulator struct {
	ctrl     control.Controller
	sensor   Sensor
	actuator Actuator
	opts     Options
	log      *logs.Loggers

	running bool
	last    int32
	duty    int32
}

// New bounds a PID controller's integral and output to the actuator's
// duty range.
func New(ctrl control.Controller, sensor Sensor, actuator Actuator, opts Options) (*Regulator, error) {
	if opts.Tick <= 0 {
		return nil, fmt.Errorf("regulator: tick must be positive, got %v", opts.Tick)
	}
	if opts.Dt <= 0 {
		opts.Dt = 1
	}
	if pid, ok := ctrl.(*control.PID); ok {
		if err := pid.SetLimits(0, actuator.MaxDuty()); err != nil {
			return nil, fmt.Errorf("regulator: %w", err)
		}
	}
	if opts.Target != 0 {
		ctrl.SetTarget(opts.Target)
	}
	l := opts.Log
	if l == nil {
		l = logs.Discard()
	}
	return &Regulator{ctrl: ctrl, sensor: sensor, actuator: actuator, opts: opts, log: l}, nil
}

func (r *Regulator) Status() Status {
	return Status{Running: r.running, Last: r.last, Target: r.ctrl.Target(), Duty: r.duty}
}

// Step runs one control period and publishes the resulting status.
func (r *Regulator) Step() Status {
	if v, err := r.sensor.Read(); err != nil {
		r.log.Warn.Printf("sensor read failed, keeping %d: %v", r.last, err)
	} else {
		r.last = v
	}

	r.duty = 0
	if r.running {
		r.duty = r.ctrl.Update(r.last, r.opts.Dt)
	}
	if err := r.actuator.SetDuty(r.duty); err != nil {
		r.log.Error.Printf("set duty %d: %v", r.duty, err)
	}

	s := r.Status()
	r.publish(s)
	return s
}

func (r *Regulator) publish(s Status) {
	for _, sink := range r.opts.Sinks {
		if err := sink.Publish(s); err != nil {
			r.log.Warn.Printf("publish status: %v", err)
		}
	}
}

// Apply executes a shell command. Stopping takes effect on the next Step.
func (r *Regulator) Apply(cmd shell.Command) error {
	switch cmd.Verb {
	case shell.Start:
		if cmd.HasTarget {
			r.ctrl.SetTarget(cmd.Target)
		}
		r.running = true
	case shell.Stop:
		r.running = false
	case shell.Target:
		r.ctrl.SetTarget(cmd.Target)
	case shell.Set:
		c, ok := r.ctrl.(control.Configurable)
		if !ok {
			return ErrNotConfigurable
		}
		keys := make([]string, 0, len(cmd.Params))
		for k := range cmd.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		prev := c.Params()
		for i, k := range keys {
			if err := c.SetParam(k, cmd.Params[k]); err != nil {
				// A rejected SET leaves the controller as it was.
				for _, done := range keys[:i] {
					_ = c.SetParam(done, prev[done])
				}
				return err
			}
		}
	case shell.Status:
		r.publish(r.Status())
	case shell.Reset:
		r.ctrl.Reset()
	default:
		return fmt.Errorf("regulator: unsupported command %s", cmd.Verb)
	}
	return nil
}

// Run steps the loop every Tick and applies commands between ticks until
// ctx is done. The actuator is switched off on return. A closed commands
// channel leaves the loop running on its current settings.
func (r *Regulator) Run(ctx context.Context, commands <-chan shell.Command) error {
	ticker := time.NewTicker(r.opts.Tick)
	defer ticker.Stop()

	r.log.Info.Printf("regulator started, max duty %d", r.actuator.MaxDuty())
	for {
		select {
		case <-ctx.Done():
			r.running = false
			r.duty = 0
			if err := r.actuator.SetDuty(0); err != nil {
				r.log.Error.Printf("switch off: %v", err)
			}
			r.log.Info.Print("regulator stopped")
			return ctx.Err()
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			if err := r.Apply(cmd); err != nil {
				r.log.Warn.Printf("command %s: %v", cmd, err)
				continue
			}
			r.log.Info.Printf("command %s", cmd)
		case <-ticker.C:
			r.Step()
		}
	}
}
