package control

import "fmt"

// OnOff is a hysteresis controller. It switches to High once the
// measurement falls below target-Band and back to Low once it rises above
// target+Band; inside the band it holds its last output.
type OnOff struct {
	High int32
	Low  int32
	Band int32

	target int32
	on     bool
}

func NewOnOff(low, high, band int32) *OnOff {
	return &OnOff{Low: low, High: high, Band: band}
}

func (o *OnOff) Update(measurement, dt int32) int32 {
	lower := int64(o.target) - int64(o.Band)
	upper := int64(o.target) + int64(o.Band)
	switch m := int64(measurement); {
	case m < lower:
		o.on = true
	case m > upper:
		o.on = false
	}
	if o.on {
		return o.High
	}
	return o.Low
}

func (o *OnOff) SetTarget(target int32) { o.target = target }
func (o *OnOff) Target() int32          { return o.target }

// Reset switches the output back to Low.
func (o *OnOff) Reset() { o.on = false }

func (o *OnOff) Params() map[string]int32 {
	return map[string]int32{
		"high":   o.High,
		"low":    o.Low,
		"band":   o.Band,
		"target": o.target,
	}
}

func (o *OnOff) SetParam(name string, value int32) error {
	switch name {
	case "high":
		o.High = value
	case "low":
		o.Low = value
	case "band":
		if value < 0 {
			return fmt.Errorf("control: band must not be negative, got %d", value)
		}
		o.Band = value
	case "target":
		o.target = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}
