package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/heatloop/internal/control"
	"github.com/san-kum/heatloop/internal/thermal"
)

// testPlant moves by a thousandth of the power per sample.
type testPlant struct {
	temp float64
}

func (p *testPlant) Step(power float64)    { p.temp += power / 1000 }
func (p *testPlant) Temperature() float64 { return p.temp }
func (p *testPlant) Reset()                { p.temp = 0 }

func TestSimulatorRun(t *testing.T) {
	ctrl := control.NewPID(1, 0, 0)
	sim := New(ctrl, &testPlant{})

	cfg := Config{
		Dt:    1,
		Scale: 100,
		Schedule: Schedule{
			{Target: 500, Steps: 10},
			{Target: 100, Steps: 5},
		},
	}

	result, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Samples) != 15 || result.StepsTaken != 15 {
		t.Fatalf("expected 15 samples, got %d", len(result.Samples))
	}
	if result.Samples[0].Target != 500 || result.Samples[14].Target != 100 {
		t.Errorf("targets not applied per segment: %d, %d", result.Samples[0].Target, result.Samples[14].Target)
	}
	if result.Samples[0].Output != 500 {
		t.Errorf("expected first output 500, got %d", result.Samples[0].Output)
	}
	if result.Samples[0].Measurement != 0 {
		t.Errorf("expected first measurement 0, got %d", result.Samples[0].Measurement)
	}
	if result.Samples[14].Time != 14 {
		t.Errorf("expected time 14, got %d", result.Samples[14].Time)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(control.NewPID(1, 0, 0), &testPlant{})
	sched := Schedule{{Target: 1, Steps: 1}}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Scale: 1, Schedule: sched}},
		{"negative dt", Config{Dt: -1, Scale: 1, Schedule: sched}},
		{"zero scale", Config{Dt: 1, Scale: 0, Schedule: sched}},
		{"empty schedule", Config{Dt: 1, Scale: 1}},
		{"empty segment", Config{Dt: 1, Scale: 1, Schedule: Schedule{{Target: 1, Steps: 0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(s Sample) {
	t.count++
	t.sum += float64(s.Output)
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	sim := New(control.NewManual(40), &testPlant{})

	metric := &testMetric{}
	sim.AddMetric(metric)

	cfg := Config{Dt: 1, Scale: 1, Schedule: Schedule{{Steps: 10}}}
	result, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Metrics["test"] != 40 {
		t.Errorf("expected metric 40, got %f", result.Metrics["test"])
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	sim := New(control.NewPID(1, 0, 0), &testPlant{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Run(ctx, Config{Dt: 1, Scale: 1, Schedule: Schedule{{Steps: 100}}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.Samples) != 0 {
		t.Errorf("expected no samples, got %d", len(result.Samples))
	}
}

var errFull = errors.New("disk full")

type failingObserver struct {
	after int
	seen  int
}

func (f *failingObserver) OnSample(s Sample) error {
	f.seen++
	if f.seen > f.after {
		return errFull
	}
	return nil
}

func TestSimulatorObserverError(t *testing.T) {
	sim := New(control.NewPID(1, 0, 0), &testPlant{})
	sim.AddObserver(&failingObserver{after: 3})

	result, err := sim.Run(context.Background(), Config{Dt: 1, Scale: 1, Schedule: Schedule{{Steps: 10}}})
	if !errors.Is(err, errFull) {
		t.Fatalf("expected wrapped observer error, got %v", err)
	}
	var simErr *SimError
	if !errors.As(err, &simErr) || simErr.Step != 3 {
		t.Errorf("expected SimError at step 3, got %v", err)
	}
	if len(result.Samples) != 4 {
		t.Errorf("expected 4 samples, got %d", len(result.Samples))
	}
}

func TestSimulatorThermalLoop(t *testing.T) {
	plant, err := thermal.New(thermal.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	pid := control.NewPID(50, 1, -40)
	if err := pid.SetLimits(0, 1024); err != nil {
		t.Fatal(err)
	}

	sim := New(pid, plant)
	result, err := sim.Run(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	checkpoints := []struct {
		step int
		want float64
	}{
		{999, 70},
		{1999, 100},
		{len(result.Samples) - 1, 60},
	}
	for _, c := range checkpoints {
		got := result.Samples[c.step].Temperature
		if math.Abs(got-c.want) > 1.5 {
			t.Errorf("step %d: expected ~%.0f °C, got %.2f", c.step, c.want, got)
		}
	}

	for i, s := range result.Samples {
		if s.Output < 0 || s.Output > 1024 {
			t.Fatalf("sample %d: output %d outside limits", i, s.Output)
		}
	}
}

func TestSimulatorReset(t *testing.T) {
	pid := control.NewPID(1, 1, 0)
	plant := &testPlant{}
	sim := New(pid, plant)

	if _, err := sim.Run(context.Background(), Config{Dt: 1, Scale: 1, Schedule: Schedule{{Target: 50, Steps: 5}}}); err != nil {
		t.Fatal(err)
	}
	sim.Reset()

	if pid.Integral() != 0 || pid.Warm() || plant.temp != 0 {
		t.Error("reset should clear controller and plant")
	}
}
