package regulator_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/heatloop/internal/control"
	"github.com/san-kum/heatloop/internal/logs"
	"github.com/san-kum/heatloop/internal/regulator"
	"github.com/san-kum/heatloop/internal/shell"
	"github.com/san-kum/heatloop/internal/thermal"
)

type fakeSensor struct {
	mu    sync.Mutex
	value int32
	err   error
}

func (s *fakeSensor) Read() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.err
}

type fakeActuator struct {
	mu     sync.Mutex
	max    int32
	duties []int32
}

func (a *fakeActuator) SetDuty(d int32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.duties = append(a.duties, d)
	return nil
}

func (a *fakeActuator) MaxDuty() int32 { return a.max }

func (a *fakeActuator) Last() int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.duties) == 0 {
		return -1
	}
	return a.duties[len(a.duties)-1]
}

func (a *fakeActuator) Max() int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var m int32
	for _, d := range a.duties {
		if d > m {
			m = d
		}
	}
	return m
}

type fixedController struct{ target int32 }

func (f *fixedController) Update(int32, int32) int32 { return 1 }
func (f *fixedController) SetTarget(t int32)         { f.target = t }
func (f *fixedController) Target() int32             { return f.target }
func (f *fixedController) Reset()                    {}

func mustParse(line string) shell.Command {
	cmd, err := shell.Parse(line)
	Expect(err).NotTo(HaveOccurred())
	return cmd
}

var _ = Describe("Regulator", func() {
	var (
		pid      *control.PID
		sensor   *fakeSensor
		actuator *fakeActuator
		out      *bytes.Buffer
		logBuf   *bytes.Buffer
		reg      *regulator.Regulator
	)

	BeforeEach(func() {
		pid = control.NewPID(50, 1, -40)
		sensor = &fakeSensor{value: 2000}
		actuator = &fakeActuator{max: 1024}
		out = &bytes.Buffer{}
		logBuf = &bytes.Buffer{}

		var err error
		reg, err = regulator.New(pid, sensor, actuator, regulator.Options{
			Tick:  time.Millisecond,
			Dt:    1,
			Log:   logs.NewWriter(logBuf),
			Sinks: []regulator.StatusSink{regulator.LineSink{W: out}},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("bounds the PID to the actuator duty range", func() {
		Expect(pid.OutputLimits()).To(Equal(control.Limits{Min: 0, Max: 1024}))
		Expect(pid.IntegralLimits()).To(Equal(control.Limits{Min: 0, Max: 1024}))
	})

	It("rejects a non-positive tick", func() {
		_, err := regulator.New(pid, sensor, actuator, regulator.Options{})
		Expect(err).To(HaveOccurred())
	})

	It("holds the heater off until started", func() {
		s := reg.Step()
		Expect(s).To(Equal(regulator.Status{Running: false, Last: 2000, Target: 0, Duty: 0}))
		Expect(actuator.Last()).To(Equal(int32(0)))
		Expect(out.String()).To(Equal("Status R=false L=2000 T=0 D=0\n"))
	})

	It("drives the actuator after START and stops on STOP", func() {
		Expect(reg.Apply(mustParse("START TARGET=7000"))).To(Succeed())
		Expect(pid.Target()).To(Equal(int32(7000)))

		s := reg.Step()
		Expect(s.Running).To(BeTrue())
		Expect(s.Duty).To(Equal(int32(1024)))
		Expect(out.String()).To(HaveSuffix("Status R=true L=2000 T=7000 D=1024\n"))

		Expect(reg.Apply(mustParse("STOP"))).To(Succeed())
		Expect(reg.Step().Duty).To(BeZero())
		Expect(actuator.Last()).To(BeZero())
	})

	It("keeps the last reading when the sensor fails", func() {
		reg.Step()
		sensor.mu.Lock()
		sensor.value, sensor.err = 9999, errors.New("fault")
		sensor.mu.Unlock()

		Expect(reg.Step().Last).To(Equal(int32(2000)))
		Expect(logBuf.String()).To(ContainSubstring("sensor read failed"))
	})

	It("applies TARGET, SET and RESET", func() {
		Expect(reg.Apply(mustParse("TARGET 6000"))).To(Succeed())
		Expect(pid.Target()).To(Equal(int32(6000)))

		Expect(reg.Apply(mustParse("SET kp=10 mode=error"))).To(Succeed())
		Expect(pid.Kp).To(Equal(int32(10)))
		Expect(pid.Mode).To(Equal(control.OnError))

		Expect(reg.Apply(mustParse("SET bogus=1"))).To(MatchError(control.ErrUnknownParam))

		Expect(reg.Apply(mustParse("START"))).To(Succeed())
		reg.Step()
		Expect(pid.Warm()).To(BeTrue())
		Expect(reg.Apply(mustParse("RESET"))).To(Succeed())
		Expect(pid.Warm()).To(BeFalse())
		Expect(pid.Target()).To(Equal(int32(6000)))
	})

	It("rejects SET atomically", func() {
		Expect(reg.Apply(mustParse("SET kd=7 kp=5 mode=9"))).To(MatchError(ContainSubstring("mode 9 out of range")))
		Expect(pid.Kp).To(Equal(int32(50)))
		Expect(pid.Kd).To(Equal(int32(-40)))
		Expect(pid.Mode).To(Equal(control.OnMeasurement))

		Expect(reg.Apply(mustParse("SET ki=3 zeta=1"))).To(MatchError(control.ErrUnknownParam))
		Expect(pid.Ki).To(Equal(int32(1)))
	})

	It("publishes on STATUS without stepping", func() {
		Expect(reg.Apply(mustParse("STATUS"))).To(Succeed())
		Expect(out.String()).To(Equal("Status R=false L=0 T=0 D=0\n"))
		Expect(actuator.Last()).To(Equal(int32(-1)))
	})

	It("refuses SET on controllers without parameters", func() {
		r, err := regulator.New(&fixedController{}, sensor, actuator, regulator.Options{Tick: time.Millisecond})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Apply(mustParse("SET kp=1"))).To(MatchError(regulator.ErrNotConfigurable))
	})

	It("runs on its ticker and switches off when cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		commands := make(chan shell.Command, 1)
		done := make(chan error, 1)
		go func() { done <- reg.Run(ctx, commands) }()

		commands <- mustParse("START TARGET=7000")
		Eventually(actuator.Max).Should(Equal(int32(1024)))

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		Expect(actuator.Last()).To(BeZero())
		Expect(logBuf.String()).To(ContainSubstring("command START TARGET=7000"))
	})
})

var _ = Describe("Simulated hardware", func() {
	It("heats the plant through the actuator", func() {
		plant, err := thermal.New(thermal.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		sensor := &regulator.SimSensor{Plant: plant, Scale: 100}
		actuator := &regulator.SimActuator{Plant: plant, Max: 1024}

		Expect(sensor.Read()).To(Equal(int32(2000)))
		for i := 0; i < 200; i++ {
			Expect(actuator.SetDuty(1024)).To(Succeed())
		}
		Expect(plant.Steps()).To(Equal(200))
		Expect(sensor.Read()).To(BeNumerically(">", 2000))
	})

	It("regulates a plant end to end", func() {
		plant, err := thermal.New(thermal.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		pid := control.NewPID(50, 1, -40)
		reg, err := regulator.New(pid,
			&regulator.SimSensor{Plant: plant, Scale: 100},
			&regulator.SimActuator{Plant: plant, Max: 1024},
			regulator.Options{Tick: time.Millisecond, Target: 5000})
		Expect(err).NotTo(HaveOccurred())

		Expect(reg.Apply(shell.Command{Verb: shell.Start})).To(Succeed())
		for i := 0; i < 3000; i++ {
			reg.Step()
		}
		Expect(plant.Temperature()).To(BeNumerically("~", 50, 3))
	})
})
