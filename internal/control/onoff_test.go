package control

import "testing"

func TestOnOff_Hysteresis(t *testing.T) {
	c := NewOnOff(0, 1024, 5)
	c.SetTarget(100)

	steps := []struct {
		measurement int32
		want        int32
	}{
		{90, 1024},
		{100, 1024},
		{105, 1024},
		{106, 0},
		{100, 0},
		{95, 0},
		{94, 1024},
	}

	for i, s := range steps {
		if got := c.Update(s.measurement, 1); got != s.want {
			t.Errorf("step %d: Update(%d) = %d, want %d", i, s.measurement, got, s.want)
		}
	}
}

func TestOnOff_Reset(t *testing.T) {
	c := NewOnOff(0, 255, 0)
	c.SetTarget(50)
	if got := c.Update(10, 1); got != 255 {
		t.Fatalf("expected on, got %d", got)
	}

	c.Reset()
	if got := c.Update(50, 1); got != 0 {
		t.Errorf("expected off after reset, got %d", got)
	}
	if c.Target() != 50 {
		t.Error("reset must keep target")
	}
}

func TestOnOff_SetParam(t *testing.T) {
	c := NewOnOff(0, 1, 1)
	if err := c.SetParam("band", -1); err == nil {
		t.Error("expected error for negative band")
	}
	if err := c.SetParam("high", 900); err != nil || c.Params()["high"] != 900 {
		t.Errorf("expected high 900, got %d (%v)", c.Params()["high"], err)
	}
}

func TestManual(t *testing.T) {
	m := NewManual(255)
	m.SetTarget(9000)

	for _, v := range []int32{0, 5000, 20000} {
		if got := m.Update(v, 1); got != 255 {
			t.Errorf("expected fixed output 255, got %d", got)
		}
	}
	if err := m.SetParam("output", 0); err != nil {
		t.Fatal(err)
	}
	if got := m.Update(0, 1); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
