package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/heatloop/internal/sim"
)

func TestChartSVG(t *testing.T) {
	svg := ChartSVG([]Series{
		{Values: []float64{0, 1, 2}, Stroke: "#ff0000"},
		{Values: []float64{2, 2, 2}, Stroke: "#00ff00"},
	}, 100, 50)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("malformed svg: %s", svg)
	}
	if n := strings.Count(svg, "<path"); n != 2 {
		t.Errorf("expected 2 paths, got %d", n)
	}
	if !strings.Contains(svg, `d="M0.0,`) || !strings.Contains(svg, " L100.0,") {
		t.Errorf("expected path spanning full width: %s", svg)
	}
}

func TestChartSVG_TooShort(t *testing.T) {
	if svg := ChartSVG([]Series{{Values: []float64{1}}}, 10, 10); svg != "" {
		t.Errorf("expected empty output, got %q", svg)
	}
}

func TestRunToSVG(t *testing.T) {
	samples := []sim.Sample{
		{Step: 0, Target: 7000, Temperature: 20},
		{Step: 1, Target: 7000, Temperature: 21},
		{Step: 2, Target: 7000, Temperature: 23},
	}
	var buf bytes.Buffer
	if err := RunToSVG(&buf, samples, 100, 200, 100); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "#ff4444") || !strings.Contains(buf.String(), "#4488ff") {
		t.Error("expected temperature and target series")
	}

	if err := RunToSVG(&buf, samples[:1], 100, 200, 100); err == nil {
		t.Error("expected error for a single sample")
	}
}
