// Package export renders stored runs to standalone files.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/heatloop/internal/sim"
)

const padding = 0.1

// Series is one polyline of a chart.
type Series struct {
	Values []float64
	Stroke string
}

// RunToSVG plots temperature and target over step count. scale converts
// targets from controller units to °C.
func RunToSVG(w io.Writer, samples []sim.Sample, scale float64, width, height int) error {
	if len(samples) < 2 {
		return fmt.Errorf("export: need at least 2 samples, got %d", len(samples))
	}
	if scale <= 0 {
		scale = 1
	}
	temps := make([]float64, len(samples))
	targets := make([]float64, len(samples))
	for i, s := range samples {
		temps[i] = s.Temperature
		targets[i] = float64(s.Target) / scale
	}
	_, err := io.WriteString(w, ChartSVG([]Series{
		{Values: targets, Stroke: "#4488ff"},
		{Values: temps, Stroke: "#ff4444"},
	}, width, height))
	return err
}

// ChartSVG draws every series against a shared y range, evenly spaced
// along x.
func ChartSVG(series []Series, width, height int) string {
	minY, maxY, n := 0.0, 0.0, 0
	first := true
	for _, s := range series {
		if len(s.Values) > n {
			n = len(s.Values)
		}
		for _, v := range s.Values {
			if first || v < minY {
				minY = v
			}
			if first || v > maxY {
				maxY = v
			}
			first = false
		}
	}
	if n < 2 {
		return ""
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * padding
	maxY += rangeY * padding
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for _, s := range series {
		if len(s.Values) < 2 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Stroke))
		for i, v := range s.Values {
			x := float64(i) / float64(n-1) * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}
