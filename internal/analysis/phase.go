package analysis

import (
	"strings"

	"github.com/san-kum/ensda/internal/dynamo"
)

// PhasePortrait is a 2D projection of a trajectory. For the Lorenz system
// the (x, z) projection is the classic butterfly.
type PhasePortrait struct {
	XIndex, YIndex int
	X, Y           []float64
}

// TracePortrait integrates the system for the given duration and records the
// (xIdx, yIdx) projection of the trajectory. Returns nil when an index is out
// of range.
func TracePortrait(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, xIdx, yIdx int, dt, duration float64) *PhasePortrait {
	if xIdx >= len(x0) || yIdx >= len(x0) || dt <= 0 {
		return nil
	}

	n := int(duration / dt)
	p := &PhasePortrait{
		XIndex: xIdx,
		YIndex: yIdx,
		X:      make([]float64, 0, n),
		Y:      make([]float64, 0, n),
	}

	x := x0.Clone()
	t := 0.0
	for t < duration {
		x = integ.Step(sys, x, t, dt)
		t += dt
		p.X = append(p.X, x[xIdx])
		p.Y = append(p.Y, x[yIdx])
	}
	return p
}

// RenderASCII rasterizes the portrait onto a width x height character canvas
// with a 10% margin, drawing axis lines where they cross the view.
func (p *PhasePortrait) RenderASCII(width, height int) string {
	if p == nil || len(p.X) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := p.X[0], p.X[0]
	minY, maxY := p.Y[0], p.Y[0]
	for i := range p.X {
		minX = min(minX, p.X[i])
		maxX = max(maxX, p.X[i])
		minY = min(minY, p.Y[i])
		maxY = max(maxY, p.Y[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for i := range p.X {
		col := int((p.X[i] - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y[i]-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
