package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/pendsim/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait holds two components of a recorded run.
type PhasePortrait struct {
	XIndex, YIndex int
	Points         []Point
}

// NewPhasePortrait projects recorded states onto components xIdx and yIdx.
func NewPhasePortrait(states []dynamo.State, xIdx, yIdx int) (*PhasePortrait, error) {
	portrait := &PhasePortrait{XIndex: xIdx, YIndex: yIdx, Points: make([]Point, 0, len(states))}
	for i, x := range states {
		if xIdx < 0 || yIdx < 0 || xIdx >= len(x) || yIdx >= len(x) {
			return nil, fmt.Errorf("%w: state %d has %d components, want indices %d and %d",
				dynamo.ErrInvalidParameter, i, len(x), xIdx, yIdx)
		}
		portrait.Points = append(portrait.Points, Point{X: x[xIdx], Y: x[yIdx]})
	}
	return portrait, nil
}

// NewPoincareSection records (x[xIdx], x[yIdx]) wherever component crossIdx
// passes upward through threshold between consecutive recorded states.
func NewPoincareSection(states []dynamo.State, crossIdx int, threshold float64, xIdx, yIdx int) (*PhasePortrait, error) {
	all, err := NewPhasePortrait(states, crossIdx, crossIdx)
	if err != nil {
		return nil, err
	}
	if _, err := NewPhasePortrait(states, xIdx, yIdx); err != nil {
		return nil, err
	}

	section := &PhasePortrait{XIndex: xIdx, YIndex: yIdx}
	for i := 1; i < len(all.Points); i++ {
		prev, curr := all.Points[i-1].X, all.Points[i].X
		if prev < threshold && curr >= threshold {
			section.Points = append(section.Points, Point{X: states[i][xIdx], Y: states[i][yIdx]})
		}
	}
	return section, nil
}

// ASCII draws the points on a width x height character grid with axes
// through the origin when it is in view.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX, maxX = minX-rangeX*0.1, maxX+rangeX*0.1
	minY, maxY = minY-rangeY*0.1, maxY+rangeY*0.1
	rangeX, rangeY = maxX-minX, maxY-minY

	col := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range canvas {
			canvas[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range canvas[r] {
			if canvas[r][c] == '│' {
				canvas[r][c] = '┼'
			} else {
				canvas[r][c] = '─'
			}
		}
	}

	for _, pt := range p.Points {
		canvas[row(pt.Y)][col(pt.X)] = '•'
	}

	var sb strings.Builder
	for _, r := range canvas {
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	return sb.String()
}
