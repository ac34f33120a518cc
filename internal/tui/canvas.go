package tui

import (
	"Fireworks/internal/firework"
	"Fireworks/internal/game"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	reflectGain = 0.25
	groundGain  = 0.12
	minVisible  = 0.04
)

var glyphs = []rune{'.', ':', '+', '*', '#', '@'}

// Canvas accumulates projected particle colour per cell. Overlapping
// particles add up, the way additive blending does on a GPU.
type Canvas struct {
	w, h int
	acc  []colorful.Color
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{}
	c.Resize(w, h)
	return c
}

func (c *Canvas) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	c.w, c.h = w, h
	c.acc = make([]colorful.Color, w*h)
}

func (c *Canvas) Size() (int, int) { return c.w, c.h }

func (c *Canvas) Clear() {
	for i := range c.acc {
		c.acc[i] = colorful.Color{}
	}
}

func (c *Canvas) add(x, y int, r, g, b float64) {
	i := y*c.w + x
	c.acc[i].R += r
	c.acc[i].G += g
	c.acc[i].B += b
}

// Plot projects every entry of f and adds its premultiplied colour, plus a
// dimmer copy mirrored in the launch surface.
func (c *Canvas) Plot(cam *Camera, f firework.Frame) {
	for i := 0; i < f.Len(); i++ {
		s := float64(f.Scales[i])
		if s <= 0 {
			continue
		}
		p := mgl64.Vec3{float64(f.Positions[3*i]), float64(f.Positions[3*i+1]), float64(f.Positions[3*i+2])}
		r, g, b := float64(f.Colors[3*i]), float64(f.Colors[3*i+1]), float64(f.Colors[3*i+2])
		if x, y, _, ok := cam.Project(p, c.w, c.h); ok {
			c.add(x, y, r, g, b)
		}
		if p.Y() <= game.GroundY {
			continue
		}
		mirror := mgl64.Vec3{p.X(), 2*game.GroundY - p.Y(), p.Z()}
		if x, y, _, ok := cam.Project(mirror, c.w, c.h); ok {
			c.add(x, y, r*reflectGain, g*reflectGain, b*reflectGain)
		}
	}
}

// PlotGround marks a grid on the launch surface.
func (c *Canvas) PlotGround(cam *Camera, extent, step float64) {
	for x := -extent; x <= extent; x += step {
		for z := -extent; z <= extent; z += step {
			if px, py, _, ok := cam.Project(mgl64.Vec3{x, game.GroundY, z}, c.w, c.h); ok {
				c.add(px, py, groundGain, groundGain, groundGain*1.5)
			}
		}
	}
}

// At returns the clamped colour accumulated in a cell.
func (c *Canvas) At(x, y int) colorful.Color {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return colorful.Color{}
	}
	return c.acc[y*c.w+x].Clamped()
}

// Draw writes the canvas to s, choosing a denser glyph for brighter cells.
func (c *Canvas) Draw(s tcell.Screen) {
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			col := c.At(x, y)
			level := max(col.R, col.G, col.B)
			if level < minVisible {
				continue
			}
			g := glyphs[min(int(level*float64(len(glyphs))), len(glyphs)-1)]
			r, gg, b := col.RGB255()
			style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.NewRGBColor(int32(r), int32(gg), int32(b)))
			s.SetContent(x, y, g, nil, style)
		}
	}
}
