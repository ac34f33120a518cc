package firework

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween/ease"
)

// RenderMode selects how hidden particles are represented in a Frame.
type RenderMode int

const (
	// ModePoints omits inactive and expired particles.
	ModePoints RenderMode = iota
	// ModeInstanced emits one entry per slot; hidden slots have scale 0.
	ModeInstanced
)

// Frame is the per-tick render snapshot. Positions and Colors hold three
// floats per entry and are aligned index for index; Scales holds one float
// per entry. The backing arrays are reused by the next tick, so a consumer
// that keeps a Frame past Upload must Clone it.
type Frame struct {
	Positions []float32
	Colors    []float32
	Scales    []float32
}

// Len returns the number of entries.
func (f Frame) Len() int { return len(f.Scales) }

// Clone returns a deep copy.
func (f Frame) Clone() Frame {
	return Frame{
		Positions: append([]float32(nil), f.Positions...),
		Colors:    append([]float32(nil), f.Colors...),
		Scales:    append([]float32(nil), f.Scales...),
	}
}

func (f *Frame) reset() {
	f.Positions = f.Positions[:0]
	f.Colors = f.Colors[:0]
	f.Scales = f.Scales[:0]
}

func (f *Frame) add(p mgl64.Vec3, r, g, b, scale float64) {
	f.Positions = append(f.Positions, float32(p[0]), float32(p[1]), float32(p[2]))
	f.Colors = append(f.Colors, float32(r), float32(g), float32(b))
	f.Scales = append(f.Scales, float32(scale))
}

// Renderable consumes frames. Ready reports whether the surface is mounted;
// a firework skips its tick entirely while it is not.
type Renderable interface {
	Ready() bool
	Upload(Frame)
}

// RenderFunc adapts a function into an always-ready Renderable.
type RenderFunc func(Frame)

func (RenderFunc) Ready() bool      { return true }
func (fn RenderFunc) Upload(f Frame) { fn(f) }

// buildFrame regenerates f.frame from current state.
func (f *Firework) buildFrame() {
	fr := &f.frame
	fr.reset()
	if f.phase == PhaseLaunch {
		f.buildLaunchFrame()
		return
	}
	for i := range f.slots {
		p := &f.slots[i]
		if !p.Visible() {
			if f.mode == ModeInstanced {
				fr.add(f.origin.Add(p.Pos), 0, 0, 0, 0)
			}
			continue
		}
		k := p.Alpha
		if f.mode == ModePoints && f.cfg.Flicker {
			k *= 0.5 + 0.5*f.rng.Float64()
		}
		fr.add(f.origin.Add(p.Pos), p.Color.R*k, p.Color.G*k, p.Color.B*k, p.Alpha)
	}
}

// buildLaunchFrame emits the rocket head followed by its trail, newest
// segment brightest. In instanced mode the frame is padded with hidden
// entries to one per slot, so the entry count does not change at the burst.
func (f *Firework) buildLaunchFrame() {
	fr := &f.frame
	r := f.rocket
	c := f.color
	fr.add(r.Pos, c.R, c.G, c.B, 1)
	n := r.trail.len()
	for i := n - 1; i >= 0; i-- {
		age := float32(n-1-i) / float32(TrailLength)
		k := float64(ease.OutQuad(age, 1, -1, 1))
		fr.add(r.trail.at(i), c.R*k, c.G*k, c.B*k, k*0.5)
	}
	if f.mode == ModeInstanced {
		for fr.Len() < len(f.slots) {
			fr.add(r.Pos, 0, 0, 0, 0)
		}
	}
}
