package firework

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// lifeEpsilon absorbs rounding when many small dt steps sum to MaxLife.
const lifeEpsilon = 1e-9

// Particle is one point mass of an explosion. Pos is relative to the owning
// firework's burst origin.
type Particle struct {
	Pos        mgl64.Vec3
	Vel        mgl64.Vec3
	Color      colorful.Color
	Age        float64
	MaxLife    float64
	Alpha      float64
	Active     bool
	Generation int
}

// Advance integrates one step. Drag is a retention factor per 1/60 s and is
// raised to dt*60 so the result does not depend on the frame rate.
func (p *Particle) Advance(dt, gravity, drag float64) {
	p.Age += dt
	p.Vel[1] -= gravity * dt
	p.Vel = p.Vel.Mul(DragFactor(drag, dt))
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
	p.Alpha = alphaFor(p.Age, p.MaxLife)
}

// Expired reports whether the particle has outlived MaxLife.
func (p *Particle) Expired() bool {
	return p.Age >= p.MaxLife-lifeEpsilon
}

// Visible reports whether the particle contributes to a frame.
func (p *Particle) Visible() bool {
	return p.Active && !p.Expired()
}

// DragFactor converts a per-frame retention factor into the factor for dt seconds.
func DragFactor(drag, dt float64) float64 {
	return math.Pow(drag, dt*60)
}

func alphaFor(age, maxLife float64) float64 {
	if maxLife <= 0 || age >= maxLife-lifeEpsilon {
		return 0
	}
	a := 1 - age/maxLife
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// sphereDir samples a direction uniformly on the unit sphere by inverse CDF.
func sphereDir(rng *rand.Rand) mgl64.Vec3 {
	theta := rng.Float64() * 2 * math.Pi
	phi := math.Acos(2*rng.Float64() - 1)
	sinPhi := math.Sin(phi)
	return mgl64.Vec3{
		sinPhi * math.Cos(theta),
		sinPhi * math.Sin(theta),
		math.Cos(phi),
	}
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}

// jitterColor offsets hue and lightness slightly so a burst is not flat.
func jitterColor(base colorful.Color, rng *rand.Rand) colorful.Color {
	h, s, l := base.Hsl()
	h += (rng.Float64() - 0.5) * 0.04 * 360
	if h < 0 {
		h += 360
	} else if h >= 360 {
		h -= 360
	}
	l += (rng.Float64() - 0.5) * 0.2
	return colorful.Hsl(h, s, l).Clamped()
}
