package firework

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	LaunchGravity      = 5.0 // gentler than burst gravity so the ascent decelerates slowly
	TransitionVelocity = 2.0 // rocket bursts once its climb rate drops to this
	TrailLength        = 20
	launchOvershoot    = 1.05
)

// trail is a fixed-capacity ring of recent rocket positions.
type trail struct {
	buf   []mgl64.Vec3
	head  int
	size  int
	limit int
}

func newTrail(n int) *trail {
	if n < 1 {
		n = 1
	}
	return &trail{buf: make([]mgl64.Vec3, n), limit: n}
}

func (t *trail) push(p mgl64.Vec3) {
	t.buf[t.head] = p
	t.head = (t.head + 1) % t.limit
	if t.size < t.limit {
		t.size++
	}
}

func (t *trail) len() int { return t.size }

// at returns the i-th stored position, oldest first.
func (t *trail) at(i int) mgl64.Vec3 {
	return t.buf[(t.head-t.size+i+t.limit)%t.limit]
}

// Rocket is the launch-phase projectile.
type Rocket struct {
	Pos          mgl64.Vec3
	Vel          mgl64.Vec3
	TargetHeight float64
	trail        *trail
}

// NewRocket starts a rocket on the ground below target with enough climb to
// reach target's height.
func NewRocket(target mgl64.Vec3) *Rocket {
	h := math.Max(target.Y(), 0)
	return &Rocket{
		Pos:          mgl64.Vec3{target.X(), 0, target.Z()},
		Vel:          mgl64.Vec3{0, launchOvershoot * math.Sqrt(2*LaunchGravity*h), 0},
		TargetHeight: target.Y(),
		trail:        newTrail(TrailLength),
	}
}

// Advance moves the rocket and records the new position in its trail.
func (r *Rocket) Advance(dt float64) {
	r.Pos = r.Pos.Add(r.Vel.Mul(dt))
	r.Vel[1] -= LaunchGravity * dt
	r.trail.push(r.Pos)
}

// ShouldExplode reports whether the rocket has stalled or reached its target height.
func (r *Rocket) ShouldExplode() bool {
	return r.Vel.Y() <= TransitionVelocity || r.Pos.Y() >= r.TargetHeight
}

// Trail returns the recorded positions, oldest first.
func (r *Rocket) Trail() []mgl64.Vec3 {
	if r.trail == nil {
		return nil
	}
	out := make([]mgl64.Vec3, r.trail.len())
	for i := range out {
		out[i] = r.trail.at(i)
	}
	return out
}
