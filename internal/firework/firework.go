package firework

import (
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// rocketBias is the share of the rocket's terminal velocity carried into the burst.
const rocketBias = 0.2

// Audio cues explosion sounds. Explode returns a cancel function for any
// playback still pending; calling it after playback started is harmless.
type Audio interface {
	Explode(at mgl64.Vec3) (cancel func())
}

// Params are the construction parameters produced by a spawner.
type Params struct {
	ID       string
	Position mgl64.Vec3
	Color    colorful.Color
	Kind     Kind
}

// Options carries the collaborators and tuning for one instance.
type Options struct {
	Config     Config
	Rand       *rand.Rand // nil uses a time-seeded source
	Target     Renderable
	Audio      Audio
	Mode       RenderMode
	OnComplete func(id string)
}

// Firework is one launched instance. It is driven by a single frame loop and
// is not safe for concurrent use.
type Firework struct {
	id     string
	kind   Kind
	pos    mgl64.Vec3
	color  colorful.Color
	cfg    Config
	rng    *rand.Rand
	target Renderable
	audio  Audio
	mode   RenderMode
	done   func(string)

	phase  Phase
	rocket *Rocket
	origin mgl64.Vec3
	slots  []Particle
	clock  float64 // seconds since the burst

	splitTriggered bool
	completed      bool
	destroyed      bool

	cancels []func()
	frame   Frame
}

// New builds a firework. Variants without a launch phase burst immediately at
// Params.Position; the others start a rocket from the ground below it.
func New(p Params, opts Options) *Firework {
	cfg := SanitizeConfig(opts.Config)
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	f := &Firework{
		id:     p.ID,
		kind:   p.Kind,
		pos:    p.Position,
		color:  p.Color,
		cfg:    cfg,
		rng:    rng,
		target: opts.Target,
		audio:  opts.Audio,
		mode:   opts.Mode,
		done:   opts.OnComplete,
		slots:  make([]Particle, cfg.Count),
	}
	if cfg.Launch {
		f.phase = PhaseLaunch
		f.rocket = NewRocket(p.Position)
	} else {
		f.explode(p.Position, mgl64.Vec3{})
	}
	return f
}

func (f *Firework) ID() string             { return f.id }
func (f *Firework) Kind() Kind             { return f.kind }
func (f *Firework) Phase() Phase           { return f.phase }
func (f *Firework) Config() Config         { return f.cfg }
func (f *Firework) Rocket() *Rocket        { return f.rocket }
func (f *Firework) Origin() mgl64.Vec3     { return f.origin }
func (f *Firework) SplitTriggered() bool   { return f.splitTriggered }
func (f *Firework) Completed() bool        { return f.completed }
func (f *Firework) Destroyed() bool        { return f.destroyed }
func (f *Firework) Frame() Frame           { return f.frame }
func (f *Firework) Particles() []Particle  { return f.slots }
func (f *Firework) SetTarget(r Renderable) { f.target = r }

// LifeRatio is the remaining share of the burst's life span; 1 during launch.
func (f *Firework) LifeRatio() float64 {
	if f.phase == PhaseLaunch {
		return 1
	}
	r := 1 - f.clock/f.cfg.LifeSpan
	if r < 0 {
		return 0
	}
	return r
}

// Tick advances the simulation by dt seconds, uploads a fresh frame and
// signals completion once every particle has expired. A tick without a ready
// render target does nothing.
func (f *Firework) Tick(dt float64) {
	if f.destroyed || f.completed {
		return
	}
	if f.target == nil || !f.target.Ready() {
		return
	}
	if dt < 0 {
		dt = 0
	}

	switch f.phase {
	case PhaseLaunch:
		f.rocket.Advance(dt)
		if f.rocket.ShouldExplode() {
			f.explode(f.rocket.Pos, f.rocket.Vel)
		}
	case PhaseExplode:
		f.clock += dt
		for i := range f.slots {
			p := &f.slots[i]
			if p.Active {
				p.Advance(dt, f.cfg.Gravity, f.cfg.Drag)
			}
		}
		if f.cfg.Branches && !f.splitTriggered && f.LifeRatio() < f.cfg.SplitRatio {
			f.split()
		}
	}

	f.buildFrame()
	f.target.Upload(f.frame)

	if f.phase == PhaseExplode && f.exhausted() {
		f.completed = true
		if f.done != nil {
			f.done(f.id)
		}
	}
}

// explode switches to the burst phase centred at at. The first ParentCount
// slots become active; crossette keeps the remainder in reserve.
func (f *Firework) explode(at, rocketVel mgl64.Vec3) {
	f.phase = PhaseExplode
	f.origin = at
	f.clock = 0
	bias := rocketVel.Mul(rocketBias)
	for i := range f.slots {
		p := &f.slots[i]
		p.MaxLife = f.cfg.LifeSpan
		p.Color = jitterColor(f.color, f.rng)
		if i >= f.cfg.ParentCount {
			continue
		}
		speed := between(f.rng, f.cfg.SpeedMin, f.cfg.SpeedMax)
		p.Vel = sphereDir(f.rng).Mul(speed).Add(bias)
		p.Alpha = 1
		p.Active = true
	}
	if f.audio != nil {
		if cancel := f.audio.Explode(at); cancel != nil {
			f.cancels = append(f.cancels, cancel)
		}
	}
}

// split deactivates every live parent and hands its momentum to up to
// SplitChildren reserved slots. Reserved slots run out silently.
func (f *Firework) split() {
	f.splitTriggered = true
	next := f.cfg.ParentCount
	for i := 0; i < f.cfg.ParentCount; i++ {
		parent := &f.slots[i]
		if !parent.Visible() {
			continue
		}
		parent.Active = false
		for c := 0; c < f.cfg.SplitChildren && next < len(f.slots); c++ {
			child := &f.slots[next]
			next++
			speed := between(f.rng, f.cfg.SplitSpeedMin, f.cfg.SplitSpeedMax)
			child.Pos = parent.Pos
			child.Vel = parent.Vel.Mul(f.cfg.SplitInherit).Add(sphereDir(f.rng).Mul(speed))
			child.Age = parent.Age
			child.MaxLife = parent.MaxLife
			child.Alpha = parent.Alpha
			child.Generation = parent.Generation + 1
			child.Active = true
		}
	}
}

func (f *Firework) exhausted() bool {
	for i := range f.slots {
		if f.slots[i].Visible() {
			return false
		}
	}
	return true
}

// Destroy cancels pending audio and releases particle and trail storage.
// Further ticks are no-ops. Safe to call more than once.
func (f *Firework) Destroy() {
	if f.destroyed {
		return
	}
	f.destroyed = true
	for _, cancel := range f.cancels {
		cancel()
	}
	f.cancels = nil
	f.slots = nil
	f.rocket = nil
	f.frame = Frame{}
	f.target = nil
}
