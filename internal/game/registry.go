package game

import (
	"log"
	"math/rand/v2"

	"Fireworks/internal/firework"

	"github.com/go-gl/mathgl/mgl64"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// RegistryOptions configures the instances a Registry creates.
type RegistryOptions struct {
	Tuning  firework.Tuning
	Mode    firework.RenderMode
	Target  firework.Renderable // shared by every instance; nil is always ready
	Audio   firework.Audio
	Rand    *rand.Rand
	MaxLive int // 0 means MaxLive
}

// Registry owns the live firework instances of one session. It is the only
// place membership changes. Like the instances it drives, it is not safe for
// concurrent use; callers serialise access (Room holds its mutex).
type Registry struct {
	opts  RegistryOptions
	rng   *rand.Rand
	live  map[string]*firework.Firework
	order []string

	ticking  bool
	finished []string
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Tuning == nil {
		opts.Tuning = firework.DefaultTuning()
	}
	if opts.Target == nil {
		opts.Target = firework.RenderFunc(func(firework.Frame) {})
	}
	if opts.MaxLive <= 0 {
		opts.MaxLive = MaxLive
	}
	rng := opts.Rand
	if rng == nil {
		rng = NewRand()
	}
	return &Registry{
		opts: opts,
		rng:  rng,
		live: map[string]*firework.Firework{},
	}
}

// Spawn creates an instance and returns its id. When the registry is at
// capacity the oldest instance is destroyed first.
func (r *Registry) Spawn(pos mgl64.Vec3, color colorful.Color, kind firework.Kind) string {
	for len(r.order) >= r.opts.MaxLive {
		oldest := r.order[0]
		log.Printf("registry: at capacity (%d), dropping %s", r.opts.MaxLive, oldest)
		r.remove(oldest)
	}
	id := NewID()
	fw := firework.New(firework.Params{
		ID:       id,
		Position: pos,
		Color:    color,
		Kind:     kind,
	}, firework.Options{
		Config:     r.opts.Tuning.For(kind),
		Rand:       rand.New(rand.NewPCG(r.rng.Uint64(), r.rng.Uint64())),
		Target:     r.opts.Target,
		Audio:      r.opts.Audio,
		Mode:       r.opts.Mode,
		OnComplete: r.OnComplete,
	})
	r.live[id] = fw
	r.order = append(r.order, id)
	return id
}

// Tick advances every instance once. Instances that complete during the pass
// are removed after it and are never ticked again.
func (r *Registry) Tick(dt float64) {
	r.ticking = true
	for _, id := range r.order {
		if fw, ok := r.live[id]; ok {
			fw.Tick(dt)
		}
	}
	r.ticking = false
	for _, id := range r.finished {
		r.remove(id)
	}
	r.finished = r.finished[:0]
}

// OnComplete removes the instance with the given id. Unknown ids and repeat
// calls are no-ops.
func (r *Registry) OnComplete(id string) {
	if _, ok := r.live[id]; !ok {
		return
	}
	if r.ticking {
		for _, f := range r.finished {
			if f == id {
				return
			}
		}
		r.finished = append(r.finished, id)
		return
	}
	r.remove(id)
}

func (r *Registry) remove(id string) {
	fw, ok := r.live[id]
	if !ok {
		return
	}
	fw.Destroy()
	delete(r.live, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) Len() int { return len(r.live) }

func (r *Registry) Get(id string) (*firework.Firework, bool) {
	fw, ok := r.live[id]
	return fw, ok
}

// Each visits live instances in spawn order.
func (r *Registry) Each(fn func(*firework.Firework)) {
	for _, id := range r.order {
		if fw, ok := r.live[id]; ok {
			fn(fw)
		}
	}
}

// Clear destroys every instance, cancelling pending audio.
func (r *Registry) Clear() {
	for _, fw := range r.live {
		fw.Destroy()
	}
	r.live = map[string]*firework.Firework{}
	r.order = nil
	r.finished = r.finished[:0]
}
