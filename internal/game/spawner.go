package game

import (
	"log"
	"math/rand/v2"

	"Fireworks/internal/firework"
	"Fireworks/internal/wire"

	"github.com/go-gl/mathgl/mgl64"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Publisher forwards locally originated launches to remote viewers.
type Publisher interface {
	Publish(wire.LaunchEvent) error
}

// Spawner turns pointer hits and inbound launch events into registry spawns.
// Both paths build the same parameters; only local launches are published.
type Spawner struct {
	reg *Registry
	pub Publisher
	rng *rand.Rand
}

func NewSpawner(reg *Registry, pub Publisher, rng *rand.Rand) *Spawner {
	if rng == nil {
		rng = NewRand()
	}
	return &Spawner{reg: reg, pub: pub, rng: rng}
}

// FromPointer launches a random firework SpawnLift above a ground hit.
func (s *Spawner) FromPointer(hit mgl64.Vec3) string {
	pos := hit.Add(mgl64.Vec3{0, SpawnLift, 0})
	return s.Launch(pos, RandomColor(s.rng), RandomKind(s.rng))
}

// Launch spawns locally and publishes the launch.
func (s *Spawner) Launch(pos mgl64.Vec3, color colorful.Color, kind firework.Kind) string {
	id := s.reg.Spawn(pos, color, kind)
	if s.pub != nil {
		ev := wire.NewLaunch(pos.X(), pos.Y(), pos.Z(), color.Hex(), kind)
		if err := s.pub.Publish(ev); err != nil {
			log.Printf("spawner: publish %s: %v", id, err)
		}
	}
	return id
}

// FromEvent spawns a firework announced by another viewer. Events that fail
// validation are dropped and reported as not spawned.
func (s *Spawner) FromEvent(ev wire.LaunchEvent) (string, bool) {
	if err := ev.Validate(); err != nil {
		log.Printf("spawner: ignoring event: %v", err)
		return "", false
	}
	color, _ := colorful.Hex(ev.Color)
	kind, _ := firework.ParseKind(ev.FireworkType)
	return s.reg.Spawn(mgl64.Vec3{ev.X, ev.Y, ev.Z}, color, kind), true
}

// Registry returns the registry spawns go into.
func (s *Spawner) Registry() *Registry { return s.reg }
