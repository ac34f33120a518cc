package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"Fireworks/internal/firework"

	"github.com/google/uuid"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// NewID returns a session-unique instance id. Random v4 UUIDs keep ids
// distinct even for spawns issued within the same clock tick.
func NewID() string {
	return "fw-" + uuid.NewString()
}

// NewRand returns a PCG source seeded from the wall clock.
func NewRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>17|0x5851f42d4c957f2d))
}

// RandomColor picks a uniformly random RGB colour.
func RandomColor(rng *rand.Rand) colorful.Color {
	c, _ := colorful.Hex(fmt.Sprintf("#%06x", rng.IntN(1<<24)))
	return c
}

// RandomKind picks a firework variant uniformly.
func RandomKind(rng *rand.Rand) firework.Kind {
	kinds := firework.Kinds()
	return kinds[rng.IntN(len(kinds))]
}
