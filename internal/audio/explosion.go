package audio

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep"
)

const (
	ExplosionDuration = 2 * time.Second
	explosionDecay    = 5.0
)

// noiseBurst streams white noise shaped by e^{-decay*t}.
type noiseBurst struct {
	rate     beep.SampleRate
	rng      *rand.Rand
	position int
	duration int
	decay    float64
}

func (n *noiseBurst) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		if n.position >= n.duration {
			return i, i > 0
		}
		t := float64(n.position) / float64(n.rate)
		v := (n.rng.Float64()*2 - 1) * math.Exp(-n.decay*t)
		samples[i][0] = v
		samples[i][1] = v
		n.position++
	}
	return len(samples), true
}

func (n *noiseBurst) Err() error { return nil }

// ExplosionBuffer renders the shared explosion sample: two seconds of white
// noise with an exponential decay. A nil rng uses a fixed seed.
func ExplosionBuffer(format beep.Format, rng *rand.Rand) *beep.Buffer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	buf := beep.NewBuffer(format)
	buf.Append(&noiseBurst{
		rate:     format.SampleRate,
		rng:      rng,
		duration: format.SampleRate.N(ExplosionDuration),
		decay:    explosionDecay,
	})
	return buf
}
