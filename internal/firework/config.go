package firework

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects one of the firework variants.
type Kind int

const (
	Peony Kind = iota
	Willow
	Crossette
)

var ErrUnknownKind = errors.New("unknown firework kind")

var kindNames = [...]string{
	Peony:     "peony",
	Willow:    "willow",
	Crossette: "crossette",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds lists every supported variant in a stable order.
func Kinds() []Kind {
	return []Kind{Peony, Willow, Crossette}
}

// ParseKind accepts the variant names used on the wire. "classic" is an alias for peony.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "peony", "classic":
		return Peony, nil
	case "willow":
		return Willow, nil
	case "crossette":
		return Crossette, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Phase is the top-level state of a firework.
type Phase int

const (
	PhaseLaunch Phase = iota
	PhaseExplode
)

func (p Phase) String() string {
	if p == PhaseLaunch {
		return "launch"
	}
	return "explode"
}

// Config holds per-variant tuning. Drag is a velocity retention factor per
// frame at 60 fps.
type Config struct {
	Count       int
	ParentCount int // slots active at explosion; the rest are reserved for branching
	Gravity     float64
	Drag        float64
	LifeSpan    float64
	SpeedMin    float64
	SpeedMax    float64
	Launch      bool
	Flicker     bool

	Branches      bool
	SplitRatio    float64 // life ratio below which the one-shot split fires
	SplitChildren int
	SplitInherit  float64 // fraction of parent velocity kept by each child
	SplitSpeedMin float64
	SplitSpeedMax float64
}

const (
	defaultSplitRatio    = 0.6
	defaultSplitChildren = 4
	defaultSplitInherit  = 0.6
	defaultSplitSpeedMin = 2.0
	defaultSplitSpeedMax = 5.0
)

// DefaultConfig returns the stock tuning for a variant.
func DefaultConfig(k Kind) Config {
	switch k {
	case Willow:
		return Config{
			Count:       400,
			ParentCount: 400,
			Gravity:     3.0,
			Drag:        0.92,
			LifeSpan:    3.0,
			SpeedMin:    4,
			SpeedMax:    10,
			Launch:      true,
			Flicker:     true,
		}
	case Crossette:
		return Config{
			Count:         1000,
			ParentCount:   200,
			Gravity:       9.8,
			Drag:          0.96,
			LifeSpan:      1.5,
			SpeedMin:      6,
			SpeedMax:      12,
			Launch:        true,
			Flicker:       true,
			Branches:      true,
			SplitRatio:    defaultSplitRatio,
			SplitChildren: defaultSplitChildren,
			SplitInherit:  defaultSplitInherit,
			SplitSpeedMin: defaultSplitSpeedMin,
			SplitSpeedMax: defaultSplitSpeedMax,
		}
	default:
		return Config{
			Count:       500,
			ParentCount: 500,
			Gravity:     9.8,
			Drag:        0.96,
			LifeSpan:    1.2,
			SpeedMin:    5,
			SpeedMax:    15,
			Flicker:     true,
		}
	}
}

// Tuning maps each variant to its configuration.
type Tuning map[Kind]Config

// DefaultTuning returns stock tuning for every variant.
func DefaultTuning() Tuning {
	t := make(Tuning, len(kindNames))
	for _, k := range Kinds() {
		t[k] = DefaultConfig(k)
	}
	return t
}

// For returns the sanitized config for k, falling back to the stock tuning.
func (t Tuning) For(k Kind) Config {
	if cfg, ok := t[k]; ok {
		return SanitizeConfig(cfg)
	}
	return DefaultConfig(k)
}

// MaxCount bounds the slot pool of a single instance.
const MaxCount = 10000

// SanitizeConfig clamps tuning values into ranges the simulation can run with.
func SanitizeConfig(c Config) Config {
	if c.Count < 1 {
		c.Count = 1
	}
	if c.Count > MaxCount {
		c.Count = MaxCount
	}
	if c.ParentCount <= 0 || c.ParentCount > c.Count {
		c.ParentCount = c.Count
	}
	if !c.Branches {
		c.ParentCount = c.Count
	}
	if c.Gravity < 0 {
		c.Gravity = 0
	}
	if c.Drag <= 0 || c.Drag > 1 {
		c.Drag = 1
	}
	if c.LifeSpan <= 0 {
		c.LifeSpan = 1
	}
	if c.SpeedMin < 0 {
		c.SpeedMin = 0
	}
	if c.SpeedMax < c.SpeedMin {
		c.SpeedMax = c.SpeedMin
	}
	if c.Branches {
		if c.SplitRatio <= 0 || c.SplitRatio >= 1 {
			c.SplitRatio = defaultSplitRatio
		}
		if c.SplitChildren < 1 {
			c.SplitChildren = defaultSplitChildren
		}
		// Zero inherit or burst speed reads as unset.
		if c.SplitInherit <= 0 || c.SplitInherit > 1 {
			c.SplitInherit = defaultSplitInherit
		}
		if c.SplitSpeedMax == 0 {
			c.SplitSpeedMin, c.SplitSpeedMax = defaultSplitSpeedMin, defaultSplitSpeedMax
		}
		if c.SplitSpeedMin < 0 {
			c.SplitSpeedMin = 0
		}
		if c.SplitSpeedMax < c.SplitSpeedMin {
			c.SplitSpeedMax = c.SplitSpeedMin
		}
	}
	return c
}
