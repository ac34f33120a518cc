package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"Fireworks/internal/firework"
)

type kindConfig struct {
	Count         *int     `json:"count"`
	ParentCount   *int     `json:"parentCount"`
	Gravity       *float64 `json:"gravity"`
	Drag          *float64 `json:"drag"`
	LifeSpan      *float64 `json:"lifeSpan"`
	SpeedMin      *float64 `json:"speedMin"`
	SpeedMax      *float64 `json:"speedMax"`
	Launch        *bool    `json:"launch"`
	Flicker       *bool    `json:"flicker"`
	SplitRatio    *float64 `json:"splitRatio"`
	SplitChildren *int     `json:"splitChildren"`
	SplitInherit  *float64 `json:"splitInherit"`
	SplitSpeedMin *float64 `json:"splitSpeedMin"`
	SplitSpeedMax *float64 `json:"splitSpeedMax"`
}

type tuningFile struct {
	Fireworks map[string]*kindConfig `json:"fireworks"`
}

// TuningOverrides are command-line overrides applied after the tuning file.
// An empty Kind applies them to every variant.
type TuningOverrides struct {
	Kind     string
	Count    *int
	Gravity  *float64
	Drag     *float64
	LifeSpan *float64
}

func (o TuningOverrides) apply(base firework.Tuning) (firework.Tuning, error) {
	kinds := firework.Kinds()
	if strings.TrimSpace(o.Kind) != "" {
		k, err := firework.ParseKind(o.Kind)
		if err != nil {
			return base, err
		}
		kinds = []firework.Kind{k}
	}
	out := cloneTuning(base)
	for _, k := range kinds {
		cfg := out.For(k)
		if o.Count != nil {
			cfg.Count = *o.Count
			if !cfg.Branches {
				cfg.ParentCount = *o.Count
			}
		}
		if o.Gravity != nil {
			cfg.Gravity = *o.Gravity
		}
		if o.Drag != nil {
			cfg.Drag = *o.Drag
		}
		if o.LifeSpan != nil {
			cfg.LifeSpan = *o.LifeSpan
		}
		out[k] = firework.SanitizeConfig(cfg)
	}
	return out, nil
}

func mergeKindConfig(base firework.Config, cfg *kindConfig) firework.Config {
	if cfg == nil {
		return base
	}
	if cfg.Count != nil {
		base.Count = *cfg.Count
	}
	if cfg.ParentCount != nil {
		base.ParentCount = *cfg.ParentCount
	}
	if cfg.Gravity != nil {
		base.Gravity = *cfg.Gravity
	}
	if cfg.Drag != nil {
		base.Drag = *cfg.Drag
	}
	if cfg.LifeSpan != nil {
		base.LifeSpan = *cfg.LifeSpan
	}
	if cfg.SpeedMin != nil {
		base.SpeedMin = *cfg.SpeedMin
	}
	if cfg.SpeedMax != nil {
		base.SpeedMax = *cfg.SpeedMax
	}
	if cfg.Launch != nil {
		base.Launch = *cfg.Launch
	}
	if cfg.Flicker != nil {
		base.Flicker = *cfg.Flicker
	}
	if cfg.SplitRatio != nil {
		base.SplitRatio = *cfg.SplitRatio
	}
	if cfg.SplitChildren != nil {
		base.SplitChildren = *cfg.SplitChildren
	}
	if cfg.SplitInherit != nil {
		base.SplitInherit = *cfg.SplitInherit
	}
	if cfg.SplitSpeedMin != nil {
		base.SplitSpeedMin = *cfg.SplitSpeedMin
	}
	if cfg.SplitSpeedMax != nil {
		base.SplitSpeedMax = *cfg.SplitSpeedMax
	}
	return firework.SanitizeConfig(base)
}

// LoadTuning reads a tuning file over base. A missing file is not an error.
func LoadTuning(path string, base firework.Tuning) (firework.Tuning, error) {
	out := cloneTuning(base)
	if path == "" {
		return out, nil
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("read tuning %q: %w", cleanPath, err)
	}
	var file tuningFile
	if err := json.Unmarshal(data, &file); err != nil {
		return out, fmt.Errorf("parse tuning %q: %w", cleanPath, err)
	}
	for name, cfg := range file.Fireworks {
		k, err := firework.ParseKind(name)
		if err != nil {
			return cloneTuning(base), fmt.Errorf("tuning %q: %w", cleanPath, err)
		}
		out[k] = mergeKindConfig(out.For(k), cfg)
	}
	return out, nil
}

func cloneTuning(t firework.Tuning) firework.Tuning {
	out := firework.DefaultTuning()
	for k, cfg := range t {
		out[k] = cfg
	}
	return out
}
