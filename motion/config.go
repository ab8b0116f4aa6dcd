// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package motion

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-lpc/cxas"
	"gopkg.in/yaml.v3"
)

// Config describes the monochromator mechanics.
type Config struct {
	DSpacing float64 `yaml:"d-spacing"` // crystal lattice spacing (m)
	Gap      float64 `yaml:"gap"`       // gap between the crystals (mm)
	PhiRes   float64 `yaml:"phi-res"`   // rotation resolution (steps/deg)
	ZRes     float64 `yaml:"z-res"`     // translation resolution (steps/mm)
}

// DefaultConfig returns the configuration of the Si(220) crystal pair.
func DefaultConfig() Config {
	return Config{
		DSpacing: 1.9202e-10,
		Gap:      5,
		PhiRes:   100000,
		ZRes:     40320,
	}
}

// Validate checks that all parameters are positive and finite.
func (cfg Config) Validate() error {
	for _, v := range []struct {
		name string
		v    float64
	}{
		{"d-spacing", cfg.DSpacing},
		{"gap", cfg.Gap},
		{"phi-res", cfg.PhiRes},
		{"z-res", cfg.ZRes},
	} {
		if !(v.v > 0) || math.IsInf(v.v, 0) {
			return fmt.Errorf("motion: invalid %s value %g: %w", v.name, v.v, cxas.OutOfRange)
		}
	}
	return nil
}

// LoadConfig reads a YAML configuration from r.
// Missing parameters keep their DefaultConfig value.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("motion: could not decode config: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}
