package profile

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/AnyUserName/phototune/internal/filter"
)

// Params is one complete set of control values. The zero value is not the
// identity: Gamma must be 1. Use Default.
type Params struct {
	Brightness int     `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Gamma      float64 `json:"gamma"`
}

// Default returns the identity parameter set.
func Default() Params {
	return Params{Gamma: 1}
}

// Validate rejects values at or beyond a filter singularity.
func (p Params) Validate() error {
	return errors.Join(
		filter.CheckBrightness(p.Brightness),
		filter.CheckContrast(p.Contrast),
		filter.CheckSaturation(p.Saturation),
		filter.CheckGamma(p.Gamma),
	)
}

// IsIdentity reports whether every stage is a no-op.
func (p Params) IsIdentity() bool {
	return p == Default()
}

func (p Params) String() string {
	return fmt.Sprintf("brightness=%d contrast=%g saturation=%g gamma=%g",
		p.Brightness, p.Contrast, p.Saturation, p.Gamma)
}

// Apply sets the control named key from its textual value and returns the
// updated copy. The result is not validated.
func (p Params) Apply(key, value string) (Params, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "brightness", "b":
		v, err := strconv.Atoi(value)
		if err != nil {
			// Sliders report floats; accept whole-number floats.
			f, ferr := strconv.ParseFloat(value, 64)
			if ferr != nil || f != float64(int(f)) {
				return p, fmt.Errorf("brightness: %q is not an integer", value)
			}
			v = int(f)
		}
		p.Brightness = v
	case "contrast", "c":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return p, fmt.Errorf("contrast: %w", err)
		}
		p.Contrast = v
	case "saturation", "s":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return p, fmt.Errorf("saturation: %w", err)
		}
		p.Saturation = v
	case "gamma", "g":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return p, fmt.Errorf("gamma: %w", err)
		}
		p.Gamma = v
	default:
		return p, fmt.Errorf("unknown control %q", key)
	}
	return p, nil
}

// Profile is a named starting point for the four controls.
type Profile struct {
	Name        string
	Description string
	Params      Params
}

// Built-in profiles.
var profiles = map[string]Profile{
	"neutral": {
		Name:        "neutral",
		Description: "no adjustment",
		Params:      Default(),
	},
	"vivid": {
		Name:        "vivid",
		Description: "punchier contrast and colour",
		Params:      Params{Brightness: 5, Contrast: 40, Saturation: 60, Gamma: 0.95},
	},
	"matte": {
		Name:        "matte",
		Description: "lifted shadows, soft contrast",
		Params:      Params{Brightness: 15, Contrast: -50, Saturation: -20, Gamma: 1.1},
	},
	"bright": {
		Name:        "bright",
		Description: "open up dark exposures",
		Params:      Params{Brightness: 30, Contrast: 10, Saturation: 0, Gamma: 0.8},
	},
	"mono": {
		Name:        "mono",
		Description: "near-greyscale with a little extra contrast",
		Params:      Params{Brightness: 0, Contrast: 30, Saturation: -254, Gamma: 1},
	},
}

// Get returns a profile by name.
func Get(name string) (Profile, error) {
	if p, ok := profiles[strings.ToLower(name)]; ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(Names(), ", "))
}

// Names lists the built-in profiles alphabetically.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
