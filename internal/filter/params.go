package filter

import (
	"errors"
	"fmt"
	"math"
)

// Parameter limits. Contrast and saturation are exclusive at ±255 where
// the (255+v)/(255-v) factor is singular.
const (
	MaxBrightness = 255
	MaxContrast   = 255
	MaxSaturation = 255
)

// ErrInvalidParameter is returned, wrapped in a *ParameterError, when an
// adjustment value is outside its legal range.
var ErrInvalidParameter = errors.New("invalid adjustment parameter")

// ParameterError describes a rejected adjustment value.
type ParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s=%g: %s", e.Name, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error { return ErrInvalidParameter }

// CheckBrightness accepts integers in [-255, 255].
func CheckBrightness(b int) error {
	if b < -MaxBrightness || b > MaxBrightness {
		return &ParameterError{Name: "brightness", Value: float64(b), Reason: "must be within [-255, 255]"}
	}
	return nil
}

// CheckContrast accepts finite values strictly inside (-255, 255).
func CheckContrast(c float64) error {
	return checkOpen("contrast", c, MaxContrast)
}

// CheckSaturation accepts finite values strictly inside (-255, 255).
func CheckSaturation(s float64) error {
	return checkOpen("saturation", s, MaxSaturation)
}

// CheckGamma accepts finite values greater than zero.
func CheckGamma(g float64) error {
	switch {
	case math.IsNaN(g) || math.IsInf(g, 0):
		return &ParameterError{Name: "gamma", Value: g, Reason: "must be finite"}
	case g <= 0:
		return &ParameterError{Name: "gamma", Value: g, Reason: "must be greater than 0"}
	}
	return nil
}

func checkOpen(name string, v, limit float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return &ParameterError{Name: name, Value: v, Reason: "must be finite"}
	case v <= -limit || v >= limit:
		return &ParameterError{Name: name, Value: v, Reason: fmt.Sprintf("must be strictly within (-%g, %g)", limit, limit)}
	}
	return nil
}

// factor is the shared (255+v)/(255-v) gain used by contrast and saturation.
func factor(v float64) float64 {
	return (255 + v) / (255 - v)
}
