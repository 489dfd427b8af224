package models

import (
	"fmt"

	"github.com/san-kum/dynstream/internal/dynamo"
)

const (
	DefaultGravity    = 9.81
	DefaultMass       = 1.0
	DefaultAirDensity = 1.225
)

// Configurable bodies expose their physical parameters by name.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

func positive(name string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %g", dynamo.ErrParameterBounds, name, value)
	}
	return nil
}

func nonNegative(name string, value float64) error {
	if value < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %g", dynamo.ErrParameterBounds, name, value)
	}
	return nil
}
