package layout

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/forcegraph/pkg/errors"
)

// Default tuning values.
const (
	DefaultRestLength  = 80.0
	DefaultStiffness   = 30.0
	DefaultEpsilon     = 10.0
	DefaultDamping     = 0.92
	DefaultTimeStep    = 0.1
	DefaultRepulsion   = 0.2
	DefaultMinDistance = 1.0
)

// validate is a singleton validator instance
var validate = validator.New()

// Config holds the physical constants and execution settings of a run.
type Config struct {
	// RestLength is the edge length at which springs exert no force (l0).
	RestLength float64 `toml:"rest_length" yaml:"rest_length" json:"rest_length" validate:"gt=0"`
	// Stiffness scales the logarithmic spring force (c1).
	Stiffness float64 `toml:"stiffness" yaml:"stiffness" json:"stiffness" validate:"gte=0"`
	// Epsilon is the kinetic energy below which a run has converged.
	Epsilon float64 `toml:"epsilon" yaml:"epsilon" json:"epsilon" validate:"gt=0"`
	// Damping multiplies every velocity once per step.
	Damping float64 `toml:"damping" yaml:"damping" json:"damping" validate:"gt=0,lte=1"`
	// TimeStep is the integration interval (dt).
	TimeStep float64 `toml:"time_step" yaml:"time_step" json:"time_step" validate:"gt=0"`
	// Repulsion scales the pairwise repulsive force (k).
	Repulsion float64 `toml:"repulsion" yaml:"repulsion" json:"repulsion" validate:"gte=0"`
	// MinDistance floors the distance used by the repulsion law.
	MinDistance float64 `toml:"min_distance" yaml:"min_distance" json:"min_distance" validate:"gt=0"`

	// Workers bounds the goroutines computing one step; 0 uses GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers" json:"workers" validate:"gte=0,lte=1024"`
	// StepDelay pauses between steps so viewers can follow the motion.
	StepDelay time.Duration `toml:"step_delay" yaml:"step_delay" json:"step_delay" validate:"gte=0"`
}

// DefaultConfig returns the standard constants with unlimited speed.
func DefaultConfig() Config {
	return Config{
		RestLength:  DefaultRestLength,
		Stiffness:   DefaultStiffness,
		Epsilon:     DefaultEpsilon,
		Damping:     DefaultDamping,
		TimeStep:    DefaultTimeStep,
		Repulsion:   DefaultRepulsion,
		MinDistance: DefaultMinDistance,
	}
}

// Validate checks every field against its constraints. NaN fails every
// comparison and is therefore rejected.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to an INVALID_CONFIG error
// naming the first offending field.
func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid layout config")
	}

	e := validationErrs[0]
	var rule string
	switch e.Tag() {
	case "gt":
		rule = "must be greater than " + e.Param()
	case "gte":
		rule = "must be at least " + e.Param()
	case "lte":
		rule = "must not exceed " + e.Param()
	default:
		rule = fmt.Sprintf("failed %s", e.Tag())
	}
	return errors.New(errors.ErrCodeInvalidConfig, "layout config: %s %s (got %v)", e.Field(), rule, e.Value())
}
