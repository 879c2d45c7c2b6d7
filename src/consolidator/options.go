package consolidator

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCrossingTolerance is how far the boundary relevant timestamp may sit
// from the boundary and still count as reaching it. Input cadence is rarely
// aligned to the second.
const DefaultCrossingTolerance = 30 * time.Second

// CrossingField selects which observation timestamp is tested against the
// daily boundary.
type CrossingField string

const (
	CrossingOnEndTime   CrossingField = "end"
	CrossingOnStartTime CrossingField = "start"
)

func (f CrossingField) Validate() error {
	switch f {
	case CrossingOnEndTime, CrossingOnStartTime:
		return nil
	default:
		return fmt.Errorf("CrossingField: %q: %w", string(f), ErrInvalidCrossingField)
	}
}

func ParseCrossingField(value string) (CrossingField, error) {
	if value == "" {
		return CrossingOnEndTime, nil
	}

	field := CrossingField(strings.ToLower(strings.TrimSpace(value)))
	if err := field.Validate(); err != nil {
		return "", err
	}

	return field, nil
}

type options struct {
	tolerance     time.Duration
	crossingField CrossingField
}

type Option func(*options)

// WithCrossingTolerance overrides DefaultCrossingTolerance. Negative values
// are treated as zero.
func WithCrossingTolerance(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}

		o.tolerance = d
	}
}

func WithCrossingField(field CrossingField) Option {
	return func(o *options) {
		o.crossingField = field
	}
}

func newOptions(opts []Option) (options, error) {
	o := options{
		tolerance:     DefaultCrossingTolerance,
		crossingField: CrossingOnEndTime,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if err := o.crossingField.Validate(); err != nil {
		return options{}, err
	}

	return o, nil
}
