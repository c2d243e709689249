package downsample

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/biodownsample/interval"
)

// Strategy selects a downsampling algorithm.
type Strategy int

const (
	// StrategyNone keeps every item.
	StrategyNone Strategy = iota
	// StrategyPositional caps per-position coverage. See Positional.
	StrategyPositional
	// StrategyReservoir keeps a fixed-size uniform sample. See Reservoir.
	StrategyReservoir
	// StrategyFractional keeps each item with a fixed probability. See
	// Fractional.
	StrategyFractional
)

var strategyNames = map[Strategy]string{
	StrategyNone:       "none",
	StrategyPositional: "positional",
	StrategyReservoir:  "reservoir",
	StrategyFractional: "fractional",
}

// String returns the name accepted by ParseStrategy.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses a strategy name. "positional" returns
// StrategyPositional, for example.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return StrategyNone, errors.E(errors.Invalid, fmt.Sprintf("downsample: unknown strategy %q", name))
}

// Opts configures New.
type Opts struct {
	// Strategy is the algorithm to use.
	Strategy Strategy
	// TargetCoverage is the per-position cap for StrategyPositional.
	TargetCoverage int
	// Capacity is the sample size for StrategyReservoir.
	Capacity int
	// Fraction is the retention probability for StrategyFractional.
	Fraction float64
	// GroupPolicy controls how StrategyReservoir treats grouped items.
	GroupPolicy GroupPolicy
	// Seed seeds the random source when New is not given one.
	Seed int64
}

// DefaultOpts holds the default values of Opts.
var DefaultOpts = Opts{
	Strategy:       StrategyPositional,
	TargetCoverage: 1000,
	Capacity:       1000,
	Fraction:       1,
	GroupPolicy:    PinGroups,
	Seed:           DefaultSeed,
}

// Validate checks the parameters used by the selected strategy.
func (o Opts) Validate() error {
	switch o.Strategy {
	case StrategyNone:
	case StrategyPositional:
		if o.TargetCoverage <= 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("downsample: target coverage must be positive, got %d", o.TargetCoverage))
		}
	case StrategyReservoir:
		if o.Capacity <= 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("downsample: reservoir capacity must be positive, got %d", o.Capacity))
		}
		if o.GroupPolicy != PinGroups && o.GroupPolicy != SampleGroups {
			return errors.E(errors.Invalid, fmt.Sprintf("downsample: invalid group policy %v", o.GroupPolicy))
		}
	case StrategyFractional:
		if math.IsNaN(o.Fraction) || o.Fraction < 0 || o.Fraction > 1 {
			return errors.E(errors.Invalid, fmt.Sprintf("downsample: fraction must be between 0 and 1 (inclusive), got %v", o.Fraction))
		}
	default:
		return errors.E(errors.Invalid, fmt.Sprintf("downsample: invalid strategy %v", o.Strategy))
	}
	return nil
}

// New creates the downsampler described by opts. If rnd is nil, a Rand
// seeded with opts.Seed is used. groupKey is consulted only by
// StrategyReservoir, and may be nil.
func New[T interval.Locatable](opts Opts, rnd Rand, groupKey GroupKey[T]) (Downsampler[T], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = NewRand(opts.Seed)
	}
	var (
		ds  Downsampler[T]
		err error
	)
	switch opts.Strategy {
	case StrategyPositional:
		ds, err = NewPositional[T](opts.TargetCoverage, rnd)
	case StrategyReservoir:
		ds, err = NewReservoir[T](opts.Capacity, rnd, groupKey, opts.GroupPolicy)
	case StrategyFractional:
		ds, err = NewFractional[T](opts.Fraction, rnd)
	default:
		ds = NewPassthrough[T]()
	}
	if err != nil {
		return nil, err
	}
	return ds, nil
}
