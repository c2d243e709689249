package downsample

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
)

// Fractional retains each item independently with a fixed probability.
// It has no pending state; survivors keep their relative order.
type Fractional[T any] struct {
	fraction   float64
	rnd        Rand
	selected   []T
	nDiscarded int
}

// NewFractional creates a Fractional downsampler. fraction must be in
// [0, 1]. If rnd is nil, a Rand seeded with DefaultSeed is used.
func NewFractional[T any](fraction float64, rnd Rand) (*Fractional[T], error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("downsample: fraction must be between 0 and 1 (inclusive), got %v", fraction))
	}
	return &Fractional[T]{fraction: fraction, rnd: orDefault(rnd)}, nil
}

// Fraction returns the retention probability.
func (f *Fractional[T]) Fraction() float64 { return f.fraction }

// Submit implements Downsampler.
func (f *Fractional[T]) Submit(items ...T) {
	for _, item := range items {
		if f.rnd.Float64() < f.fraction {
			f.selected = append(f.selected, item)
		} else {
			f.nDiscarded++
		}
	}
}

// Keep draws once and reports whether an item should be retained, without
// buffering anything.
func (f *Fractional[T]) Keep() bool {
	if f.rnd.Float64() < f.fraction {
		return true
	}
	f.nDiscarded++
	return false
}

// SignalEndOfInput implements Downsampler. It is a no-op.
func (f *Fractional[T]) SignalEndOfInput() {}

// SignalNoMoreItemsBefore implements Downsampler. It is a no-op.
func (f *Fractional[T]) SignalNoMoreItemsBefore(T) {}

// HasPendingItems implements Downsampler. It always returns false.
func (f *Fractional[T]) HasPendingItems() bool { return false }

// HasFinalizedItems implements Downsampler.
func (f *Fractional[T]) HasFinalizedItems() bool { return len(f.selected) > 0 }

// PeekPending implements Downsampler. There are never pending items.
func (f *Fractional[T]) PeekPending() (T, bool) {
	var zero T
	return zero, false
}

// PeekFinalized implements Downsampler.
func (f *Fractional[T]) PeekFinalized() (T, bool) {
	if len(f.selected) == 0 {
		var zero T
		return zero, false
	}
	return f.selected[0], true
}

// ConsumeFinalizedItems implements Downsampler.
func (f *Fractional[T]) ConsumeFinalizedItems() []T {
	items := f.selected
	f.selected = nil
	return items
}

// Size implements Downsampler.
func (f *Fractional[T]) Size() int { return len(f.selected) }

// NumDiscarded implements Downsampler.
func (f *Fractional[T]) NumDiscarded() int { return f.nDiscarded }

// ResetStats implements Downsampler.
func (f *Fractional[T]) ResetStats() { f.nDiscarded = 0 }

// Clear implements Downsampler.
func (f *Fractional[T]) Clear() { f.selected = nil }

// RequiresCoordinateSortOrder implements Downsampler.
func (f *Fractional[T]) RequiresCoordinateSortOrder() bool { return false }
