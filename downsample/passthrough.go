package downsample

// Passthrough keeps every item. It lets callers run the same iterator code
// when downsampling is disabled.
type Passthrough[T any] struct {
	selected []T
}

// NewPassthrough creates a Passthrough downsampler.
func NewPassthrough[T any]() *Passthrough[T] { return &Passthrough[T]{} }

// Submit implements Downsampler.
func (p *Passthrough[T]) Submit(items ...T) { p.selected = append(p.selected, items...) }

// SignalEndOfInput implements Downsampler.
func (p *Passthrough[T]) SignalEndOfInput() {}

// SignalNoMoreItemsBefore implements Downsampler.
func (p *Passthrough[T]) SignalNoMoreItemsBefore(T) {}

// HasPendingItems implements Downsampler.
func (p *Passthrough[T]) HasPendingItems() bool { return false }

// HasFinalizedItems implements Downsampler.
func (p *Passthrough[T]) HasFinalizedItems() bool { return len(p.selected) > 0 }

// Size implements Downsampler.
func (p *Passthrough[T]) Size() int { return len(p.selected) }

// NumDiscarded implements Downsampler.
func (p *Passthrough[T]) NumDiscarded() int { return 0 }

// ResetStats implements Downsampler.
func (p *Passthrough[T]) ResetStats() {}

// Clear implements Downsampler.
func (p *Passthrough[T]) Clear() { p.selected = nil }

// RequiresCoordinateSortOrder implements Downsampler.
func (p *Passthrough[T]) RequiresCoordinateSortOrder() bool { return false }

// PeekPending implements Downsampler.
func (p *Passthrough[T]) PeekPending() (T, bool) {
	var zero T
	return zero, false
}

// PeekFinalized implements Downsampler.
func (p *Passthrough[T]) PeekFinalized() (T, bool) {
	if len(p.selected) == 0 {
		var zero T
		return zero, false
	}
	return p.selected[0], true
}

// ConsumeFinalizedItems implements Downsampler.
func (p *Passthrough[T]) ConsumeFinalizedItems() []T {
	items := p.selected
	p.selected = nil
	return items
}
