package downsample

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/biodownsample/interval"
	"v.io/x/lib/vlog"
)

// Positional caps the coverage of a coordinate-sorted read stream.
//
// Reads sharing a (contig, start) form a stack. Stacks stay open while any
// of their reads may overlap reads that have not arrived yet. Each time the
// stream moves to a new start position, the reads that cover the previous
// position are leveled so that at most TargetCoverage of them survive,
// removing reads round-robin across the open stacks. A stack is never
// emptied by leveling, so the cap can be exceeded when more stacks overlap a
// position than TargetCoverage allows.
//
// A stack is released to the finalized queue only after all of its reads
// are past reach and every earlier stack has been released, so output is
// ordered by start position and, within a stack, by arrival.
type Positional[T interval.Locatable] struct {
	targetCoverage int
	rnd            Rand

	// pending holds the open stacks, ordered by start.
	pending []*stack[T]
	// nPending is the number of undropped reads in pending.
	nPending  int
	finalized []T

	nDiscarded int
}

// NewPositional creates a Positional downsampler that retains at most
// targetCoverage reads per position.  If rnd is nil, a Rand seeded with
// DefaultSeed is used.
func NewPositional[T interval.Locatable](targetCoverage int, rnd Rand) (*Positional[T], error) {
	if targetCoverage <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("downsample: target coverage must be positive, got %d", targetCoverage))
	}
	return &Positional[T]{targetCoverage: targetCoverage, rnd: orDefault(rnd)}, nil
}

// TargetCoverage returns the per-position cap.
func (p *Positional[T]) TargetCoverage() int { return p.targetCoverage }

// Submit implements Downsampler.
//
// REQUIRES: items arrive in ascending (contig, start) order. This is not
// checked.
func (p *Positional[T]) Submit(items ...T) {
	for _, item := range items {
		p.submit(item)
	}
}

func (p *Positional[T]) submit(item T) {
	loc := item.Locus()
	if n := len(p.pending); n > 0 {
		if cur := p.pending[n-1]; cur.location.SameStart(loc) {
			cur.add(item, loc)
			p.nPending++
			return
		}
		p.advance(loc)
	}
	p.pending = append(p.pending, newStack(item, loc))
	p.nPending++
}

// advance is called when no more reads will arrive at the current start and
// the next read starts at next.
func (p *Positional[T]) advance(next interval.Interval) {
	p.level()
	for _, s := range p.pending {
		s.finalizeBefore(next)
	}
	p.release()
}

// level trims the active reads, all of which cover the most recent start
// position, down to targetCoverage.
func (p *Positional[T]) level() {
	if len(p.pending) == 0 {
		return
	}
	counts := make([]int, len(p.pending))
	total, nActiveStacks := 0, 0
	for i, s := range p.pending {
		counts[i] = s.nActive
		total += s.nActive
		if s.nActive > 0 {
			nActiveStacks++
		}
	}
	if total <= p.targetCoverage {
		return
	}
	nRemove := total - p.targetCoverage
	if limit := total - nActiveStacks; nRemove > limit {
		nRemove = limit
	}
	for i := 0; nRemove > 0; i = (i + 1) % len(counts) {
		if counts[i] > 1 {
			counts[i]--
			nRemove--
		}
	}
	for i, s := range p.pending {
		n := s.downsampleActive(p.rnd, counts[i])
		p.nPending -= n
		p.nDiscarded += n
	}
}

// release moves the leading run of resolved stacks to the finalized queue.
func (p *Positional[T]) release() {
	n := 0
	for n < len(p.pending) && p.pending[n].done() {
		s := p.pending[n]
		items := s.retained()
		p.nPending -= len(items)
		p.finalized = append(p.finalized, items...)
		vlog.VI(2).Infof("downsample: released stack %v, kept %d of %d", s.location, len(items), s.nAdded)
		p.pending[n] = nil
		n++
	}
	p.pending = p.pending[n:]
}

// SignalEndOfInput implements Downsampler.
func (p *Positional[T]) SignalEndOfInput() {
	if len(p.pending) == 0 {
		return
	}
	p.level()
	for _, s := range p.pending {
		s.finalizeAll()
	}
	p.release()
}

// SignalNoMoreItemsBefore implements Downsampler. Stacks that can no longer
// overlap a read starting at item are resolved.
func (p *Positional[T]) SignalNoMoreItemsBefore(item T) {
	n := len(p.pending)
	if n == 0 {
		return
	}
	loc := item.Locus()
	if p.pending[n-1].location.StartsBefore(loc) {
		p.advance(loc)
	}
}

// HasPendingItems implements Downsampler.
func (p *Positional[T]) HasPendingItems() bool { return len(p.pending) > 0 }

// HasFinalizedItems implements Downsampler.
func (p *Positional[T]) HasFinalizedItems() bool { return len(p.finalized) > 0 }

// PeekPending implements Downsampler.
func (p *Positional[T]) PeekPending() (T, bool) {
	if len(p.pending) == 0 {
		var zero T
		return zero, false
	}
	return p.pending[0].first()
}

// PeekFinalized implements Downsampler.
func (p *Positional[T]) PeekFinalized() (T, bool) {
	if len(p.finalized) == 0 {
		var zero T
		return zero, false
	}
	return p.finalized[0], true
}

// ConsumeFinalizedItems implements Downsampler.
func (p *Positional[T]) ConsumeFinalizedItems() []T {
	items := p.finalized
	p.finalized = nil
	return items
}

// Size implements Downsampler.
func (p *Positional[T]) Size() int { return p.nPending + len(p.finalized) }

// NumDiscarded implements Downsampler.
func (p *Positional[T]) NumDiscarded() int { return p.nDiscarded }

// ResetStats implements Downsampler.
func (p *Positional[T]) ResetStats() { p.nDiscarded = 0 }

// Clear implements Downsampler.
func (p *Positional[T]) Clear() {
	p.pending = nil
	p.nPending = 0
	p.finalized = nil
}

// RequiresCoordinateSortOrder implements Downsampler.
func (p *Positional[T]) RequiresCoordinateSortOrder() bool { return true }
