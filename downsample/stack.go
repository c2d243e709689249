package downsample

import (
	"github.com/grailbio/biodownsample/interval"
)

type memberState uint8

const (
	// active members may still overlap reads that have not arrived yet.
	active memberState = iota
	// kept members survived downsampling and can no longer be affected by it.
	kept
)

type member[T any] struct {
	item  T
	end   interval.PosType
	state memberState
}

// stack holds the reads that share one (contig, start).  Members stay in
// insertion order for the lifetime of the stack; dropped reads are removed
// immediately.
type stack[T interval.Locatable] struct {
	location interval.Interval
	members  []member[T]
	nActive  int
	// nAdded counts every read ever added, dropped or not.
	nAdded int
}

func newStack[T interval.Locatable](item T, loc interval.Interval) *stack[T] {
	s := &stack[T]{location: loc}
	s.add(item, loc)
	return s
}

// add appends a read. The stack's end grows to cover it.
//
// REQUIRES: loc has the same (contig, start) as the stack.
func (s *stack[T]) add(item T, loc interval.Interval) {
	if loc.End > s.location.End {
		s.location.End = loc.End
	}
	s.members = append(s.members, member[T]{item: item, end: loc.End, state: active})
	s.nActive++
	s.nAdded++
}

// finalizeBefore marks as kept every active member that cannot overlap a read
// starting at next.
func (s *stack[T]) finalizeBefore(next interval.Interval) {
	if s.nActive == 0 {
		return
	}
	contigChanged := next.RefID != s.location.RefID
	for i := range s.members {
		m := &s.members[i]
		if m.state == active && (contigChanged || m.end < next.Start) {
			m.state = kept
			s.nActive--
		}
	}
}

// finalizeAll marks every active member as kept.
func (s *stack[T]) finalizeAll() {
	for i := range s.members {
		if s.members[i].state == active {
			s.members[i].state = kept
		}
	}
	s.nActive = 0
}

// done returns true once no member can be affected by downsampling.
func (s *stack[T]) done() bool {
	return s.nActive == 0
}

// downsampleActive keeps n of the active members, chosen uniformly, and
// removes the rest.  It returns the number of members removed.
func (s *stack[T]) downsampleActive(rnd Rand, n int) int {
	if n >= s.nActive {
		return 0
	}
	selected := sampleIndices(rnd, s.nActive, n)
	kept := s.members[:0]
	activeIdx, selIdx := 0, 0
	for _, m := range s.members {
		if m.state == active {
			if selIdx >= len(selected) || selected[selIdx] != activeIdx {
				activeIdx++
				continue
			}
			selIdx++
			activeIdx++
		}
		kept = append(kept, m)
	}
	var zero member[T]
	for i := len(kept); i < len(s.members); i++ {
		s.members[i] = zero
	}
	nDropped := len(s.members) - len(kept)
	s.members = kept
	s.nActive = n
	return nDropped
}

// retained returns the members that survived, in insertion order.
//
// REQUIRES: done() is true.
func (s *stack[T]) retained() []T {
	items := make([]T, len(s.members))
	for i, m := range s.members {
		items[i] = m.item
	}
	return items
}

// first returns the earliest member that has not been dropped.
func (s *stack[T]) first() (T, bool) {
	if len(s.members) == 0 {
		var zero T
		return zero, false
	}
	return s.members[0].item, true
}

// size returns the number of members that have not been dropped.
func (s *stack[T]) size() int { return len(s.members) }
