package downsample

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
)

// GroupKey reports whether an item belongs to an indivisible group, and if
// so which one. Consecutive items with the same key form one group.
type GroupKey[T any] func(item T) (key string, ok bool)

// GroupPolicy decides how Reservoir treats groups.
type GroupPolicy int

const (
	// PinGroups retains every grouped item unconditionally. Groups do not
	// consume reservoir capacity; only ungrouped items are sampled.
	PinGroups GroupPolicy = iota
	// SampleGroups treats each group as a single sampling unit occupying one
	// reservoir slot. A group is retained or evicted as a whole.
	SampleGroups
)

// String returns "pin" or "sample".
func (p GroupPolicy) String() string {
	switch p {
	case PinGroups:
		return "pin"
	case SampleGroups:
		return "sample"
	}
	return fmt.Sprintf("GroupPolicy(%d)", int(p))
}

// ParseGroupPolicy parses the output of GroupPolicy.String.
func ParseGroupPolicy(name string) (GroupPolicy, error) {
	switch name {
	case "pin":
		return PinGroups, nil
	case "sample":
		return SampleGroups, nil
	}
	return PinGroups, errors.E(errors.Invalid, fmt.Sprintf("downsample: unknown group policy %q", name))
}

// unit is one sampling unit: a single item, or a group.
type unit[T any] struct {
	items []T
	// seq is the submission index of the unit's first item.
	seq int
}

// Reservoir keeps a uniform random sample of at most Capacity units across
// everything submitted since it was created or last drained (Algorithm R).
// The k-th unit, k > Capacity, is retained with probability Capacity/k and
// replaces a uniformly chosen resident unit.
//
// Every submitted item is decided immediately, so Reservoir never has
// pending items.  Its finalized items can still be evicted by later input,
// which is why iterators drain it only at end of input.
type Reservoir[T any] struct {
	capacity int
	rnd      Rand
	groupKey GroupKey[T]
	policy   GroupPolicy

	slots  []*unit[T]
	pinned []*unit[T]
	// nSeen is the number of units that competed for a slot.
	nSeen  int
	nItems int
	seq    int

	// State of the group run in progress. runUnit is nil if the run's unit
	// was discarded.
	inRun   bool
	runKey  string
	runUnit *unit[T]

	nDiscarded int
}

// NewReservoir creates a Reservoir holding at most capacity units. groupKey
// may be nil, in which case every item is its own unit. If rnd is nil, a
// Rand seeded with DefaultSeed is used.
func NewReservoir[T any](capacity int, rnd Rand, groupKey GroupKey[T], policy GroupPolicy) (*Reservoir[T], error) {
	if capacity <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("downsample: reservoir capacity must be positive, got %d", capacity))
	}
	if policy != PinGroups && policy != SampleGroups {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("downsample: invalid group policy %v", policy))
	}
	return &Reservoir[T]{
		capacity: capacity,
		rnd:      orDefault(rnd),
		groupKey: groupKey,
		policy:   policy,
		slots:    make([]*unit[T], 0, capacity),
	}, nil
}

// Capacity returns the maximum number of sampled units.
func (r *Reservoir[T]) Capacity() int { return r.capacity }

// NumSeen returns the number of units that competed for a slot since the
// reservoir was last drained.
func (r *Reservoir[T]) NumSeen() int { return r.nSeen }

// Submit implements Downsampler.
func (r *Reservoir[T]) Submit(items ...T) {
	for _, item := range items {
		r.submit(item)
	}
}

func (r *Reservoir[T]) submit(item T) {
	seq := r.seq
	r.seq++
	var (
		key     string
		grouped bool
	)
	if r.groupKey != nil {
		key, grouped = r.groupKey(item)
	}
	if grouped && r.inRun && key == r.runKey {
		if r.runUnit == nil {
			r.nDiscarded++
			return
		}
		r.runUnit.items = append(r.runUnit.items, item)
		r.nItems++
		return
	}

	u := &unit[T]{items: []T{item}, seq: seq}
	if grouped && r.policy == PinGroups {
		r.pinned = append(r.pinned, u)
		r.nItems++
		r.startRun(key, u)
		return
	}

	r.nSeen++
	if len(r.slots) < r.capacity {
		r.slots = append(r.slots, u)
		r.nItems++
	} else if j := r.rnd.Intn(r.nSeen); j < r.capacity {
		evicted := r.slots[j]
		r.nDiscarded += len(evicted.items)
		r.nItems -= len(evicted.items)
		r.slots[j] = u
		r.nItems++
	} else {
		r.nDiscarded++
		u = nil
	}
	if grouped {
		r.startRun(key, u)
	} else {
		r.inRun = false
		r.runUnit = nil
	}
}

func (r *Reservoir[T]) startRun(key string, u *unit[T]) {
	r.inRun = true
	r.runKey = key
	r.runUnit = u
}

// SignalEndOfInput implements Downsampler. It is a no-op.
func (r *Reservoir[T]) SignalEndOfInput() {}

// SignalNoMoreItemsBefore implements Downsampler. It is a no-op.
func (r *Reservoir[T]) SignalNoMoreItemsBefore(T) {}

// HasPendingItems implements Downsampler. It always returns false.
func (r *Reservoir[T]) HasPendingItems() bool { return false }

// HasFinalizedItems implements Downsampler.
func (r *Reservoir[T]) HasFinalizedItems() bool { return r.nItems > 0 }

// PeekPending implements Downsampler. There are never pending items.
func (r *Reservoir[T]) PeekPending() (T, bool) {
	var zero T
	return zero, false
}

// PeekFinalized implements Downsampler. It returns the earliest submitted
// item still in the reservoir.
func (r *Reservoir[T]) PeekFinalized() (T, bool) {
	var first *unit[T]
	for _, units := range [][]*unit[T]{r.slots, r.pinned} {
		for _, u := range units {
			if first == nil || u.seq < first.seq {
				first = u
			}
		}
	}
	if first == nil {
		var zero T
		return zero, false
	}
	return first.items[0], true
}

// ConsumeFinalizedItems implements Downsampler. Items are returned in
// submission order and the reservoir starts a fresh sample.
func (r *Reservoir[T]) ConsumeFinalizedItems() []T {
	if r.nItems == 0 {
		r.reset()
		return nil
	}
	units := make([]*unit[T], 0, len(r.slots)+len(r.pinned))
	units = append(units, r.slots...)
	units = append(units, r.pinned...)
	sort.Slice(units, func(i, j int) bool { return units[i].seq < units[j].seq })
	items := make([]T, 0, r.nItems)
	for _, u := range units {
		items = append(items, u.items...)
	}
	r.reset()
	return items
}

func (r *Reservoir[T]) reset() {
	r.slots = make([]*unit[T], 0, r.capacity)
	r.pinned = nil
	r.nSeen = 0
	r.nItems = 0
	r.inRun = false
	r.runUnit = nil
}

// Size implements Downsampler.
func (r *Reservoir[T]) Size() int { return r.nItems }

// NumDiscarded implements Downsampler.
func (r *Reservoir[T]) NumDiscarded() int { return r.nDiscarded }

// ResetStats implements Downsampler.
func (r *Reservoir[T]) ResetStats() { r.nDiscarded = 0 }

// Clear implements Downsampler.
func (r *Reservoir[T]) Clear() { r.reset() }

// RequiresCoordinateSortOrder implements Downsampler.
func (r *Reservoir[T]) RequiresCoordinateSortOrder() bool { return false }

// SamplesEntireInput reports that finalized items may still be evicted.
func (r *Reservoir[T]) SamplesEntireInput() bool { return true }
