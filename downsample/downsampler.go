package downsample

// Downsampler reduces a stream of items. Items are pushed with Submit and
// survivors are drained with ConsumeFinalizedItems.
//
// Items are either pending (their fate may still change as more input
// arrives) or finalized (ready to be consumed). Thread compatible.
type Downsampler[T any] interface {
	// Submit pushes items into the downsampler, in stream order.
	Submit(items ...T)

	// SignalEndOfInput tells the downsampler that no more items will be
	// submitted. All pending items are resolved. It may be called more than
	// once.
	SignalEndOfInput()

	// SignalNoMoreItemsBefore tells the downsampler that no item starting
	// before the given item will ever be submitted. The item itself is not
	// submitted.
	SignalNoMoreItemsBefore(item T)

	// HasPendingItems returns true iff some items are still undecided.
	HasPendingItems() bool

	// HasFinalizedItems returns true iff ConsumeFinalizedItems would return
	// a non-empty slice.
	HasFinalizedItems() bool

	// PeekPending returns the earliest pending item, if any.
	PeekPending() (T, bool)

	// PeekFinalized returns the earliest finalized item, if any.
	PeekFinalized() (T, bool)

	// ConsumeFinalizedItems removes and returns the finalized items, in stream
	// order. The downsampler does not retain the returned slice.
	ConsumeFinalizedItems() []T

	// Size returns the number of items currently retained, pending or
	// finalized.
	Size() int

	// NumDiscarded returns the number of items dropped since the last call to
	// ResetStats.
	NumDiscarded() int

	// ResetStats zeroes the discard counter.
	ResetStats()

	// Clear drops every buffered item. Statistics are not affected.
	Clear()

	// RequiresCoordinateSortOrder returns true if items must be submitted in
	// ascending (contig, start) order.
	RequiresCoordinateSortOrder() bool
}

// wholeStreamSampler is implemented by downsamplers whose finalized items can
// still be displaced by later input. Iterators drain such downsamplers only
// at the end of input.
type wholeStreamSampler interface {
	SamplesEntireInput() bool
}

func samplesEntireInput[T any](ds Downsampler[T]) bool {
	w, ok := ds.(wholeStreamSampler)
	return ok && w.SamplesEntireInput()
}
