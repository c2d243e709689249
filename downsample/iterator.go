package downsample

import (
	"github.com/grailbio/base/errors"
)

// Source yields items in stream order. For Positional downsampling the items
// must be sorted by (contig, start).
type Source[T any] interface {
	// Scan advances to the next item. It returns false at the end of the
	// stream or on error.
	Scan() bool
	// Record returns the current item. It must be called only after Scan
	// returns true.
	Record() T
	// Err returns the error that stopped Scan, or nil.
	Err() error
}

// SliceSource is a Source over an in-memory slice.
type SliceSource[T any] struct {
	items []T
	rec   T
}

// NewSliceSource creates a Source that yields items in order.
func NewSliceSource[T any](items []T) *SliceSource[T] {
	return &SliceSource[T]{items: items}
}

// Scan implements Source.
func (s *SliceSource[T]) Scan() bool {
	if len(s.items) == 0 {
		return false
	}
	s.rec = s.items[0]
	s.items = s.items[1:]
	return true
}

// Record implements Source.
func (s *SliceSource[T]) Record() T { return s.rec }

// Err implements Source. It always returns nil.
func (s *SliceSource[T]) Err() error { return nil }

// Iterator pulls items from a Source through a Downsampler. Thread
// compatible.
type Iterator[T any] struct {
	src Source[T]
	ds  Downsampler[T]

	buf []T
	rec T
	eof bool
	err error
}

// NewIterator creates an Iterator that yields the survivors of ds over src.
// The iterator owns ds until it is exhausted.
func NewIterator[T any](src Source[T], ds Downsampler[T]) *Iterator[T] {
	return &Iterator[T]{src: src, ds: ds}
}

// Scan returns whether there are any items remaining, and if so advances
// the iterator to the next item. If an error occurs, Scan returns false and
// the error can be retrieved by calling Err.
func (it *Iterator[T]) Scan() bool {
	for len(it.buf) == 0 {
		if it.eof || it.err != nil {
			return false
		}
		it.fill()
	}
	if it.err != nil {
		return false
	}
	it.rec = it.buf[0]
	var zero T
	it.buf[0] = zero
	it.buf = it.buf[1:]
	return true
}

// fill submits items until the downsampler has something to release.
func (it *Iterator[T]) fill() {
	wholeStream := samplesEntireInput(it.ds)
	for wholeStream || !it.ds.HasFinalizedItems() {
		if !it.src.Scan() {
			if err := it.src.Err(); err != nil {
				it.err = errors.E(err, "downsample: reading source")
				return
			}
			it.ds.SignalEndOfInput()
			it.eof = true
			break
		}
		it.ds.Submit(it.src.Record())
	}
	it.buf = it.ds.ConsumeFinalizedItems()
}

// Record returns the current item. It must be called only after Scan
// returns true.
func (it *Iterator[T]) Record() T { return it.rec }

// Err returns the error encountered during iteration, or nil.
func (it *Iterator[T]) Err() error { return it.err }

// NumDiscarded returns the number of items dropped so far.
func (it *Iterator[T]) NumDiscarded() int { return it.ds.NumDiscarded() }
