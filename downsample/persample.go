package downsample

import (
	"sort"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/biodownsample/interval"
	"v.io/x/lib/vlog"
)

// cacheEntry is a finalized item waiting to be merged into the output.
type cacheEntry[T any] struct {
	locus interval.Interval
	seq   int
	item  T
}

// Compare orders entries by (contig, start), then by arrival in the cache.
func (e cacheEntry[T]) Compare(c llrb.Comparable) int {
	e2 := c.(cacheEntry[T])
	if e.locus.StartsBefore(e2.locus) {
		return -1
	}
	if e2.locus.StartsBefore(e.locus) {
		return 1
	}
	return e.seq - e2.seq
}

// PerSampleIterator runs a separate downsampler for every sample in a
// coordinate-sorted stream and merges the survivors back into coordinate
// order. Thread compatible.
//
// Items sharing a start position are emitted grouped by the order in which
// their samples released them; within a sample, submission order is kept.
type PerSampleIterator[T interval.Locatable] struct {
	src            Source[T]
	sampleKey      func(T) string
	newDownsampler func(sample string) (Downsampler[T], error)

	samples map[string]Downsampler[T]
	names   []string

	cache llrb.Tree
	seq   int

	last    interval.Interval
	hasLast bool

	rec T
	eof bool
	err error
}

// NewPerSampleIterator creates a PerSampleIterator. newDownsampler is
// called once per distinct sample, the first time the sample is seen.
func NewPerSampleIterator[T interval.Locatable](src Source[T], sampleKey func(T) string, newDownsampler func(sample string) (Downsampler[T], error)) *PerSampleIterator[T] {
	return &PerSampleIterator[T]{
		src:            src,
		sampleKey:      sampleKey,
		newDownsampler: newDownsampler,
		samples:        map[string]Downsampler[T]{},
	}
}

// Scan returns whether there are any items remaining, and if so advances
// the iterator to the next item. If an error occurs, Scan returns false and
// the error can be retrieved by calling Err.
func (it *PerSampleIterator[T]) Scan() bool {
	for {
		if it.err != nil {
			return false
		}
		if it.cache.Len() > 0 && (it.eof || it.readyToRelease()) {
			e := it.cache.Min().(cacheEntry[T])
			it.cache.DeleteMin()
			it.rec = e.item
			return true
		}
		if it.eof {
			return false
		}
		it.fill()
	}
}

// Record returns the current item. It must be called only after Scan
// returns true.
func (it *PerSampleIterator[T]) Record() T { return it.rec }

// Err returns the error encountered during iteration, or nil.
func (it *PerSampleIterator[T]) Err() error { return it.err }

// Samples returns the names of the samples seen so far, sorted.
func (it *PerSampleIterator[T]) Samples() []string {
	names := append([]string(nil), it.names...)
	sort.Strings(names)
	return names
}

// NumDiscarded returns the number of items dropped so far, over all samples.
func (it *PerSampleIterator[T]) NumDiscarded() int {
	n := 0
	for _, ds := range it.samples {
		n += ds.NumDiscarded()
	}
	return n
}

// NumDiscardedBySample returns the number of items dropped so far for each
// sample.
func (it *PerSampleIterator[T]) NumDiscardedBySample() map[string]int {
	m := make(map[string]int, len(it.samples))
	for name, ds := range it.samples {
		m[name] = ds.NumDiscarded()
	}
	return m
}

func (it *PerSampleIterator[T]) downsamplerFor(name string) (Downsampler[T], error) {
	if ds, ok := it.samples[name]; ok {
		return ds, nil
	}
	ds, err := it.newDownsampler(name)
	if err != nil {
		return nil, errors.E(err, "downsample: creating downsampler for sample", name)
	}
	vlog.VI(1).Infof("downsample: new sample %q", name)
	it.samples[name] = ds
	it.names = append(it.names, name)
	return ds, nil
}

// fill submits items until some cached item can be released, or the source
// is exhausted.
func (it *PerSampleIterator[T]) fill() {
	for it.src.Scan() {
		rec := it.src.Record()
		loc := rec.Locus()
		if it.hasLast && it.last.StartsBefore(loc) {
			for _, name := range it.names {
				it.samples[name].SignalNoMoreItemsBefore(rec)
			}
		}
		it.last, it.hasLast = loc, true
		ds, err := it.downsamplerFor(it.sampleKey(rec))
		if err != nil {
			it.err = err
			return
		}
		ds.Submit(rec)
		it.collect(false)
		if it.readyToRelease() {
			return
		}
	}
	if err := it.src.Err(); err != nil {
		it.err = errors.E(err, "downsample: reading source")
		return
	}
	for _, name := range it.names {
		it.samples[name].SignalEndOfInput()
	}
	it.collect(true)
	it.eof = true
}

// collect moves finalized items into the cache. Whole-stream samplers are
// drained only when atEnd is set.
func (it *PerSampleIterator[T]) collect(atEnd bool) {
	for _, name := range it.names {
		ds := it.samples[name]
		if !ds.HasFinalizedItems() || (!atEnd && samplesEntireInput(ds)) {
			continue
		}
		for _, item := range ds.ConsumeFinalizedItems() {
			it.cache.Insert(cacheEntry[T]{locus: item.Locus(), seq: it.seq, item: item})
			it.seq++
		}
	}
}

// readyToRelease returns true if the earliest cached item starts at or
// before every item still held by a downsampler.
func (it *PerSampleIterator[T]) readyToRelease() bool {
	if it.cache.Len() == 0 {
		return false
	}
	pending, ok := it.earliestPending()
	if !ok {
		return true
	}
	return !pending.StartsBefore(it.cache.Min().(cacheEntry[T]).locus)
}

func (it *PerSampleIterator[T]) earliestPending() (interval.Interval, bool) {
	var (
		earliest interval.Interval
		found    bool
	)
	for _, name := range it.names {
		ds := it.samples[name]
		var (
			item T
			ok   bool
		)
		if samplesEntireInput(ds) {
			item, ok = ds.PeekFinalized()
		} else {
			item, ok = ds.PeekPending()
		}
		if !ok {
			continue
		}
		if loc := item.Locus(); !found || loc.StartsBefore(earliest) {
			earliest, found = loc, true
		}
	}
	return earliest, found
}
