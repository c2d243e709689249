// Package downsample caps the number of reads retained from a stream.
//
// Three strategies are provided:
//
//   - Positional bounds the number of reads covering any one position of a
//     coordinate-sorted stream. Reads are grouped into stacks by alignment
//     start; overlapping stacks share one coverage budget.
//
//   - Reservoir keeps a uniform random sample of fixed size over the whole
//     stream (Algorithm R). Runs of reads carrying the same group key can be
//     treated as one indivisible unit.
//
//   - Fractional keeps each read independently with a fixed probability.
//
// All of them implement Downsampler, so callers can drive any strategy
// through Iterator or PerSampleIterator without knowing which one is in use.
// Surviving items always come out in the order they were submitted.
//
// Nothing in this package is safe for concurrent use.
package downsample
