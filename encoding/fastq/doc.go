// Package fastq downsamples paired FASTQ files. Records are treated as
// opaque four-line blocks; R1 and R2 records at the same index are kept
// or dropped together.
package fastq
