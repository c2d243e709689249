package bamdownsample

import (
	"context"
	"io"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/biodownsample/downsample"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// Opts configures Run.
type Opts struct {
	// Input is the path of the SAM or BAM file to downsample.
	Input string
	// Output is the path of the BAM file to write.
	Output string
	// Metrics, if nonempty, is the path of a TSV file that receives Stats.
	Metrics string
	// SAMInput reads Input as SAM instead of BAM.
	SAMInput bool
	// PerSample downsamples each sample (the SM of the record's read
	// group) independently.
	PerSample bool
	// Parallelism is the number of goroutines used to decompress the
	// input and compress the output. Zero means runtime.NumCPU().
	Parallelism int
	// Downsample selects the strategy and its parameters.
	Downsample downsample.Opts
}

// DefaultOpts is the default configuration.
var DefaultOpts = Opts{
	Downsample: downsample.DefaultOpts,
}

// Stats summarizes a Run.
type Stats struct {
	// RecordsIn is the number of records read.
	RecordsIn int
	// RecordsOut is the number of records written.
	RecordsOut int
	// Discarded is the number of mapped records removed by the downsampler.
	Discarded int
	// UnmappedPassed is the number of records without a reference that
	// were copied through unchanged.
	UnmappedPassed int
	// DiscardedBySample is set when Opts.PerSample is true.
	DiscardedBySample map[string]int
}

type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

// recordSource yields the mapped prefix of a reader as a
// downsample.Source. It stops at the first record without a reference;
// that record is kept in tail.
type recordSource struct {
	r          recordReader
	path       string
	checkOrder bool
	rec        *Read
	prev       *Read
	tail       *sam.Record
	n          int
	err        error
}

func (s *recordSource) Scan() bool {
	if s.err != nil || s.tail != nil {
		return false
	}
	r, err := s.r.Read()
	if err != nil {
		if err != io.EOF {
			s.err = errors.E(err, "read", s.path)
		}
		return false
	}
	s.n++
	read := NewRead(r)
	if !read.Mapped() {
		s.tail = r
		return false
	}
	if s.checkOrder && s.prev != nil && read.Locus().StartsBefore(s.prev.Locus()) {
		s.err = errors.E(errors.Invalid, "input is not coordinate sorted:", s.path,
			"record", r.Name, read.Locus(), "follows", s.prev.Name, s.prev.Locus())
		return false
	}
	s.prev, s.rec = read, read
	return true
}

func (s *recordSource) Record() *Read { return s.rec }

func (s *recordSource) Err() error { return s.err }

// iterator is satisfied by downsample.Iterator and
// downsample.PerSampleIterator.
type iterator interface {
	Scan() bool
	Record() *Read
	Err() error
	NumDiscarded() int
}

func openReader(ctx context.Context, opts *Opts, in file.File, parallelism int) (recordReader, error) {
	if opts.SAMInput {
		r, err := sam.NewReader(in.Reader(ctx))
		if err != nil {
			return nil, errors.E(err, "failed to open SAM:", opts.Input)
		}
		return r, nil
	}
	r, err := bam.NewReader(in.Reader(ctx), parallelism)
	if err != nil {
		return nil, errors.E(err, "failed to open BAM:", opts.Input)
	}
	return r, nil
}

// Run downsamples opts.Input into opts.Output. Mapped records are
// routed through the configured downsampler; records without a
// reference, which a coordinate-sorted file places last, are copied
// through unchanged. Positional downsampling requires coordinate-sorted
// input; an input that is declared or found to be otherwise is an
// error.
func Run(ctx context.Context, opts Opts) (stats Stats, err error) {
	if err = opts.Downsample.Validate(); err != nil {
		return
	}
	if opts.Input == "" || opts.Output == "" {
		err = errors.E(errors.Invalid, "bamdownsample: input and output paths are required")
		return
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	positional := opts.Downsample.Strategy == downsample.StrategyPositional

	in, err := file.Open(ctx, opts.Input)
	if err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	reader, err := openReader(ctx, &opts, in, parallelism)
	if err != nil {
		return
	}
	header := reader.Header()
	if positional {
		switch header.SortOrder {
		case sam.Coordinate, sam.UnknownOrder:
		default:
			err = errors.E(errors.Invalid, "positional downsampling requires coordinate-sorted input;",
				opts.Input, "is sorted by", header.SortOrder.String())
			return
		}
	}

	out, err := file.Create(ctx, opts.Output)
	if err != nil {
		return
	}
	defer file.CloseAndReport(ctx, out, &err)
	writer, err := bam.NewWriter(out.Writer(ctx), header, parallelism)
	if err != nil {
		return
	}
	defer func() {
		if e := writer.Close(); e != nil && err == nil {
			err = e
		}
	}()

	src := &recordSource{r: reader, path: opts.Input, checkOrder: positional}
	rnd := downsample.NewRand(opts.Downsample.Seed)
	newDownsampler := func(sample string) (downsample.Downsampler[*Read], error) {
		vlog.VI(1).Infof("bamdownsample: new %v downsampler for sample %q", opts.Downsample.Strategy, sample)
		return downsample.New(opts.Downsample, rnd, ReducedReadKey)
	}
	var (
		it        iterator
		perSample *downsample.PerSampleIterator[*Read]
	)
	if opts.PerSample {
		perSample = downsample.NewPerSampleIterator[*Read](src, SampleKey(header), newDownsampler)
		it = perSample
	} else {
		ds, e := newDownsampler("")
		if e != nil {
			err = e
			return
		}
		it = downsample.NewIterator[*Read](src, ds)
	}

	for it.Scan() {
		if err = writer.Write(it.Record().Record); err != nil {
			err = errors.E(err, "write", opts.Output)
			return
		}
		stats.RecordsOut++
	}
	if err = it.Err(); err != nil {
		return
	}
	stats.Discarded = it.NumDiscarded()
	if perSample != nil {
		stats.DiscardedBySample = perSample.NumDiscardedBySample()
	}

	for r := src.tail; r != nil; {
		if r.Ref != nil {
			err = errors.E(errors.Invalid, "input is not coordinate sorted:", opts.Input,
				"mapped record", r.Name, "follows unmapped records")
			return
		}
		if err = writer.Write(r); err != nil {
			err = errors.E(err, "write", opts.Output)
			return
		}
		stats.RecordsOut++
		stats.UnmappedPassed++
		var e error
		if r, e = reader.Read(); e != nil {
			if e != io.EOF {
				err = errors.E(e, "read", opts.Input)
				return
			}
			break
		}
		src.n++
	}
	stats.RecordsIn = src.n
	log.Printf("bamdownsample: %s: read %d records, wrote %d, discarded %d, unmapped %d",
		opts.Input, stats.RecordsIn, stats.RecordsOut, stats.Discarded, stats.UnmappedPassed)

	if opts.Metrics != "" {
		err = WriteMetrics(ctx, opts.Metrics, stats)
	}
	return
}
