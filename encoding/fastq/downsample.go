package fastq

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/biodownsample/downsample"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const (
	linesPerRead = 4
)

// pair holds the raw bytes of an R1 record and its mate, each including
// the trailing newlines.
type pair struct {
	r1, r2 []byte
}

// pairSource reads pairs from two FASTQ streams. It implements
// downsample.Source.
type pairSource struct {
	r1, r2 *bufio.Scanner
	rec    pair
	err    error
}

func newPairSource(r1In, r2In io.Reader) *pairSource {
	return &pairSource{r1: bufio.NewScanner(r1In), r2: bufio.NewScanner(r2In)}
}

func (s *pairSource) Scan() bool {
	if s.err != nil {
		return false
	}
	r1, r1Err := scanRead(s.r1)
	if r1Err != nil && r1Err != io.EOF {
		s.err = errors.Wrap(r1Err, "error reading R1 input")
		return false
	}
	r2, r2Err := scanRead(s.r2)
	if r2Err != nil && r2Err != io.EOF {
		s.err = errors.Wrap(r2Err, "error reading R2 input")
		return false
	}
	switch {
	case r1Err == io.EOF && r2Err == io.EOF:
		return false
	case r1Err == io.EOF:
		s.err = errors.New("more reads in R2 input than in R1 input")
		return false
	case r2Err == io.EOF:
		s.err = errors.New("more reads in R1 input than in R2 input")
		return false
	}
	s.rec = pair{r1, r2}
	return true
}

func (s *pairSource) Record() pair { return s.rec }

func (s *pairSource) Err() error { return s.err }

func scanRead(scanner *bufio.Scanner) ([]byte, error) {
	var buffer bytes.Buffer
	for i := 0; i < linesPerRead; i++ {
		if !scanner.Scan() {
			if i == 0 && scanner.Err() == nil {
				return nil, io.EOF
			}
			if scanner.Err() != nil {
				return nil, scanner.Err()
			}
			return nil, errors.Errorf("too few lines in FASTQ record: want %d, got %d", linesPerRead, i)
		}
		buffer.Write(scanner.Bytes())
		buffer.WriteByte('\n')
	}
	return buffer.Bytes(), nil
}

func writePair(p pair, r1Out, r2Out io.Writer) error {
	if _, err := r1Out.Write(p.r1); err != nil {
		return errors.Wrap(err, "error writing R1 output")
	}
	if _, err := r2Out.Write(p.r2); err != nil {
		return errors.Wrap(err, "error writing R2 output")
	}
	return nil
}

// Downsample writes read pairs from r1In and r2In to r1Out and r2Out. Each
// pair is kept independently with probability rate. The selection is
// determined by seed.
func Downsample(rate float64, seed int64, r1In, r2In io.Reader, r1Out, r2Out io.Writer) error {
	keep, err := downsample.NewFractional[pair](rate, downsample.NewRand(seed))
	if err != nil {
		return errors.Wrap(err, "invalid rate")
	}
	src := newPairSource(r1In, r2In)
	for src.Scan() {
		if !keep.Keep() {
			continue
		}
		if err := writePair(src.Record(), r1Out, r2Out); err != nil {
			return err
		}
	}
	return src.Err()
}

// DownsampleToCount writes a uniform sample of exactly min(count, N) read
// pairs from r1In and r2In to r1Out and r2Out, where N is the number of
// input pairs. The sampled pairs are held in memory and written in input
// order once the inputs are exhausted.
func DownsampleToCount(count int, seed int64, r1In, r2In io.Reader, r1Out, r2Out io.Writer) error {
	ds, err := downsample.NewReservoir[pair](count, downsample.NewRand(seed), nil, downsample.PinGroups)
	if err != nil {
		return errors.Wrap(err, "invalid count")
	}
	it := downsample.NewIterator[pair](newPairSource(r1In, r2In), ds)
	for it.Scan() {
		if err := writePair(it.Record(), r1Out, r2Out); err != nil {
			return err
		}
	}
	return it.Err()
}

// Opts configures DownsampleFiles.
type Opts struct {
	// Rate is the per-pair retention probability. It is used when Count
	// is zero.
	Rate float64
	// Count, if positive, selects exactly this many pairs.
	Count int
	// Seed seeds the random source.
	Seed int64
	// R1, R2 are the input paths. R1Out, R2Out are the output paths.
	// Paths ending in ".gz" are gzip-compressed.
	R1, R2, R1Out, R2Out string
}

type closer func() error

func openInput(ctx context.Context, path string) (io.Reader, closer, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	closeFile := func() error { return f.Close(ctx) }
	if !strings.HasSuffix(path, ".gz") {
		return f.Reader(ctx), closeFile, nil
	}
	gz, err := gzip.NewReader(f.Reader(ctx))
	if err != nil {
		_ = closeFile()
		return nil, nil, errors.Wrapf(err, "%s: not a gzip file", path)
	}
	return gz, func() error {
		err := gz.Close()
		if err2 := closeFile(); err == nil {
			err = err2
		}
		return err
	}, nil
}

func createOutput(ctx context.Context, path string) (io.Writer, closer, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	closeFile := func() error { return f.Close(ctx) }
	if !strings.HasSuffix(path, ".gz") {
		return f.Writer(ctx), closeFile, nil
	}
	gz := gzip.NewWriter(f.Writer(ctx))
	return gz, func() error {
		err := gz.Close()
		if err2 := closeFile(); err == nil {
			err = err2
		}
		return err
	}, nil
}

// DownsampleFiles runs Downsample, or DownsampleToCount when opts.Count
// is positive, on the files named in opts.
func DownsampleFiles(ctx context.Context, opts Opts) (err error) {
	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if e := closers[i](); e != nil && err == nil {
				err = e
			}
		}
	}()
	var in [2]io.Reader
	for i, path := range []string{opts.R1, opts.R2} {
		var c closer
		if in[i], c, err = openInput(ctx, path); err != nil {
			return err
		}
		closers = append(closers, c)
	}
	var out [2]io.Writer
	for i, path := range []string{opts.R1Out, opts.R2Out} {
		var c closer
		if out[i], c, err = createOutput(ctx, path); err != nil {
			return err
		}
		closers = append(closers, c)
	}
	if opts.Count > 0 {
		log.Debug.Printf("fastq: sampling %d pairs from %s, %s", opts.Count, opts.R1, opts.R2)
		return DownsampleToCount(opts.Count, opts.Seed, in[0], in[1], out[0], out[1])
	}
	log.Debug.Printf("fastq: sampling pairs at rate %v from %s, %s", opts.Rate, opts.R1, opts.R2)
	return Downsample(opts.Rate, opts.Seed, in[0], in[1], out[0], out[1])
}
