package main

/*
  bio-downsample reduces the read depth of a coordinate-sorted BAM or SAM
  file, or of a pair of FASTQ files.

  BAM mode (-in, -out):

    bio-downsample -in in.bam -out out.bam -strategy positional -target-coverage 250

  FASTQ mode (-r1, -r2, -r1-out, -r2-out) always samples pairs, either
  at -fraction or, if -capacity is set explicitly, to an exact count:

    bio-downsample -r1 a_R1.fastq.gz -r2 a_R2.fastq.gz \
      -r1-out b_R1.fastq.gz -r2-out b_R2.fastq.gz -fraction 0.1
*/

import (
	"flag"
	"runtime"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/biodownsample/bamdownsample"
	"github.com/grailbio/biodownsample/downsample"
	"github.com/grailbio/biodownsample/encoding/fastq"
)

var (
	inPath         = flag.String("in", "", "Input BAM (or SAM, with -sam) filename")
	outPath        = flag.String("out", "", "Output BAM filename")
	samInput       = flag.Bool("sam", false, "Read the input as SAM instead of BAM")
	strategy       = flag.String("strategy", downsample.DefaultOpts.Strategy.String(), "Downsampling strategy: none, positional, reservoir or fractional")
	targetCoverage = flag.Int("target-coverage", downsample.DefaultOpts.TargetCoverage, "Maximum coverage at any position, for -strategy=positional")
	capacity       = flag.Int("capacity", downsample.DefaultOpts.Capacity, "Number of reads to keep, for -strategy=reservoir. In FASTQ mode, the number of pairs to keep when set explicitly")
	fraction       = flag.Float64("fraction", downsample.DefaultOpts.Fraction, "Probability of keeping each read, for -strategy=fractional and FASTQ mode")
	groupPolicy    = flag.String("group-policy", downsample.DefaultOpts.GroupPolicy.String(), "Treatment of reduced reads by -strategy=reservoir: 'pin' keeps them all, 'sample' samples each run of them as one unit")
	seed           = flag.Int64("seed", downsample.DefaultSeed, "Random seed")
	perSample      = flag.Bool("per-sample", false, "Downsample each sample (SM of the read group) independently")
	metricsFile    = flag.String("metrics", "", "Output metrics TSV filename")
	parallelism    = flag.Int("parallelism", runtime.NumCPU(), "Number of goroutines used for BAM compression and decompression")
	r1Path         = flag.String("r1", "", "Input R1 FASTQ filename")
	r2Path         = flag.String("r2", "", "Input R2 FASTQ filename")
	r1OutPath      = flag.String("r1-out", "", "Output R1 FASTQ filename")
	r2OutPath      = flag.String("r2-out", "", "Output R2 FASTQ filename")
)

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func downsampleOpts() downsample.Opts {
	s, err := downsample.ParseStrategy(*strategy)
	if err != nil {
		log.Fatalf("-strategy: %v", err)
	}
	p, err := downsample.ParseGroupPolicy(*groupPolicy)
	if err != nil {
		log.Fatalf("-group-policy: %v", err)
	}
	opts := downsample.Opts{
		Strategy:       s,
		TargetCoverage: *targetCoverage,
		Capacity:       *capacity,
		Fraction:       *fraction,
		GroupPolicy:    p,
		Seed:           *seed,
	}
	if err := opts.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	return opts
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		a := flag.Args()
		log.Fatalf("unparsed flags, please check flag syntax: '%s'", strings.Join(a[len(a)-flag.NArg():], " "))
	}
	ctx := vcontext.Background()

	if *r1Path != "" || *r2Path != "" {
		if *r1Path == "" || *r2Path == "" || *r1OutPath == "" || *r2OutPath == "" {
			log.Fatalf("FASTQ mode requires -r1, -r2, -r1-out and -r2-out")
		}
		opts := fastq.Opts{
			Rate:  *fraction,
			Seed:  *seed,
			R1:    *r1Path,
			R2:    *r2Path,
			R1Out: *r1OutPath,
			R2Out: *r2OutPath,
		}
		if flagSet("capacity") {
			opts.Count = *capacity
		}
		if err := fastq.DownsampleFiles(ctx, opts); err != nil {
			log.Fatalf("%v", err)
		}
		log.Debug.Printf("exiting")
		return
	}

	if *inPath == "" || *outPath == "" {
		log.Fatalf("-in and -out are required")
	}
	opts := bamdownsample.DefaultOpts
	opts.Input = *inPath
	opts.Output = *outPath
	opts.Metrics = *metricsFile
	opts.SAMInput = *samInput
	opts.PerSample = *perSample
	opts.Parallelism = *parallelism
	opts.Downsample = downsampleOpts()
	stats, err := bamdownsample.Run(ctx, opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("kept %d of %d records", stats.RecordsOut, stats.RecordsIn)
	log.Debug.Printf("exiting")
}
