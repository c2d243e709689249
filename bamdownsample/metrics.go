package bamdownsample

import (
	"context"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// WriteMetrics writes stats to path as TSV. The first table holds the
// totals. When stats.DiscardedBySample is set, a second table lists the
// discards of each sample in name order.
func WriteMetrics(ctx context.Context, path string, stats Stats) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "Couldn't create metrics file:", path)
	}
	defer file.CloseAndReport(ctx, out, &err)

	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("# bio-downsample")
	if err = w.EndLine(); err != nil {
		return
	}
	for _, col := range []string{"RECORDS_IN", "RECORDS_OUT", "DISCARDED", "UNMAPPED_PASSED"} {
		w.WriteString(col)
	}
	if err = w.EndLine(); err != nil {
		return
	}
	for _, v := range []int{stats.RecordsIn, stats.RecordsOut, stats.Discarded, stats.UnmappedPassed} {
		w.WriteInt64(int64(v))
	}
	if err = w.EndLine(); err != nil {
		return
	}

	if stats.DiscardedBySample != nil {
		samples := make([]string, 0, len(stats.DiscardedBySample))
		for s := range stats.DiscardedBySample {
			samples = append(samples, s)
		}
		sort.Strings(samples)
		w.WriteString("SAMPLE")
		w.WriteString("DISCARDED")
		if err = w.EndLine(); err != nil {
			return
		}
		for _, s := range samples {
			w.WriteString(s)
			w.WriteInt64(int64(stats.DiscardedBySample[s]))
			if err = w.EndLine(); err != nil {
				return
			}
		}
	}
	if err = w.Flush(); err != nil {
		return errors.E(err, "error writing to metrics file:", path)
	}
	return nil
}
