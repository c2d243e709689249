package bamdownsample

import (
	"github.com/grailbio/biodownsample/downsample"
	"github.com/grailbio/biodownsample/interval"
	"github.com/grailbio/hts/sam"
)

var (
	rrTag = sam.NewTag("RR")
	rgTag = sam.NewTag("RG")
	smTag = sam.NewTag("SM")
)

// Read adapts a *sam.Record to interval.Locatable. The locus is
// computed once at construction.
type Read struct {
	*sam.Record
	locus interval.Interval
}

// NewRead wraps r. The locus is 1-based and closed. A record with no
// reference is placed on interval.UnmappedRefID. A record with no
// reference-consuming cigar operations covers one base.
func NewRead(r *sam.Record) *Read {
	refID := interval.UnmappedRefID
	if r.Ref != nil {
		refID = r.Ref.ID()
	}
	start := interval.PosType(r.Pos + 1)
	end := start
	if e := interval.PosType(r.End()); e > end {
		end = e
	}
	return &Read{
		Record: r,
		locus:  interval.Interval{RefID: refID, Start: start, End: end},
	}
}

// Locus implements interval.Locatable.
func (r *Read) Locus() interval.Interval { return r.locus }

// Mapped returns true if the record is placed on a reference.
func (r *Read) Mapped() bool { return r.locus.RefID != interval.UnmappedRefID }

// ReducedReadKey keys each reduced read, i.e. a record that carries an RR
// tag, by its name. Under downsample.PinGroups reduced reads are always
// retained; under downsample.SampleGroups each read, or a run of adjacent
// records sharing a name, is sampled as one unit.
var ReducedReadKey downsample.GroupKey[*Read] = func(r *Read) (string, bool) {
	if r.AuxFields.Get(rrTag) != nil {
		return r.Name, true
	}
	return "", false
}

// SampleKey returns a function that maps a record to the sample (SM)
// of its read group. Records without a read group, or whose read group
// is not in the header, map to "". A read group without a sample maps
// to the read group ID.
func SampleKey(header *sam.Header) func(*Read) string {
	samples := map[string]string{}
	if header != nil {
		for _, rg := range header.RGs() {
			sm := rg.Get(smTag)
			if sm == "" {
				sm = rg.Name()
			}
			samples[rg.Name()] = sm
		}
	}
	return func(r *Read) string {
		aux := r.AuxFields.Get(rgTag)
		if aux == nil {
			return ""
		}
		rg, ok := aux.Value().(string)
		if !ok {
			return ""
		}
		return samples[rg]
	}
}
