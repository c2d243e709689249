package interval

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
)

// PosType is the coordinate type of an Interval.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// UnmappedRefID is the reference ID of records that are not placed on any
// contig.
const UnmappedRefID = -1

// Interval is a closed range [Start, End] on one contig.  Positions are
// 1-based.  Intervals are values; they are never mutated after construction.
type Interval struct {
	RefID int
	Start PosType
	End   PosType
}

// Locatable is implemented by anything placed on the genome.
type Locatable interface {
	// Locus returns the span covered by the object.
	Locus() Interval
}

// New creates an Interval.  It returns an error if start > end.
func New(refID int, start, end PosType) (Interval, error) {
	if start > end {
		return Interval{}, errors.E(errors.Invalid, fmt.Sprintf("interval: start %d > end %d on ref %d", start, end, refID))
	}
	return Interval{RefID: refID, Start: start, End: end}, nil
}

// For sorting Intervals.
func sortableRefID(id int) int {
	if id == UnmappedRefID {
		// Unmapped reads are sorted the last, so use a large value.
		return math.MaxInt32
	}
	return id
}

// Compare returns (negative int, 0, positive int) if (iv<o, iv=o, iv>o)
// respectively. Intervals are ordered by contig, then start, then end.
func (iv Interval) Compare(o Interval) int {
	ref0 := sortableRefID(iv.RefID)
	ref1 := sortableRefID(o.RefID)
	if ref0 != ref1 {
		return ref0 - ref1
	}
	if iv.Start != o.Start {
		return int(iv.Start - o.Start)
	}
	return int(iv.End - o.End)
}

// StartsBefore returns true iff iv's (contig, start) is strictly less than o's.
func (iv Interval) StartsBefore(o Interval) bool {
	ref0 := sortableRefID(iv.RefID)
	ref1 := sortableRefID(o.RefID)
	if ref0 != ref1 {
		return ref0 < ref1
	}
	return iv.Start < o.Start
}

// SameContig returns true iff iv and o are on the same contig.
func (iv Interval) SameContig(o Interval) bool {
	return iv.RefID == o.RefID
}

// SameStart returns true iff iv and o start at the same (contig, position).
func (iv Interval) SameStart(o Interval) bool {
	return iv.RefID == o.RefID && iv.Start == o.Start
}

// Overlaps returns true iff iv and o share at least one position.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.RefID == o.RefID && iv.Start <= o.End && o.Start <= iv.End
}

// Contains returns true iff (refID, pos) lies inside iv.
func (iv Interval) Contains(refID int, pos PosType) bool {
	return iv.RefID == refID && iv.Start <= pos && pos <= iv.End
}

// Union returns the smallest interval covering both iv and o.
//
// REQUIRES: iv and o are on the same contig.
func (iv Interval) Union(o Interval) Interval {
	if iv.RefID != o.RefID {
		panic(fmt.Sprintf("interval: union of %v and %v spans contigs", iv, o))
	}
	u := iv
	if o.Start < u.Start {
		u.Start = o.Start
	}
	if o.End > u.End {
		u.End = o.End
	}
	return u
}

// Len returns the number of positions covered by iv.
func (iv Interval) Len() int {
	return int(iv.End-iv.Start) + 1
}

// String returns "ref:start-end".
func (iv Interval) String() string {
	return fmt.Sprintf("%d:%d-%d", iv.RefID, iv.Start, iv.End)
}
