package downsample

import (
	"fmt"
	"testing"

	"github.com/grailbio/biodownsample/interval"
	"github.com/stretchr/testify/require"
)

type testRead struct {
	id     int
	loc    interval.Interval
	group  string
	sample string
}

func (r *testRead) Locus() interval.Interval { return r.loc }

func (r *testRead) String() string { return fmt.Sprintf("read%d@%v", r.id, r.loc) }

func groupOf(r *testRead) (string, bool) { return r.group, r.group != "" }

// readMaker hands out reads with increasing ids, so that output order can be
// checked against submission order.
type readMaker struct {
	nextID int
}

func (m *readMaker) read(refID, start, length int) *testRead {
	r := &testRead{
		id:  m.nextID,
		loc: interval.Interval{RefID: refID, Start: interval.PosType(start), End: interval.PosType(start + length - 1)},
	}
	m.nextID++
	return r
}

func (m *readMaker) identicalStack(n, refID, start, length int) []*testRead {
	reads := make([]*testRead, n)
	for i := range reads {
		reads[i] = m.read(refID, start, length)
	}
	return reads
}

// varyingStack returns n/2 reads of firstLength followed by n/2 reads of
// secondLength, all starting at start.
func (m *readMaker) varyingStack(n, refID, start, firstLength, secondLength int) []*testRead {
	reads := m.identicalStack(n/2, refID, start, firstLength)
	return append(reads, m.identicalStack(n/2, refID, start, secondLength)...)
}

func (m *readMaker) grouped(n int, group string) []*testRead {
	reads := m.identicalStack(n, 0, 1, 10)
	for _, r := range reads {
		r.group = group
	}
	return reads
}

// stackSizesAndVerifySortedness returns the number of reads at each distinct
// start, in order. It fails the test if reads are out of coordinate order, or
// out of submission order within a stack.
func stackSizesAndVerifySortedness(t *testing.T, reads []*testRead) []int {
	require.NotEmpty(t, reads)
	var sizes []int
	size := 1
	for i := 1; i < len(reads); i++ {
		prev, cur := reads[i-1], reads[i]
		switch {
		case prev.loc.StartsBefore(cur.loc):
			sizes = append(sizes, size)
			size = 1
		case cur.loc.StartsBefore(prev.loc):
			require.Failf(t, "reads are out of order", "%v %v", prev, cur)
		default:
			require.Truef(t, prev.id < cur.id, "reads reordered within stack: %v %v", prev, cur)
			size++
		}
	}
	return append(sizes, size)
}

// requireSubsequence checks that got appears in want in the same relative
// order.
func requireSubsequence(t *testing.T, want, got []*testRead) {
	j := 0
	for _, r := range got {
		for j < len(want) && want[j] != r {
			j++
		}
		require.Truef(t, j < len(want), "%v is out of order or not in the input", r)
		j++
	}
}

// maxCoverage returns the highest per-base coverage of reads on one contig.
func maxCoverage(reads []*testRead) int {
	depth := map[interval.PosType]int{}
	max := 0
	for _, r := range reads {
		for p := r.loc.Start; p <= r.loc.End; p++ {
			depth[p]++
			if depth[p] > max {
				max = depth[p]
			}
		}
	}
	return max
}

// fakeRand replays scripted values.
type fakeRand struct {
	ints   []int
	floats []float64
}

func (r *fakeRand) Intn(n int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		panic(fmt.Sprintf("fakeRand: scripted %d >= %d", v, n))
	}
	return v
}

func (r *fakeRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}
