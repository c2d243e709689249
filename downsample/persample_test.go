package downsample

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOf(r *testRead) string { return r.sample }

// interleavedSamples returns, for each start, n reads per sample alternating
// between samples.
func interleavedSamples(m *readMaker, samples []string, starts []int, n int) []*testRead {
	var reads []*testRead
	for _, start := range starts {
		for i := 0; i < n; i++ {
			for _, s := range samples {
				r := m.read(0, start, 100)
				r.sample = s
				reads = append(reads, r)
			}
		}
	}
	return reads
}

func bySample(reads []*testRead) map[string][]*testRead {
	m := map[string][]*testRead{}
	for _, r := range reads {
		m[r.sample] = append(m[r.sample], r)
	}
	return m
}

func requireCoordinateSorted(t *testing.T, reads []*testRead) {
	for i := 1; i < len(reads); i++ {
		require.Falsef(t, reads[i].loc.StartsBefore(reads[i-1].loc), "out of order: %v %v", reads[i-1], reads[i])
	}
}

func TestPerSamplePositional(t *testing.T) {
	var m readMaker
	in := interleavedSamples(&m, []string{"A", "B"}, []int{1, 25, 50, 400}, 30)
	rnd := NewRand(1)
	it := NewPerSampleIterator[*testRead](NewSliceSource(in), sampleOf, func(string) (Downsampler[*testRead], error) {
		return NewPositional[*testRead](10, rnd)
	})
	out := drain[*testRead](t, it)
	requireCoordinateSorted(t, out)

	assert.Equal(t, []string{"A", "B"}, it.Samples())
	inBySample, outBySample := bySample(in), bySample(out)
	for _, s := range []string{"A", "B"} {
		requireSubsequence(t, inBySample[s], outBySample[s])
		assert.Len(t, outBySample[s], 20)
		assert.True(t, maxCoverage(outBySample[s]) <= 10)
	}
	assert.Equal(t, map[string]int{"A": 100, "B": 100}, it.NumDiscardedBySample())
	assert.Equal(t, 200, it.NumDiscarded())
}

func TestPerSampleReservoir(t *testing.T) {
	var m readMaker
	in := interleavedSamples(&m, []string{"x", "y", "z"}, []int{1, 10, 20, 30, 40}, 4)
	rnd := NewRand(2)
	it := NewPerSampleIterator[*testRead](NewSliceSource(in), sampleOf, func(string) (Downsampler[*testRead], error) {
		return NewReservoir[*testRead](5, rnd, nil, PinGroups)
	})
	out := drain[*testRead](t, it)
	require.Len(t, out, 15)
	requireCoordinateSorted(t, out)
	for s, reads := range bySample(out) {
		assert.Lenf(t, reads, 5, "sample %s", s)
	}
}

func TestPerSampleFractionalKeepsEverything(t *testing.T) {
	var m readMaker
	in := interleavedSamples(&m, []string{"x", "y"}, []int{1, 5, 9}, 3)
	it := NewPerSampleIterator[*testRead](NewSliceSource(in), sampleOf, func(string) (Downsampler[*testRead], error) {
		return NewFractional[*testRead](1, nil)
	})
	assert.Equal(t, in, drain[*testRead](t, it))
	assert.Equal(t, 0, it.NumDiscarded())
}

func TestPerSampleFactoryError(t *testing.T) {
	var m readMaker
	in := interleavedSamples(&m, []string{"ok", "bad"}, []int{1}, 2)
	it := NewPerSampleIterator[*testRead](NewSliceSource(in), sampleOf, func(s string) (Downsampler[*testRead], error) {
		if s == "bad" {
			return nil, fmt.Errorf("no downsampler for %s", s)
		}
		return NewPassthrough[*testRead](), nil
	})
	for it.Scan() {
	}
	require.Error(t, it.Err())
	assert.Contains(t, it.Err().Error(), "no downsampler for bad")
}

func TestPerSampleEmpty(t *testing.T) {
	it := NewPerSampleIterator[*testRead](NewSliceSource[*testRead](nil), sampleOf, func(string) (Downsampler[*testRead], error) {
		return NewPassthrough[*testRead](), nil
	})
	assert.False(t, it.Scan())
	assert.NoError(t, it.Err())
	assert.Empty(t, it.Samples())
}
