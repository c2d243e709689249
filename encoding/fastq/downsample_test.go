package fastq_test

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/biodownsample/encoding/fastq"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

func fastqText(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func writeFile(t *testing.T, path string, data []string) {
	buf := bytes.Buffer{}
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(fastqText(data)))
	assert.NoError(t, gz.Close())
	assert.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0600))
}

func readFile(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	gz, err := gzip.NewReader(bytes.NewReader(data))
	assert.NoError(t, err)
	text, err := ioutil.ReadAll(gz)
	assert.NoError(t, err)
	return splitLines(string(text))
}

func splitLines(s string) []string {
	if s == "" {
		// strings.Split returns [""] for an empty string.
		return []string{}
	}
	return strings.Split(strings.Trim(s, "\n"), "\n")
}

var (
	r1Lines = []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	r2Lines = []string{"i", "j", "k", "l", "m", "n", "o", "p"}
)

func TestDownsample(t *testing.T) {
	tests := []struct {
		rate       float64
		r1InLines  []string
		r2InLines  []string
		r1OutLines []string
		r2OutLines []string
		err        string
	}{
		{1.0, r1Lines, r2Lines, r1Lines, r2Lines, ""},
		{0.0, r1Lines, r2Lines, []string{}, []string{}, ""},
		{1.2, r1Lines, r2Lines, nil, nil, "invalid rate"},
		{-0.1, r1Lines, r2Lines, nil, nil, "invalid rate"},
		{1.0, r1Lines, r2Lines[:4], nil, nil, "more reads in R1 input than in R2 input"},
		{1.0, r1Lines[:4], r2Lines, nil, nil, "more reads in R2 input than in R1 input"},
		{1.0, r1Lines[:5], r2Lines, nil, nil, "error reading R1 input: too few lines in FASTQ record: want 4, got 1"},
		{1.0, r1Lines, r2Lines[:6], nil, nil, "error reading R2 input: too few lines in FASTQ record: want 4, got 2"},
	}
	for idx, test := range tests {
		t.Run(fmt.Sprint(idx), func(t *testing.T) {
			var r1Out, r2Out bytes.Buffer
			err := fastq.Downsample(test.rate, 0,
				strings.NewReader(fastqText(test.r1InLines)), strings.NewReader(fastqText(test.r2InLines)),
				&r1Out, &r2Out)
			if test.err != "" {
				expect.True(t, strings.Contains(fmt.Sprint(err), test.err), "error %v, want %q", err, test.err)
				return
			}
			assert.NoError(t, err)
			expect.EQ(t, splitLines(r1Out.String()), test.r1OutLines)
			expect.EQ(t, splitLines(r2Out.String()), test.r2OutLines)
		})
	}
}

// pairedInput returns n pairs whose R1 and R2 records share an index.
func pairedInput(n int) (r1, r2 string) {
	var b1, b2 strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b1, "@r%d/1\nACGT\n+\nIIII\n", i)
		fmt.Fprintf(&b2, "@r%d/2\nTGCA\n+\nIIII\n", i)
	}
	return b1.String(), b2.String()
}

func ids(lines []string) []string {
	var out []string
	for i := 0; i < len(lines); i += 4 {
		out = append(out, strings.TrimSuffix(strings.TrimSuffix(lines[i], "/1"), "/2"))
	}
	return out
}

func TestDownsampleKeepsPairsTogether(t *testing.T) {
	const nPairs = 10000
	r1, r2 := pairedInput(nPairs)
	var r1Out, r2Out bytes.Buffer
	assert.NoError(t, fastq.Downsample(0.1, 7, strings.NewReader(r1), strings.NewReader(r2), &r1Out, &r2Out))
	ids1, ids2 := ids(splitLines(r1Out.String())), ids(splitLines(r2Out.String()))
	expect.EQ(t, ids1, ids2)
	expect.GE(t, len(ids1), int(nPairs*0.1*0.9))
	expect.LE(t, len(ids1), int(nPairs*0.1*1.1))

	// The same seed selects the same pairs.
	var again1, again2 bytes.Buffer
	assert.NoError(t, fastq.Downsample(0.1, 7, strings.NewReader(r1), strings.NewReader(r2), &again1, &again2))
	expect.EQ(t, again1.String(), r1Out.String())
}

func TestDownsampleToCount(t *testing.T) {
	for _, count := range []int{1, 2, 4} {
		t.Run(fmt.Sprint(count), func(t *testing.T) {
			var r1Out, r2Out bytes.Buffer
			assert.NoError(t, fastq.DownsampleToCount(count, 0,
				strings.NewReader(fastqText(r1Lines)), strings.NewReader(fastqText(r2Lines)), &r1Out, &r2Out))
			out1, out2 := splitLines(r1Out.String()), splitLines(r2Out.String())
			if count >= 2 {
				expect.EQ(t, out1, r1Lines)
				expect.EQ(t, out2, r2Lines)
				return
			}
			expect.EQ(t, len(out1), 4)
			if out1[0] == "a" {
				expect.EQ(t, out2, r2Lines[:4])
			} else {
				expect.EQ(t, out1, r1Lines[4:])
				expect.EQ(t, out2, r2Lines[4:])
			}
		})
	}

	const nPairs = 5000
	r1, r2 := pairedInput(nPairs)
	var r1Out, r2Out bytes.Buffer
	assert.NoError(t, fastq.DownsampleToCount(100, 3, strings.NewReader(r1), strings.NewReader(r2), &r1Out, &r2Out))
	ids1 := ids(splitLines(r1Out.String()))
	expect.EQ(t, len(ids1), 100)
	expect.EQ(t, ids(splitLines(r2Out.String())), ids1)

	err := fastq.DownsampleToCount(0, 0, strings.NewReader(r1), strings.NewReader(r2), &r1Out, &r2Out)
	expect.True(t, strings.Contains(fmt.Sprint(err), "invalid count"), "error %v, want %q", err, "invalid count")
	err = fastq.DownsampleToCount(1, 0, strings.NewReader(r1), strings.NewReader(""), &r1Out, &r2Out)
	expect.True(t, strings.Contains(fmt.Sprint(err), "more reads in R1 input than in R2 input"), "error %v, want %q", err, "more reads in R1 input than in R2 input")
}

func TestDownsampleFiles(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	opts := fastq.Opts{
		Rate:  1,
		R1:    filepath.Join(tempDir, "r1.fastq.gz"),
		R2:    filepath.Join(tempDir, "r2.fastq.gz"),
		R1Out: filepath.Join(tempDir, "out_r1.fastq.gz"),
		R2Out: filepath.Join(tempDir, "out_r2.fastq"),
	}
	writeFile(t, opts.R1, r1Lines)
	writeFile(t, opts.R2, r2Lines)
	assert.NoError(t, fastq.DownsampleFiles(ctx, opts))
	expect.EQ(t, readFile(t, opts.R1Out), r1Lines)
	plain, err := ioutil.ReadFile(opts.R2Out)
	assert.NoError(t, err)
	expect.EQ(t, splitLines(string(plain)), r2Lines)

	opts.Count = 1
	assert.NoError(t, fastq.DownsampleFiles(ctx, opts))
	expect.EQ(t, len(readFile(t, opts.R1Out)), 4)

	opts.R1 = filepath.Join(tempDir, "missing.fastq")
	expect.NotNil(t, fastq.DownsampleFiles(ctx, opts))
}
