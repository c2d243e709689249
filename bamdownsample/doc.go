// Package bamdownsample applies the downsample package to SAM and BAM
// records. It provides a Locatable adapter for *sam.Record, group and
// sample keys derived from aux tags and read groups, and Run, which
// downsamples a coordinate-sorted file into a new BAM.
package bamdownsample
