/*Package interval defines the closed, 1-based genomic ranges used to order
  and group reads during downsampling.
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what BAM files are limited to.
*/
package interval
