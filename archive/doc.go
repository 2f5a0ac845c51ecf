// Package archive hands the unified definition table and the per-rank
// mapping tables off to a blob store, and reads them back.
//
// One run is stored under its run id:
//
//	<run>/unified/<nn>-<Kind>.def                  rank 0, one blob per kind
//	<run>/mapping/rank-<rrrrr>/source-<sssss>.map  every rank, one blob per source
//	<run>/manifest.json                            rank 0, written last
//
// Write is collective. Rank 0 gathers every rank's write status and writes
// the manifest only when all ranks stored their blobs, so a run with a
// manifest is complete.
//
// Definition and mapping blobs are checksummed, compressed frames in the same
// format the collective exchange uses. The manifest is plain JSON.
package archive
