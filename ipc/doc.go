// Package ipc abstracts the collective exchange used by collective
// unification.
//
// Comm is implemented by Single for non-distributed runs and by World, an
// in-process channel transport that runs k ranks as goroutines:
//
//	err := ipc.Run(ctx, 4, func(ctx context.Context, comm ipc.Comm) error {
//	    parts, err := comm.Gather(ctx, 0, payload)
//	    ...
//	})
//
// Payloads are opaque bytes; Framer adds encoding, compression and a CRC32C
// checksum on top.
package ipc
