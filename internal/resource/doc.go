// Package resource governs process-wide limits shared by every session in a
// process.
//
//   - Memory: allocator arenas reserve their whole size up front; a reservation
//     past the budget fails fast with ErrBudgetExceeded.
//   - Workers: archive uploads run under a bounded worker count.
//   - IO: archive writes are paced by a token bucket.
//
// All methods are safe for concurrent use, and a nil *Controller turns every
// call into a no-op.
package resource
