// Package definitions interns measurement definitions.
//
// A Manager holds, per Kind, a dense table of records in creation order and a
// hash-chained index keyed by each record's identity. All records live in one
// page manager and reference each other through handles issued by it, so a
// record can only point at records of the same Manager:
//
//	defs := definitions.New(pm)
//	main := defs.NewRegion(definitions.RegionSpec{Name: "main", File: "a.c"})
//	again := defs.NewRegion(definitions.RegionSpec{Name: "main", File: "a.c"})
//	// main == again
//
// Every kind is driven by the same interning routine, parameterized by a
// small descriptor: payload size, the payload prefix that forms the
// identity, the offsets and target kinds of reference fields, and an
// optional merge hook applied to duplicates.
//
// CopyTo, Export and Import move records between managers by rewriting
// references, which is what local and collective unification are built on.
package definitions
