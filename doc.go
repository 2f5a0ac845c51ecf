// Package scoredef is the definition core of a parallel performance
// measurement system.
//
// Every process records definitions (strings, regions, callpaths, metrics,
// communicators, ...) into a bounded arena. Definitions are interned per
// location, deduplicated per process and finally unified across all
// processes into one globally numbered table, with a mapping from every
// local sequence number to its global one.
//
// # Quick Start
//
//	cfg, _ := config.FromEnvironment()
//	s, err := scoredef.Start(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	loc, _ := s.NewLocation()
//	defs := loc.Definitions()
//	main := defs.NewRegion(definitions.RegionSpec{Name: "main", File: "main.c"})
//	defs.NewCallpath(definitions.CallpathHandle(definitions.Invalid), main,
//	    definitions.ParameterHandle(definitions.Invalid), 0)
//
//	res, err := s.Unify(ctx, comm) // comm is an ipc.Comm; ipc.Single() for one process
//	global := res.Mapping(defs).Global(definitions.KindRegion, 0)
//
// # Memory
//
// The arena size and page size come from SCOREDEF_TOTAL_MEMORY and
// SCOREDEF_PAGE_SIZE. Exhausting the arena is fatal: the session hands an
// *OutOfMemoryError to its FatalHandler (by default: print and exit).
//
// # Archives
//
// After Unify, Archive writes the unified table and this rank's mappings to
// a blobstore.BlobStore; see OpenArchiveStore and package archive.
package scoredef
