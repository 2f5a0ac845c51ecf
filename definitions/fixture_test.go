package definitions

// populate defines at least one record of every kind, with cross references,
// using prefix to vary names.
func populate(m *Manager, prefix string) {
	machine := m.NewSystemTreeNode(SystemTreeNodeHandle(Invalid), DomainMachine, "machine", "cluster")
	node := m.NewSystemTreeNode(machine, DomainSharedMem, "node", prefix+"-node")
	group := m.NewLocationGroup(0, prefix+" process", LocationGroupProcess, node)
	m.NewLocation(0, "main thread", LocationCPUThread, group)

	main := m.NewRegion(RegionSpec{Name: "main", File: "main.c", BeginLine: 1, EndLine: 50, Paradigm: ParadigmUser, Type: RegionFunction})
	work := m.NewRegion(RegionSpec{Name: prefix + "_work", File: "work.c", Paradigm: ParadigmCompiler, Type: RegionFunction})

	world := m.NewGroup(GroupCommLocations, "world", []uint64{0, 1})
	interim := m.NewInterimCommunicator(InterimCommunicatorHandle(Invalid), ParadigmMPI, "MPI_COMM_WORLD")
	m.NewInterimCommunicator(interim, ParadigmMPI, "split")
	comm := m.NewCommunicator(world, "MPI_COMM_WORLD", CommunicatorHandle(Invalid))
	m.NewRmaWindow("win", comm)

	cyc := m.NewMetric(MetricSpec{Name: "cycles", Unit: "#", Mode: MetricModeAccumulatedStart})
	ins := m.NewMetric(MetricSpec{Name: prefix + "_instructions", Unit: "#"})
	m.NewSamplingSet(OccurrenceSynchronousStrict, SamplingSetCPU, cyc, ins)

	n := m.NewParameter("n", ParameterInt64)
	m.NewAttribute("bytes", "bytes moved", AttributeUint64)

	root := m.NewCallpath(CallpathHandle(Invalid), main, ParameterHandle(Invalid), 0)
	m.NewCallpath(root, work, n, 7)

	m.NewIoFile("/tmp/"+prefix+".dat", node)
	m.NewMarker("phase", SeverityLow)
	m.NewProperty(PropertyMPICommunicationComplete, PropertyConditionAll, true, false)
}
