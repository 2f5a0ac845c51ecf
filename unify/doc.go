// Package unify turns the definition managers of K ranks into one globally
// numbered table.
//
// Local unification runs on every rank without communication. The pages of
// all location managers are adopted by one moved page manager and every
// source (the process manager first, then locations in creation order) is
// copied kind by kind, in dependency order, into a fresh self-unified
// manager. Self-unified and global tables start with the empty string at
// sequence 0. Each source record's unified back reference is set, and each
// source gets a local -> self mapping.
//
// Collective unification runs when the communicator has more than one rank.
// For every kind, in dependency order, each rank walks the state machine
//
//	CollectLocal -> Barrier -> MergeGlobal -> Broadcast -> Done
//
// Records travel with references rewritten to sequence numbers. Rank 0
// interns the batches in rank order into the global manager, so global
// numbers are assigned first by rank and then by local creation order, and
// sends every rank its self -> global mapping. Composing both mappings gives
// every source a total local -> global mapping.
package unify
