// Package upsert implements create-if-absent writes against the graph store.
//
// The Oracle answers existence questions, the Materializer turns a fetched
// Title into exactly one node, and the Linker attaches category nodes to a
// title, creating a bare placeholder for the category on first reference.
//
// Check-then-create pairs run under a KeyLocker so concurrent orchestrators
// in one process create each name at most once. Across processes the store's
// uniqueness constraints take over; a constraint violation surfaces as
// ErrDuplicate.
package upsert
