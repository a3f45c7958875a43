// Package hierarchy stores the operation tree as a compact hierarchy: an
// arena of generation-stamped slots over one flat node array in which the
// children of every node occupy a contiguous range.
//
// Node identities stay valid across every edit, including Compact, and
// become detectably stale once their node is deleted. A Hierarchy is not
// safe for concurrent use; callers serialize edits and queries.
package hierarchy
