// Package brushmesh defines the convex half-edge brush mesh: vertices,
// twin-paired half-edges, polygons and the outward plane of every polygon.
//
// A Mesh is built once and treated as immutable afterwards. Meshes are
// shared between operation-tree nodes through a Registry keyed by their
// content hash.
package brushmesh
