// Package intersect finds the brush pairs that interact and prepares, for
// each pair, the planes, edges and vertices of either brush that matter
// when clipping against the other. All per-pair data is expressed in the
// local space of the brush it describes.
package intersect
