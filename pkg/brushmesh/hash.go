package brushmesh

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a content hash over vertices, topology and surfaces. Derived
// data (planes, bounds) is not hashed.
func (m *Mesh) Hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	putI32 := func(v int32) {
		binary.LittleEndian.PutUint32(buf[:4], uint32(v))
		_, _ = d.Write(buf[:4])
	}

	putU64(uint64(len(m.Vertices)))
	for _, v := range m.Vertices {
		for _, c := range v {
			putU64(math.Float64bits(c))
		}
	}
	putU64(uint64(len(m.HalfEdges)))
	for _, he := range m.HalfEdges {
		putI32(he.VertexIndex)
		putI32(he.TwinIndex)
	}
	putU64(uint64(len(m.Polygons)))
	for _, p := range m.Polygons {
		putI32(p.FirstEdge)
		putI32(p.EdgeCount)
		putI32(int32(p.Surface.Layers))
		putI32(p.Surface.Material)
	}
	return d.Sum64()
}

// Registry shares immutable meshes by content hash. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	meshes map[uint64]*Mesh
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{meshes: make(map[uint64]*Mesh)}
}

// Add registers m and returns its hash. When a mesh with the same hash is
// already registered the existing one is kept.
func (r *Registry) Add(m *Mesh) uint64 {
	h := m.Hash()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meshes[h]; !ok {
		r.meshes[h] = m
	}
	return h
}

// Get returns the mesh registered under hash.
func (r *Registry) Get(hash uint64) (*Mesh, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meshes[hash]
	return m, ok
}

// Remove forgets the mesh registered under hash.
func (r *Registry) Remove(hash uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meshes[hash]; !ok {
		return false
	}
	delete(r.meshes, hash)
	return true
}

// Len returns the number of registered meshes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.meshes)
}
