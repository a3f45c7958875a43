package hierarchy

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/routing"
)

// Sentinel errors returned by edits, wrapped with the offending identity.
var (
	ErrInvalidNode      = errors.New("invalid or stale node")
	ErrRootNode         = errors.New("operation not allowed on the root node")
	ErrCycle            = errors.New("edit would create a cycle")
	ErrNotBranch        = errors.New("node cannot have children")
	ErrNotBrush         = errors.New("node is not a brush")
	ErrAttached         = errors.New("node already has a parent")
	ErrIndexOutOfRange  = errors.New("child index out of range")
	ErrInvalidOperation = errors.New("invalid operation")
)

// NodeID identifies a node: an arena slot and the generation the slot had
// when the node was created. The zero NodeID is never valid.
type NodeID struct {
	Index      int32
	Generation uint32
}

// IsZero reports whether id is the zero value.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

func (id NodeID) String() string {
	return fmt.Sprintf("%d.%d", id.Index, id.Generation)
}

// NodeKind distinguishes group nodes from brushes.
type NodeKind uint8

const (
	// Branch groups its children and has no mesh of its own.
	Branch NodeKind = iota
	// Brush is a leaf referencing a shared mesh.
	Brush
)

func (k NodeKind) String() string {
	switch k {
	case Branch:
		return "branch"
	case Brush:
		return "brush"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is the payload of a tree node. Operation combines the node with the
// siblings preceding it. MeshHash keys the node's mesh in a
// brushmesh.Registry and is ignored for branches.
type Node struct {
	Kind           NodeKind
	Operation      routing.Operation
	LocalTransform mgl64.Mat4
	MeshHash       uint64
}

// BranchNode returns a branch payload with an identity transform.
func BranchNode(op routing.Operation) Node {
	return Node{Kind: Branch, Operation: op, LocalTransform: mgl64.Ident4()}
}

// BrushNode returns a brush payload with the given mesh and transform.
func BrushNode(op routing.Operation, mesh uint64, transform mgl64.Mat4) Node {
	return Node{Kind: Brush, Operation: op, LocalTransform: transform, MeshHash: mesh}
}

// IndexOrder pairs a brush identity with its position in the processing
// order of one update pass.
type IndexOrder struct {
	ID    NodeID
	Order int32
}
